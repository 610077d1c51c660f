package users

import (
	"context"

	"github.com/dmitrijs2005/cloudstore/internal/server/models"
)

type Repository interface {
	// Create inserts a new user and returns it with ID and CreatedAt
	// populated. A duplicate login yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByLogin returns common.ErrorNotFound when the login is unknown.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
}
