// Package files declares the repository contract for file metadata records.
package files

import (
	"context"

	"github.com/dmitrijs2005/cloudstore/internal/server/models"
)

type Repository interface {
	// Create inserts a metadata record. A record with the same
	// (user, filename) yields common.ErrorAlreadyExists.
	Create(ctx context.Context, file *models.StoredFile) error

	// GetByUserAndFilename returns common.ErrorNotFound when absent.
	GetByUserAndFilename(ctx context.Context, userID, filename string) (*models.StoredFile, error)

	// ExistsByUserAndFilename reports whether a record exists.
	ExistsByUserAndFilename(ctx context.Context, userID, filename string) (bool, error)

	// ListByUser returns records ordered by creation time, most recent
	// first. limit <= 0 means unbounded.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.StoredFile, error)

	// DeleteByUserAndFilename removes the record and returns the number of
	// rows deleted, so callers can detect "nothing deleted".
	DeleteByUserAndFilename(ctx context.Context, userID, filename string) (int64, error)

	// UpdateFilename renames the record transactionally. It returns
	// common.ErrorNotFound when no record has oldName and
	// common.ErrorAlreadyExists when newName is already taken.
	UpdateFilename(ctx context.Context, userID, oldName, newName string) error
}
