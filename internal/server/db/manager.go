package db

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cloudstore/internal/server/files"
	"github.com/dmitrijs2005/cloudstore/internal/server/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Users() users.Repository
	Files() files.Repository
	Close() error
}
