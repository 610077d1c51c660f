package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cloudstore/internal/common"
	"github.com/dmitrijs2005/cloudstore/internal/dbx"
	"github.com/dmitrijs2005/cloudstore/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.StoredFile) error {

	query :=
		`INSERT INTO files (id, user_id, filename, original_filename, size, content_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.UserID, file.Filename, file.OriginalFilename, file.Size, file.ContentType, file.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByUserAndFilename(ctx context.Context, userID, filename string) (*models.StoredFile, error) {
	query :=
		`SELECT id, user_id, filename, original_filename, size, content_type, created_at FROM files
		 WHERE user_id = $1 AND filename = $2
		 `

	file := &models.StoredFile{}
	err := r.db.QueryRowContext(ctx, query, userID, filename).Scan(
		&file.ID, &file.UserID, &file.Filename, &file.OriginalFilename, &file.Size, &file.ContentType, &file.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) ExistsByUserAndFilename(ctx context.Context, userID, filename string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM files WHERE user_id = $1 AND filename = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, filename).Scan(&exists); err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.StoredFile, error) {
	query :=
		`SELECT id, user_id, filename, original_filename, size, content_type, created_at FROM files
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 `
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.StoredFile
	for rows.Next() {
		var item models.StoredFile
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Filename, &item.OriginalFilename, &item.Size, &item.ContentType, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) DeleteByUserAndFilename(ctx context.Context, userID, filename string) (int64, error) {
	query := `DELETE FROM files WHERE user_id = $1 AND filename = $2`

	res, err := r.db.ExecContext(ctx, query, userID, filename)
	if err != nil {
		return 0, fmt.Errorf("failed to delete file record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) UpdateFilename(ctx context.Context, userID, oldName, newName string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		var taken bool
		check := `SELECT EXISTS (SELECT 1 FROM files WHERE user_id = $1 AND filename = $2)`
		if err := tx.QueryRowContext(ctx, check, userID, newName).Scan(&taken); err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}
		if taken {
			return common.ErrorAlreadyExists
		}

		update := `UPDATE files SET filename = $3 WHERE user_id = $1 AND filename = $2`
		res, err := tx.ExecContext(ctx, update, userID, oldName, newName)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return common.ErrorAlreadyExists
			}
			return fmt.Errorf("error performing sql request: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected error: %w", err)
		}
		if n == 0 {
			return common.ErrorNotFound
		}
		return nil
	})
}
