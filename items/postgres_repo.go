package items

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
)

var _ Repo = (*PostgresRepo)(nil)

// PostgresRepo stores items in Postgres via database/sql with the pgx driver.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, item *Item) error {
	query := `INSERT INTO items (id, user_id, title, done, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.Title, item.Done, item.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "[items.PostgresRepo.Create] ExecContext")
	}
	return nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string) ([]*Item, error) {
	query := `SELECT id, user_id, title, done, created_at
	          FROM items WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[items.PostgresRepo.ListByUser] QueryContext")
	}
	defer rows.Close()

	result := make([]*Item, 0)
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.Done, &item.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "[items.PostgresRepo.ListByUser] Scan")
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[items.PostgresRepo.ListByUser] rows")
	}
	return result, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, itemID string) error {
	query := `DELETE FROM items WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, itemID, userID)
	if err != nil {
		return errors.Wrap(err, "[items.PostgresRepo.Delete] ExecContext")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[items.PostgresRepo.Delete] RowsAffected")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
