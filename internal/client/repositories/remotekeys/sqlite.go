package remotekeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/dmitrijs2005/feedsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, t models.KeyType) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM post_remote_keys WHERE type = ?`, string(t)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get remote key[%s]: %w", t, err)
	}
	return id, true, nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, t models.KeyType, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO post_remote_keys (type, id) VALUES (?, ?)
		ON CONFLICT(type) DO UPDATE SET id = excluded.id
	`, string(t), id)
	if err != nil {
		return fmt.Errorf("failed to replace remote key[%s]: %w", t, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM post_remote_keys`); err != nil {
		return fmt.Errorf("failed to clear remote keys: %w", err)
	}
	return nil
}
