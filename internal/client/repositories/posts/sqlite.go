package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/dmitrijs2005/feedsync/internal/common"
	"github.com/dmitrijs2005/feedsync/internal/dbx"
)

const columns = `id, author_id, author, author_avatar, content, published,
	liked_by_me, likes, attachment_url, attachment_type`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// UpsertMany writes each post with INSERT ... ON CONFLICT(id) DO UPDATE.
// Callers wanting all-or-nothing semantics pass a transactional DBTX.
func (r *SQLiteRepository) UpsertMany(ctx context.Context, posts []models.Post) error {
	query := `INSERT INTO posts (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET author_id = excluded.author_id,
			author = excluded.author,
			author_avatar = excluded.author_avatar,
			content = excluded.content,
			published = excluded.published,
			liked_by_me = excluded.liked_by_me,
			likes = excluded.likes,
			attachment_url = excluded.attachment_url,
			attachment_type = excluded.attachment_type
	`
	for _, p := range posts {
		var url, typ sql.NullString
		if p.Attachment != nil {
			url = sql.NullString{String: p.Attachment.URL, Valid: true}
			typ = sql.NullString{String: string(p.Attachment.Type), Valid: true}
		}

		_, err := r.db.ExecContext(ctx, query,
			p.ID, p.AuthorID, p.Author, p.AuthorAvatar, p.Content, p.Published,
			p.LikedByMe, p.Likes, url, typ)
		if err != nil {
			return fmt.Errorf("failed to upsert post %d: %w", p.ID, err)
		}
	}
	return nil
}

// DeleteByID removes the post with the given id. A missing id is not an error.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	return nil
}

// ToggleLikeByID is a single statement, so it needs no wrapping transaction.
func (r *SQLiteRepository) ToggleLikeByID(ctx context.Context, id int64) error {
	query := `UPDATE posts SET
			likes = CASE WHEN liked_by_me THEN likes - 1 ELSE likes + 1 END,
			liked_by_me = CASE WHEN liked_by_me THEN 0 ELSE 1 END
		WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to toggle like of post %d: %w", id, err)
	}
	return nil
}

// LatestID returns the greatest stored post id, or 0 when the table is empty.
func (r *SQLiteRepository) LatestID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM posts`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get latest post id: %w", err)
	}
	return id, nil
}

// GetByID returns the post with the given id or common.ErrNotFound.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM posts WHERE id = ?`, id)

	p, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return p, nil
}

// Window returns up to limit posts with id below before, newest first.
// A non-positive before starts from the newest post.
func (r *SQLiteRepository) Window(ctx context.Context, before int64, limit int) ([]models.Post, error) {
	if before <= 0 {
		return r.query(ctx, `SELECT `+columns+` FROM posts ORDER BY id DESC LIMIT ?`, limit)
	}
	return r.query(ctx, `SELECT `+columns+` FROM posts WHERE id < ? ORDER BY id DESC LIMIT ?`, before, limit)
}

// Range returns every post with id at or above floor, newest first.
func (r *SQLiteRepository) Range(ctx context.Context, floor int64) ([]models.Post, error) {
	return r.query(ctx, `SELECT `+columns+` FROM posts WHERE id >= ? ORDER BY id DESC`, floor)
}

// Count returns the number of stored posts.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// Clear deletes all posts.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("failed to clear posts: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	result := []models.Post{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Post, error) {
	var (
		p        models.Post
		url, typ sql.NullString
	)
	err := s.Scan(&p.ID, &p.AuthorID, &p.Author, &p.AuthorAvatar, &p.Content, &p.Published,
		&p.LikedByMe, &p.Likes, &url, &typ)
	if err != nil {
		return nil, err
	}
	if url.Valid {
		p.Attachment = &models.Attachment{URL: url.String, Type: models.AttachmentType(typ.String)}
	}
	return &p, nil
}
