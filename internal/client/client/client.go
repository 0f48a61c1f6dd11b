package client

import (
	"context"
	"io"

	"github.com/dmitrijs2005/feedsync/internal/client/models"
)

// API is the remote feed surface the sync layer consumes.
type API interface {
	// FetchAfter returns up to count posts with id > id, newest first.
	FetchAfter(ctx context.Context, id int64, count int) ([]models.Post, error)
	// FetchBefore returns up to count posts with id < id, newest first.
	FetchBefore(ctx context.Context, id int64, count int) ([]models.Post, error)
	// FetchNewer returns every post with id > id.
	FetchNewer(ctx context.Context, id int64) ([]models.Post, error)

	// Save creates (ID == 0) or updates a post and returns the canonical copy.
	Save(ctx context.Context, post models.Post) (models.Post, error)
	RemoveByID(ctx context.Context, id int64) error
	LikeByID(ctx context.Context, id int64) error
	UnlikeByID(ctx context.Context, id int64) error

	// Upload sends r as a multipart file named name.
	Upload(ctx context.Context, name string, r io.Reader) (models.Media, error)
}

// TokenSource supplies the current session token; an empty token sends no
// Authorization header.
type TokenSource interface {
	Token() string
}
