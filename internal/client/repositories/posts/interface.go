package posts

import (
	"context"

	"github.com/dmitrijs2005/feedsync/internal/client/models"
)

type Repository interface {
	// UpsertMany inserts posts or replaces existing ones by id.
	UpsertMany(ctx context.Context, posts []models.Post) error

	// DeleteByID removes a post. Deleting an absent id is not an error.
	DeleteByID(ctx context.Context, id int64) error

	// ToggleLikeByID flips LikedByMe and moves Likes by one in the same
	// direction. Absent ids are ignored.
	ToggleLikeByID(ctx context.Context, id int64) error

	// LatestID returns the highest stored id, or 0 when empty.
	LatestID(ctx context.Context) (int64, error)

	// GetByID returns common.ErrNotFound when the id is absent.
	GetByID(ctx context.Context, id int64) (*models.Post, error)

	// Window returns up to limit posts with id < before, newest first.
	// before == 0 means no upper bound.
	Window(ctx context.Context, before int64, limit int) ([]models.Post, error)

	// Range returns every post with id >= floor, newest first.
	Range(ctx context.Context, floor int64) ([]models.Post, error)

	Count(ctx context.Context) (int, error)

	// Clear drops every stored post.
	Clear(ctx context.Context) error
}
