// Package remotekeys persists the two pagination boundaries of the feed,
// AFTER and BEFORE, so paging resumes across process restarts.
package remotekeys

import (
	"context"

	"github.com/dmitrijs2005/feedsync/internal/client/models"
)

type Repository interface {
	// Get returns the stored id for t; ok is false when no record exists.
	Get(ctx context.Context, t models.KeyType) (id int64, ok bool, err error)

	// Replace overwrites the single record for t.
	Replace(ctx context.Context, t models.KeyType, id int64) error

	// Clear drops both records.
	Clear(ctx context.Context) error
}
