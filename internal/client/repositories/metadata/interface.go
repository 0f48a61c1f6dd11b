// Package metadata is a small key/value table for client state that is not
// feed data, such as the persisted session identity.
package metadata

import (
	"context"
)

type Repository interface {
	// Get returns ok == false when key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the given keys; absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
