// Package mediator bridges paging load requests to remote fetches. It merges
// every fetched page into the local store together with its pagination
// cursor in one transaction.
package mediator

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/dmitrijs2005/feedsync/internal/client/repositories/posts"
	"github.com/dmitrijs2005/feedsync/internal/client/repositories/remotekeys"
	"github.com/dmitrijs2005/feedsync/internal/common"
	"github.com/dmitrijs2005/feedsync/internal/dbx"
	"github.com/dmitrijs2005/feedsync/internal/logging"
)

// DefaultPageSize is used when State.PageSize is not set.
const DefaultPageSize = 5

// LoadType is the direction of a load request.
type LoadType int

const (
	// Refresh loads posts newer than the newest stored one.
	Refresh LoadType = iota
	// Append loads posts older than the BEFORE cursor.
	Append
	// Prepend is a no-op: newer posts arrive through Refresh and polling.
	Prepend
)

func (t LoadType) String() string {
	switch t {
	case Refresh:
		return "refresh"
	case Append:
		return "append"
	case Prepend:
		return "prepend"
	default:
		return fmt.Sprintf("LoadType(%d)", int(t))
	}
}

// State describes the consumer's paging configuration.
type State struct {
	PageSize int
}

type Result struct {
	// EndOfPaginationReached tells the consumer to stop requesting this
	// direction. It is true exactly when the remote returned no posts.
	EndOfPaginationReached bool
}

// Fetcher is the part of client.API the mediator needs.
type Fetcher interface {
	FetchAfter(ctx context.Context, id int64, count int) ([]models.Post, error)
	FetchBefore(ctx context.Context, id int64, count int) ([]models.Post, error)
}

// Mediator fetches pages from the remote and stores them together with the
// remote keys in one transaction.
type Mediator struct {
	api Fetcher
	db  *sql.DB
	log logging.Logger
}

// New returns a Mediator writing to db.
func New(api Fetcher, db *sql.DB, log logging.Logger) *Mediator {
	return &Mediator{api: api, db: db, log: log}
}

// Load serves one load request. Errors are classified with common.From;
// nothing is written locally unless the whole page was fetched and decoded.
func (m *Mediator) Load(ctx context.Context, lt LoadType, st State) (Result, error) {
	if st.PageSize <= 0 {
		st.PageSize = DefaultPageSize
	}

	var (
		res Result
		err error
	)
	switch lt {
	case Refresh:
		res, err = m.refresh(ctx, st.PageSize)
	case Append:
		res, err = m.append(ctx, st.PageSize)
	case Prepend:
		return Result{EndOfPaginationReached: true}, nil
	default:
		return Result{}, common.UnknownError(fmt.Errorf("unsupported load type %v", lt))
	}

	if err != nil {
		m.log.Warn(ctx, "mediator load failed", "load_type", lt, "error", err)
		return Result{}, common.From(err)
	}
	return res, nil
}

func (m *Mediator) refresh(ctx context.Context, pageSize int) (Result, error) {
	latestID, err := posts.NewSQLiteRepository(m.db).LatestID(ctx)
	if err != nil {
		return Result{}, err
	}

	batch, err := m.api.FetchAfter(ctx, latestID, pageSize)
	if err != nil {
		return Result{}, fmt.Errorf("fetch after %d: %w", latestID, err)
	}
	if len(batch) == 0 {
		return Result{EndOfPaginationReached: true}, nil
	}

	newest, oldest := bounds(batch)
	err = dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := posts.NewSQLiteRepository(tx).UpsertMany(ctx, batch); err != nil {
			return err
		}

		keys := remotekeys.NewSQLiteRepository(tx)
		_, hasAfter, err := keys.Get(ctx, models.KeyAfter)
		if err != nil {
			return err
		}
		if err := keys.Replace(ctx, models.KeyAfter, newest); err != nil {
			return err
		}
		if hasAfter {
			return nil
		}

		// first load: this page is also the oldest one fetched so far
		_, hasBefore, err := keys.Get(ctx, models.KeyBefore)
		if err != nil || hasBefore {
			return err
		}
		return keys.Replace(ctx, models.KeyBefore, oldest)
	})
	if err != nil {
		return Result{}, fmt.Errorf("merge refresh page: %w", err)
	}

	m.log.Debug(ctx, "refresh page merged", "count", len(batch), "after", newest)
	return Result{}, nil
}

func (m *Mediator) append(ctx context.Context, pageSize int) (Result, error) {
	before, ok, err := remotekeys.NewSQLiteRepository(m.db).Get(ctx, models.KeyBefore)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{EndOfPaginationReached: true}, nil
	}

	batch, err := m.api.FetchBefore(ctx, before, pageSize)
	if err != nil {
		return Result{}, fmt.Errorf("fetch before %d: %w", before, err)
	}
	if len(batch) == 0 {
		return Result{EndOfPaginationReached: true}, nil
	}

	_, oldest := bounds(batch)
	err = dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := posts.NewSQLiteRepository(tx).UpsertMany(ctx, batch); err != nil {
			return err
		}
		return remotekeys.NewSQLiteRepository(tx).Replace(ctx, models.KeyBefore, oldest)
	})
	if err != nil {
		return Result{}, fmt.Errorf("merge append page: %w", err)
	}

	m.log.Debug(ctx, "append page merged", "count", len(batch), "before", oldest)
	return Result{}, nil
}

// bounds returns the highest and lowest id of a non-empty batch. The server
// sends newest first, but the order is not relied upon.
func bounds(batch []models.Post) (newest, oldest int64) {
	newest, oldest = batch[0].ID, batch[0].ID
	for _, p := range batch[1:] {
		newest = max(newest, p.ID)
		oldest = min(oldest, p.ID)
	}
	return newest, oldest
}
