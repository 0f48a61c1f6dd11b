// Package services contains the application services of the feedsync client.
// PostService is the single entry point the presentation layer uses for the
// feed: the live paged view, optimistic mutations and the newer-posts poll.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/feedsync/internal/client/client"
	"github.com/dmitrijs2005/feedsync/internal/client/media"
	"github.com/dmitrijs2005/feedsync/internal/client/mediator"
	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/dmitrijs2005/feedsync/internal/client/paging"
	"github.com/dmitrijs2005/feedsync/internal/client/repositories/posts"
	"github.com/dmitrijs2005/feedsync/internal/client/repositories/remotekeys"
	"github.com/dmitrijs2005/feedsync/internal/client/session"
	"github.com/dmitrijs2005/feedsync/internal/common"
	"github.com/dmitrijs2005/feedsync/internal/dbx"
	"github.com/dmitrijs2005/feedsync/internal/logging"
)

const DefaultNewerPollInterval = 120 * time.Second

type Options struct {
	PageSize          int
	NewerPollInterval time.Duration
	// Uploader replaces the API client for attachment uploads.
	Uploader    media.Uploader
	CurrentUser paging.CurrentUser
}

// NewerCount is one result of the newer-posts poll. Err is set on the last
// value only.
type NewerCount struct {
	Count int
	Err   error
}

type PostService struct {
	api          client.API
	uploader     media.Uploader
	db           *sql.DB
	mediator     *mediator.Mediator
	pager        *paging.Pager
	pageSize     int
	pollInterval time.Duration
	log          logging.Logger
}

func NewPostService(api client.API, db *sql.DB, log logging.Logger, opts Options) *PostService {
	if opts.PageSize <= 0 {
		opts.PageSize = mediator.DefaultPageSize
	}
	if opts.NewerPollInterval <= 0 {
		opts.NewerPollInterval = DefaultNewerPollInterval
	}
	if opts.Uploader == nil {
		opts.Uploader = api
	}

	m := mediator.New(api, db, log.With("component", "mediator"))
	return &PostService{
		api:          api,
		uploader:     opts.Uploader,
		db:           db,
		mediator:     m,
		pager:        paging.NewPager(m, posts.NewSQLiteRepository(db), opts.PageSize, opts.CurrentUser, log.With("component", "paging")),
		pageSize:     opts.PageSize,
		pollInterval: opts.NewerPollInterval,
		log:          log,
	}
}

// Data opens a live paged view of the feed. Close the stream or cancel ctx
// to release it.
func (s *PostService) Data(ctx context.Context) *paging.Stream {
	return s.pager.Open(ctx)
}

// InvalidatePagingSource makes every open stream reload from the top.
func (s *PostService) InvalidatePagingSource() {
	s.pager.Invalidate()
}

// LoadNewPosts fetches posts newer than the newest stored one and reports
// whether any arrived. Failures are logged and reported as false.
func (s *PostService) LoadNewPosts(ctx context.Context) bool {
	res, err := s.mediator.Load(ctx, mediator.Refresh, mediator.State{PageSize: s.pageSize})
	if err != nil {
		s.log.Warn(ctx, "load new posts failed", "error", err)
		return false
	}
	if res.EndOfPaginationReached {
		return false
	}
	s.pager.NotifyChanged()
	return true
}

// NewerCount polls for posts newer than anchorID every poll interval, first
// after one interval. Each batch is stored and its size sent; the anchor then
// moves to the newest stored id. The first failure is sent as a classified
// error and ends the poll. Cancelling ctx closes the channel without a value.
func (s *PostService) NewerCount(ctx context.Context, anchorID int64) <-chan NewerCount {
	out := make(chan NewerCount)

	go func() {
		defer close(out)

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		anchor := anchorID
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			n, newest, err := s.pollNewer(ctx, anchor)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn(ctx, "newer posts poll stopped", "anchor", anchor, "error", err)
				select {
				case out <- NewerCount{Err: common.From(err)}:
				case <-ctx.Done():
				}
				return
			}
			anchor = max(anchor, newest)

			select {
			case out <- NewerCount{Count: n}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *PostService) pollNewer(ctx context.Context, anchor int64) (int, int64, error) {
	batch, err := s.api.FetchNewer(ctx, anchor)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch newer than %d: %w", anchor, err)
	}

	var newest int64
	for _, p := range batch {
		newest = max(newest, p.ID)
	}
	if len(batch) > 0 {
		if err := posts.NewSQLiteRepository(s.db).UpsertMany(ctx, batch); err != nil {
			return 0, 0, err
		}
		s.pager.NotifyChanged()
	}

	s.log.Debug(ctx, "newer posts polled", "anchor", anchor, "count", len(batch))
	return len(batch), newest, nil
}

// Save uploads the attachment, if any, then creates the post remotely and
// stores the server's copy.
func (s *PostService) Save(ctx context.Context, post models.Post, upload *models.MediaUpload) (models.Post, error) {
	if upload != nil {
		m, err := s.Upload(ctx, *upload)
		if err != nil {
			s.pager.Invalidate()
			return models.Post{}, err
		}
		post.Attachment = &models.Attachment{URL: m.ID, Type: models.AttachmentImage}
	}

	saved, err := s.api.Save(ctx, post)
	if err != nil {
		s.log.Warn(ctx, "save post failed", "error", err)
		s.pager.Invalidate()
		return models.Post{}, common.From(err)
	}

	if err := posts.NewSQLiteRepository(s.db).UpsertMany(ctx, []models.Post{saved}); err != nil {
		s.pager.Invalidate()
		return models.Post{}, common.From(err)
	}
	s.pager.NotifyChanged()
	return saved, nil
}

// RemoveByID deletes the post locally, then remotely. A failed remote delete
// does not restore the post; the paging source is invalidated instead.
func (s *PostService) RemoveByID(ctx context.Context, id int64) error {
	if err := posts.NewSQLiteRepository(s.db).DeleteByID(ctx, id); err != nil {
		return common.From(err)
	}
	s.pager.NotifyChanged()

	if err := s.api.RemoveByID(ctx, id); err != nil {
		s.log.Warn(ctx, "remote delete failed", "post_id", id, "error", err)
		s.pager.Invalidate()
		return common.From(err)
	}
	return nil
}

func (s *PostService) LikeByID(ctx context.Context, id int64) error {
	return s.toggleLike(ctx, id, s.api.LikeByID)
}

func (s *PostService) UnlikeByID(ctx context.Context, id int64) error {
	return s.toggleLike(ctx, id, s.api.UnlikeByID)
}

// toggleLike flips the stored like state before the remote call and flips it
// back if the call fails.
func (s *PostService) toggleLike(ctx context.Context, id int64, remote func(context.Context, int64) error) error {
	repo := posts.NewSQLiteRepository(s.db)
	if err := repo.ToggleLikeByID(ctx, id); err != nil {
		return common.From(err)
	}
	s.pager.NotifyChanged()

	if err := remote(ctx, id); err != nil {
		s.log.Warn(ctx, "remote like toggle failed, rolling back", "post_id", id, "error", err)
		// the caller's ctx may be the reason for the failure
		if rbErr := repo.ToggleLikeByID(context.WithoutCancel(ctx), id); rbErr != nil {
			s.log.Error(ctx, "like rollback failed", "post_id", id, "error", rbErr)
		}
		s.pager.Invalidate()
		return common.From(err)
	}
	return nil
}

// Upload sends a local file to the configured uploader.
func (s *PostService) Upload(ctx context.Context, upload models.MediaUpload) (models.Media, error) {
	f, err := os.Open(upload.Path)
	if err != nil {
		return models.Media{}, common.From(err)
	}
	defer f.Close()

	name := upload.Name
	if name == "" {
		name = filepath.Base(upload.Path)
	}

	m, err := s.uploader.Upload(ctx, name, f)
	if err != nil {
		s.log.Warn(ctx, "media upload failed", "name", name, "error", err)
		return models.Media{}, common.From(err)
	}
	return m, nil
}

// WatchSession invalidates the paging source on every login and logout until
// ctx is done or events is closed. When a different user logs in, the cached
// feed and its cursors are dropped first since like state is per user.
func (s *PostService) WatchSession(ctx context.Context, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.UserChanged {
				if err := s.clearCache(ctx); err != nil {
					s.log.Error(ctx, "failed to clear feed cache", "error", err)
				}
			}
			s.log.Debug(ctx, "session changed", "event", ev.Kind)
			s.pager.Invalidate()
		}
	}
}

func (s *PostService) clearCache(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := posts.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return remotekeys.NewSQLiteRepository(tx).Clear(ctx)
	})
}
