package paging

import (
	"context"

	"github.com/dmitrijs2005/feedsync/internal/client/mediator"
	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/dmitrijs2005/feedsync/internal/common"
)

// Snapshot is one emitted state of a stream's window.
type Snapshot struct {
	Generation uint64
	// Items are ordered by id descending, unique by id.
	Items                  []models.Post
	EndOfPaginationReached bool
	// Err is the last failed load, nil once a later load succeeds. The
	// window still shows whatever the local store holds.
	Err error
}

// Stream is a single subscription to the feed. All loads of one stream run
// on its own goroutine, one at a time.
type Stream struct {
	p      *Pager
	cancel context.CancelFunc

	invalidated chan struct{}
	changed     chan struct{}
	more        chan struct{}
	refresh     chan struct{}
	updates     chan Snapshot
	done        chan struct{}

	// owned by run
	gen   uint64
	items []models.Post
	end   bool
	err   error
}

func newStream(p *Pager, cancel context.CancelFunc) *Stream {
	return &Stream{
		p:           p,
		cancel:      cancel,
		invalidated: make(chan struct{}, 1),
		changed:     make(chan struct{}, 1),
		more:        make(chan struct{}, 1),
		refresh:     make(chan struct{}, 1),
		updates:     make(chan Snapshot, 1),
		done:        make(chan struct{}),
	}
}

// Updates delivers snapshots. Only the latest undelivered snapshot is kept.
// The channel is closed when the stream stops.
func (s *Stream) Updates() <-chan Snapshot {
	return s.updates
}

// LoadMore asks for the next older page. Calls made while a load is running
// collapse into one.
func (s *Stream) LoadMore() {
	signal(s.more)
}

// Refresh drops the window and reloads it from the top.
func (s *Stream) Refresh() {
	signal(s.refresh)
}

// Close stops the stream and waits for its goroutine to exit.
func (s *Stream) Close() {
	s.cancel()
	<-s.done
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)
	defer s.p.remove(s)

	s.reset(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.invalidated:
			s.reset(ctx)
		case <-s.refresh:
			s.reset(ctx)
		case <-s.more:
			s.loadMore(ctx)
		case <-s.changed:
			s.rederive(ctx)
		}
	}
}

func (s *Stream) stale() bool {
	return s.p.Generation() != s.gen
}

func (s *Stream) reset(ctx context.Context) {
	s.gen = s.p.Generation()
	s.items, s.end, s.err = nil, false, nil

	_, err := s.p.loader.Load(ctx, mediator.Refresh, mediator.State{PageSize: s.p.pageSize})
	if ctx.Err() != nil || s.stale() {
		return
	}
	s.err = err

	page, err := s.p.store.Window(ctx, 0, s.p.pageSize)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.items = page
	s.emit()
}

func (s *Stream) loadMore(ctx context.Context) {
	if s.end {
		s.emit()
		return
	}

	before := s.floor()
	page, err := s.p.store.Window(ctx, before, s.p.pageSize)
	if err != nil {
		s.fail(ctx, err)
		return
	}

	if len(page) < s.p.pageSize {
		res, err := s.p.loader.Load(ctx, mediator.Append, mediator.State{PageSize: s.p.pageSize})
		if ctx.Err() != nil || s.stale() {
			return
		}
		s.err = err
		if err == nil {
			s.end = res.EndOfPaginationReached
		}

		if page, err = s.p.store.Window(ctx, before, s.p.pageSize); err != nil {
			s.fail(ctx, err)
			return
		}
	} else {
		s.err = nil
	}

	s.items = append(s.items, page...)
	s.emit()
}

// rederive re-reads the served window, including anything stored above it
// since it was served.
func (s *Stream) rederive(ctx context.Context) {
	var (
		page []models.Post
		err  error
	)
	if len(s.items) == 0 {
		page, err = s.p.store.Window(ctx, 0, s.p.pageSize)
	} else {
		page, err = s.p.store.Range(ctx, s.floor())
	}
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.items = page
	s.emit()
}

// floor is the lowest id served so far, 0 when nothing is.
func (s *Stream) floor() int64 {
	if len(s.items) == 0 {
		return 0
	}
	return s.items[len(s.items)-1].ID
}

func (s *Stream) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	s.p.log.Error(ctx, "paging window read failed", "generation", s.gen, "error", err)
	s.err = common.From(err)
	s.emit()
}

func (s *Stream) emit() {
	me := s.p.me()
	items := make([]models.Post, 0, len(s.items))
	seen := make(map[int64]struct{}, len(s.items))
	for _, p := range s.items {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		p.OwnedByMe = me != 0 && p.AuthorID == me
		items = append(items, p)
	}

	snap := Snapshot{
		Generation:             s.gen,
		Items:                  items,
		EndOfPaginationReached: s.end,
		Err:                    s.err,
	}

	// only this goroutine sends, so after draining the send cannot block
	select {
	case <-s.updates:
	default:
	}
	s.updates <- snap
}
