// Package paging turns the local post store into a live, paged feed view.
//
// A Pager owns the paging generation. Every Stream opened from it keeps a
// window over the local store, asks the mediator for remote pages when the
// window runs past what is stored, and emits snapshots of the window. A new
// generation (Invalidate) makes every stream drop its window and start over.
package paging

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/feedsync/internal/client/mediator"
	"github.com/dmitrijs2005/feedsync/internal/client/repositories/posts"
	"github.com/dmitrijs2005/feedsync/internal/logging"
)

// Loader is satisfied by *mediator.Mediator.
type Loader interface {
	Load(ctx context.Context, lt mediator.LoadType, st mediator.State) (mediator.Result, error)
}

// CurrentUser returns the id of the active identity, 0 when logged out.
type CurrentUser func() int64

type Pager struct {
	loader   Loader
	store    posts.Repository
	pageSize int
	me       CurrentUser
	log      logging.Logger

	mu   sync.Mutex
	gen  uint64
	subs map[*Stream]struct{}
}

func NewPager(loader Loader, store posts.Repository, pageSize int, me CurrentUser, log logging.Logger) *Pager {
	if pageSize <= 0 {
		pageSize = mediator.DefaultPageSize
	}
	if me == nil {
		me = func() int64 { return 0 }
	}
	return &Pager{
		loader:   loader,
		store:    store,
		pageSize: pageSize,
		me:       me,
		log:      log,
		subs:     make(map[*Stream]struct{}),
	}
}

// Generation returns the current paging generation.
func (p *Pager) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Invalidate starts a new generation. Open streams reset their window and
// discard any result still in flight for the old one.
func (p *Pager) Invalidate() {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	subs := p.snapshotSubs()
	p.mu.Unlock()

	p.log.Debug(context.Background(), "paging source invalidated", "generation", gen, "streams", len(subs))
	for _, s := range subs {
		signal(s.invalidated)
	}
}

// NotifyChanged tells open streams the local store changed within the
// current generation.
func (p *Pager) NotifyChanged() {
	p.mu.Lock()
	subs := p.snapshotSubs()
	p.mu.Unlock()

	for _, s := range subs {
		signal(s.changed)
	}
}

// Open starts a stream. It runs until ctx is done or Close is called.
func (p *Pager) Open(ctx context.Context) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := newStream(p, cancel)

	p.mu.Lock()
	p.subs[s] = struct{}{}
	p.mu.Unlock()

	go s.run(ctx)
	return s
}

func (p *Pager) remove(s *Stream) {
	p.mu.Lock()
	delete(p.subs, s)
	p.mu.Unlock()
}

// snapshotSubs must be called with p.mu held.
func (p *Pager) snapshotSubs() []*Stream {
	out := make([]*Stream, 0, len(p.subs))
	for s := range p.subs {
		out = append(out, s)
	}
	return out
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
