package paging

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/feedsync/internal/client/client"
	"github.com/dmitrijs2005/feedsync/internal/client/mediator"
	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/dmitrijs2005/feedsync/internal/client/repositories/posts"
	"github.com/dmitrijs2005/feedsync/internal/common"
	"github.com/dmitrijs2005/feedsync/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remote serves ids 1..n, newest first.
type remote struct {
	mu   sync.Mutex
	n    int64
	fail error
}

func (r *remote) page(from int64, count int) []models.Post {
	out := []models.Post{}
	for id := from; id >= 1 && len(out) < count; id-- {
		out = append(out, models.Post{ID: id, AuthorID: id % 2, Author: "a"})
	}
	return out
}

func (r *remote) FetchAfter(_ context.Context, id int64, count int) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	out := []models.Post{}
	for _, p := range r.page(r.n, count) {
		if p.ID > id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *remote) FetchBefore(_ context.Context, id int64, count int) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	return r.page(id-1, count), nil
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newPager(t *testing.T, r *remote, me int64) (*Pager, *sql.DB) {
	t.Helper()
	db := setupDB(t)
	m := mediator.New(r, db, logging.Discard())
	return NewPager(m, posts.NewSQLiteRepository(db), 5, func() int64 { return me }, logging.Discard()), db
}

func waitFor(t *testing.T, s *Stream, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-s.Updates():
			require.True(t, ok, "stream closed")
			if cond(snap) {
				return snap
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func ids(items []models.Post) []int64 {
	out := make([]int64, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}

func TestStream_PagesDownToTheEnd(t *testing.T) {
	p, _ := newPager(t, &remote{n: 12}, 0)
	s := p.Open(context.Background())
	defer s.Close()

	snap := waitFor(t, s, func(s Snapshot) bool { return len(s.Items) > 0 })
	assert.Equal(t, []int64{12, 11, 10, 9, 8}, ids(snap.Items))
	assert.False(t, snap.EndOfPaginationReached)

	s.LoadMore()
	snap = waitFor(t, s, func(s Snapshot) bool { return len(s.Items) > 5 })
	assert.Equal(t, []int64{12, 11, 10, 9, 8, 7, 6, 5, 4, 3}, ids(snap.Items))

	s.LoadMore()
	snap = waitFor(t, s, func(s Snapshot) bool { return len(s.Items) > 10 })
	assert.Len(t, snap.Items, 12)
	assert.False(t, snap.EndOfPaginationReached)

	s.LoadMore()
	snap = waitFor(t, s, func(s Snapshot) bool { return s.EndOfPaginationReached })
	assert.Len(t, snap.Items, 12)
	assert.NoError(t, snap.Err)
}

func TestStream_ServesLocalPagesBeforeFetching(t *testing.T) {
	r := &remote{n: 12}
	p, db := newPager(t, r, 0)

	// warm cache from a previous run
	m := mediator.New(r, db, logging.Discard())
	_, err := m.Load(context.Background(), mediator.Refresh, mediator.State{PageSize: 10})
	require.NoError(t, err)

	r.mu.Lock()
	r.fail = errors.New("offline")
	r.mu.Unlock()

	s := p.Open(context.Background())
	defer s.Close()

	snap := waitFor(t, s, func(s Snapshot) bool { return len(s.Items) > 0 })
	assert.Equal(t, []int64{12, 11, 10, 9, 8}, ids(snap.Items))
	assert.Error(t, snap.Err, "refresh failure is reported alongside cached items")

	s.LoadMore()
	snap = waitFor(t, s, func(s Snapshot) bool { return len(s.Items) > 5 })
	assert.Equal(t, []int64{12, 11, 10, 9, 8, 7, 6, 5, 4, 3}, ids(snap.Items))
	assert.NoError(t, snap.Err)
}

func TestStream_ClassifiedErrorOnEmptyCache(t *testing.T) {
	p, _ := newPager(t, &remote{n: 3, fail: &client.StatusError{Code: 500, Message: "Internal Server Error"}}, 0)
	s := p.Open(context.Background())
	defer s.Close()

	snap := waitFor(t, s, func(Snapshot) bool { return true })
	assert.Empty(t, snap.Items)
	require.ErrorIs(t, snap.Err, common.ErrAPI)
}

func TestStream_OwnedByMe(t *testing.T) {
	p, _ := newPager(t, &remote{n: 4}, 1)
	s := p.Open(context.Background())
	defer s.Close()

	snap := waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 4 })
	for _, item := range snap.Items {
		assert.Equal(t, item.AuthorID == 1, item.OwnedByMe, "post %d", item.ID)
	}
}

func TestStream_LoggedOutOwnsNothing(t *testing.T) {
	r := &remote{n: 4}
	db := setupDB(t)
	m := mediator.New(r, db, logging.Discard())
	p := NewPager(m, posts.NewSQLiteRepository(db), 5, nil, logging.Discard())

	s := p.Open(context.Background())
	defer s.Close()

	snap := waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 4 })
	for _, item := range snap.Items {
		assert.False(t, item.OwnedByMe)
	}
}

func TestStream_NotifyChangedShowsNewerPosts(t *testing.T) {
	p, db := newPager(t, &remote{n: 12}, 0)
	s := p.Open(context.Background())
	defer s.Close()

	waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 5 })

	require.NoError(t, posts.NewSQLiteRepository(db).UpsertMany(context.Background(),
		[]models.Post{{ID: 13}, {ID: 14}}))
	p.NotifyChanged()

	snap := waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 7 })
	assert.Equal(t, []int64{14, 13, 12, 11, 10, 9, 8}, ids(snap.Items))
	assert.EqualValues(t, 0, snap.Generation)
}

func TestStream_InvalidateResetsWindow(t *testing.T) {
	p, _ := newPager(t, &remote{n: 12}, 0)
	s := p.Open(context.Background())
	defer s.Close()

	waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 5 })
	s.LoadMore()
	waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 10 })

	p.Invalidate()
	snap := waitFor(t, s, func(s Snapshot) bool { return s.Generation == 1 })
	assert.Equal(t, []int64{12, 11, 10, 9, 8}, ids(snap.Items))
	assert.EqualValues(t, 1, p.Generation())
}

type blockingLoader struct {
	Loader
	release chan struct{}
	once    sync.Once
	entered chan struct{}
}

func (b *blockingLoader) Load(ctx context.Context, lt mediator.LoadType, st mediator.State) (mediator.Result, error) {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
	return b.Loader.Load(ctx, lt, st)
}

func TestStream_DiscardsStaleGeneration(t *testing.T) {
	db := setupDB(t)
	bl := &blockingLoader{
		Loader:  mediator.New(&remote{n: 3}, db, logging.Discard()),
		release: make(chan struct{}),
		entered: make(chan struct{}),
	}
	p := NewPager(bl, posts.NewSQLiteRepository(db), 5, nil, logging.Discard())

	s := p.Open(context.Background())
	defer s.Close()

	<-bl.entered
	p.Invalidate()
	close(bl.release)

	snap := waitFor(t, s, func(Snapshot) bool { return true })
	assert.EqualValues(t, 1, snap.Generation, "the generation 0 load must not be emitted")
	assert.Len(t, snap.Items, 3)
}

func TestStream_CloseStopsUpdates(t *testing.T) {
	p, _ := newPager(t, &remote{n: 2}, 0)
	s := p.Open(context.Background())

	waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 2 })
	s.Close()

	for range s.Updates() {
	}
	p.mu.Lock()
	assert.Empty(t, p.subs)
	p.mu.Unlock()
}

func TestStream_ContextCancelStops(t *testing.T) {
	p, _ := newPager(t, &remote{n: 2}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	s := p.Open(ctx)

	waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 2 })
	cancel()

	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestStream_RefreshShrinksWindowToFirstPage(t *testing.T) {
	p, _ := newPager(t, &remote{n: 12}, 0)
	s := p.Open(context.Background())
	defer s.Close()

	waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 5 })
	s.LoadMore()
	waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 10 })

	s.Refresh()
	snap := waitFor(t, s, func(s Snapshot) bool { return len(s.Items) == 5 })
	assert.Equal(t, []int64{12, 11, 10, 9, 8}, ids(snap.Items))
	assert.EqualValues(t, 0, snap.Generation, "a stream refresh does not start a new generation")
}
