package mediator

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"

	"github.com/dmitrijs2005/feedsync/internal/client/client"
	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/dmitrijs2005/feedsync/internal/client/repositories/posts"
	"github.com/dmitrijs2005/feedsync/internal/client/repositories/remotekeys"
	"github.com/dmitrijs2005/feedsync/internal/common"
	"github.com/dmitrijs2005/feedsync/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	after  func(id int64, count int) ([]models.Post, error)
	before func(id int64, count int) ([]models.Post, error)
	calls  []string
}

func (f *fakeAPI) FetchAfter(ctx context.Context, id int64, count int) ([]models.Post, error) {
	f.calls = append(f.calls, fmt.Sprintf("after(%d,%d)", id, count))
	return f.after(id, count)
}

func (f *fakeAPI) FetchBefore(ctx context.Context, id int64, count int) ([]models.Post, error) {
	f.calls = append(f.calls, fmt.Sprintf("before(%d,%d)", id, count))
	return f.before(id, count)
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func batch(ids ...int64) []models.Post {
	out := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Post{ID: id, AuthorID: 1, Author: "a", Content: fmt.Sprint("post ", id)})
	}
	return out
}

func storedIDs(t *testing.T, db *sql.DB) []int64 {
	t.Helper()
	all, err := posts.NewSQLiteRepository(db).Range(context.Background(), 0)
	require.NoError(t, err)
	out := make([]int64, 0, len(all))
	for _, p := range all {
		out = append(out, p.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func key(t *testing.T, db *sql.DB, kt models.KeyType) (int64, bool) {
	t.Helper()
	id, ok, err := remotekeys.NewSQLiteRepository(db).Get(context.Background(), kt)
	require.NoError(t, err)
	return id, ok
}

func TestRefreshThenAppend_Scenario(t *testing.T) {
	db := setupDB(t)
	api := &fakeAPI{
		after:  func(int64, int) ([]models.Post, error) { return batch(10, 9, 8), nil },
		before: func(int64, int) ([]models.Post, error) { return batch(7, 6), nil },
	}
	m := New(api, db, logging.Discard())
	ctx := context.Background()

	res, err := m.Load(ctx, Refresh, State{PageSize: 3})
	require.NoError(t, err)
	assert.False(t, res.EndOfPaginationReached)
	assert.Equal(t, []int64{8, 9, 10}, storedIDs(t, db))

	after, ok := key(t, db, models.KeyAfter)
	require.True(t, ok)
	assert.EqualValues(t, 10, after)
	before, ok := key(t, db, models.KeyBefore)
	require.True(t, ok)
	assert.EqualValues(t, 8, before)

	res, err = m.Load(ctx, Append, State{PageSize: 3})
	require.NoError(t, err)
	assert.False(t, res.EndOfPaginationReached)
	assert.Equal(t, []int64{6, 7, 8, 9, 10}, storedIDs(t, db))

	before, _ = key(t, db, models.KeyBefore)
	assert.EqualValues(t, 6, before)
	after, _ = key(t, db, models.KeyAfter)
	assert.EqualValues(t, 10, after, "append must not move AFTER")

	assert.Equal(t, []string{"after(0,3)", "before(8,3)"}, api.calls)
}

func TestAppend_WithoutBeforeKey_IsTerminalWithoutFetch(t *testing.T) {
	db := setupDB(t)
	api := &fakeAPI{}
	m := New(api, db, logging.Discard())

	res, err := m.Load(context.Background(), Append, State{PageSize: 5})
	require.NoError(t, err)
	assert.True(t, res.EndOfPaginationReached)
	assert.Empty(t, api.calls)
}

func TestPrepend_AlwaysEndsWithoutFetch(t *testing.T) {
	api := &fakeAPI{}
	m := New(api, setupDB(t), logging.Discard())

	res, err := m.Load(context.Background(), Prepend, State{})
	require.NoError(t, err)
	assert.True(t, res.EndOfPaginationReached)
	assert.Empty(t, api.calls)
}

func TestRefresh_WithExistingKeys_OnlyMovesAfter(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, posts.NewSQLiteRepository(db).UpsertMany(ctx, batch(10, 9, 8)))
	keys := remotekeys.NewSQLiteRepository(db)
	require.NoError(t, keys.Replace(ctx, models.KeyAfter, 10))
	require.NoError(t, keys.Replace(ctx, models.KeyBefore, 8))

	api := &fakeAPI{after: func(id int64, _ int) ([]models.Post, error) {
		require.EqualValues(t, 10, id, "refresh must start after the latest stored id")
		return batch(13, 12, 11), nil
	}}
	m := New(api, db, logging.Discard())

	_, err := m.Load(ctx, Refresh, State{PageSize: 3})
	require.NoError(t, err)

	after, _ := key(t, db, models.KeyAfter)
	before, _ := key(t, db, models.KeyBefore)
	assert.EqualValues(t, 13, after)
	assert.EqualValues(t, 8, before)
}

func TestEmptyResponses_EndPaginationWithoutWrites(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, remotekeys.NewSQLiteRepository(db).Replace(ctx, models.KeyBefore, 4))

	api := &fakeAPI{
		after:  func(int64, int) ([]models.Post, error) { return []models.Post{}, nil },
		before: func(int64, int) ([]models.Post, error) { return nil, nil },
	}
	m := New(api, db, logging.Discard())

	res, err := m.Load(ctx, Refresh, State{PageSize: 5})
	require.NoError(t, err)
	assert.True(t, res.EndOfPaginationReached)

	res, err = m.Load(ctx, Append, State{PageSize: 5})
	require.NoError(t, err)
	assert.True(t, res.EndOfPaginationReached)

	_, ok := key(t, db, models.KeyAfter)
	assert.False(t, ok)
	before, _ := key(t, db, models.KeyBefore)
	assert.EqualValues(t, 4, before)
	assert.Empty(t, storedIDs(t, db))
}

func TestFetchFailure_IsClassifiedAndWritesNothing(t *testing.T) {
	db := setupDB(t)
	api := &fakeAPI{
		after: func(int64, int) ([]models.Post, error) {
			return nil, &client.StatusError{Code: 503, Message: "Service Unavailable"}
		},
	}
	m := New(api, db, logging.Discard())

	_, err := m.Load(context.Background(), Refresh, State{PageSize: 5})
	require.Error(t, err)

	var ce *common.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, common.KindAPI, ce.Kind)
	assert.Equal(t, 503, ce.Code)

	assert.Empty(t, storedIDs(t, db))
	_, ok := key(t, db, models.KeyAfter)
	assert.False(t, ok)
}

func TestNetworkFailure_OnAppend(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, remotekeys.NewSQLiteRepository(db).Replace(context.Background(), models.KeyBefore, 8))
	api := &fakeAPI{
		before: func(int64, int) ([]models.Post, error) {
			return nil, fmt.Errorf("GET: %w", common.ErrUnavailable)
		},
	}
	m := New(api, db, logging.Discard())

	_, err := m.Load(context.Background(), Append, State{PageSize: 5})
	require.ErrorIs(t, err, common.ErrNetwork)
}

func TestOverlappingPages_NoDuplicates(t *testing.T) {
	db := setupDB(t)
	api := &fakeAPI{
		after:  func(int64, int) ([]models.Post, error) { return batch(10, 9, 8), nil },
		before: func(int64, int) ([]models.Post, error) { return batch(8, 7), nil },
	}
	m := New(api, db, logging.Discard())
	ctx := context.Background()

	_, err := m.Load(ctx, Refresh, State{PageSize: 3})
	require.NoError(t, err)
	_, err = m.Load(ctx, Append, State{PageSize: 3})
	require.NoError(t, err)

	assert.Equal(t, []int64{7, 8, 9, 10}, storedIDs(t, db))
}

func TestDefaultPageSize(t *testing.T) {
	api := &fakeAPI{after: func(int64, int) ([]models.Post, error) { return nil, nil }}
	m := New(api, setupDB(t), logging.Discard())

	_, err := m.Load(context.Background(), Refresh, State{})
	require.NoError(t, err)
	assert.Equal(t, []string{fmt.Sprintf("after(0,%d)", DefaultPageSize)}, api.calls)
}

func TestLoadType_String(t *testing.T) {
	assert.Equal(t, "refresh", Refresh.String())
	assert.Equal(t, "append", Append.String())
	assert.Equal(t, "prepend", Prepend.String())
}
