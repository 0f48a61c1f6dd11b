// Package posts provides the local, durable, ordered store of feed posts.
//
// # Overview
//
// Repository is the contract used by the mediator and the post service.
// SQLiteRepository persists posts in the posts table through a dbx.DBTX, so
// the same code runs against *sql.DB or inside a *sql.Tx opened by
// dbx.WithTx.
//
// # Ordering & paging
//
// Posts are ordered by id descending. Window pages by keyset ("ids below
// before"), never by offset, so inserting newer posts never shifts a page
// boundary that was already served. Range re-reads an already served window
// down to its floor.
//
// Typical Usage
//
//	repo := posts.NewSQLiteRepository(db)
//	_ = repo.UpsertMany(ctx, batch)
//	first, _ := repo.Window(ctx, 0, 5)
//	next, _ := repo.Window(ctx, first[len(first)-1].ID, 5)
package posts
