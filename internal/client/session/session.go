// Package session holds the active identity of the client. The identity is
// persisted in the metadata table so it survives restarts, is handed to the
// API client as its token source, and every change is published to
// subscribers.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/feedsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/feedsync/internal/dbx"
	"github.com/dmitrijs2005/feedsync/internal/logging"
)

const (
	keyID    = "auth.id"
	keyToken = "auth.token"

	subscriberBuffer = 8
)

var ErrInvalidIdentity = errors.New("identity must have a positive id and a token")

// Identity is the authenticated user. The zero value means logged out.
type Identity struct {
	ID    int64
	Token string
}

func (i Identity) Authenticated() bool {
	return i.ID != 0
}

type EventKind int

const (
	EventLogin EventKind = iota + 1
	EventLogout
)

func (k EventKind) String() string {
	switch k {
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

type Event struct {
	Kind     EventKind
	Identity Identity
	// UserChanged is set on login when the user differs from the last
	// authenticated one.
	UserChanged bool
}

type Session struct {
	db  *sql.DB
	log logging.Logger

	mu      sync.RWMutex
	current Identity
	// last authenticated user id, kept across logout
	lastID int64
	subs   map[chan Event]struct{}
}

func New(db *sql.DB, log logging.Logger) *Session {
	return &Session{db: db, log: log, subs: make(map[chan Event]struct{})}
}

// Load restores the persisted identity. A partial or unreadable record is
// removed and the session starts logged out.
func (s *Session) Load(ctx context.Context) error {
	repo := metadata.NewSQLiteRepository(s.db)

	rawID, okID, err := repo.Get(ctx, keyID)
	if err != nil {
		return err
	}
	token, okToken, err := repo.Get(ctx, keyToken)
	if err != nil {
		return err
	}
	if !okID && !okToken {
		return nil
	}

	id, perr := strconv.ParseInt(string(rawID), 10, 64)
	if !okID || !okToken || perr != nil || id <= 0 || len(token) == 0 {
		s.log.Warn(ctx, "discarding corrupt session record")
		return repo.Delete(ctx, keyID, keyToken)
	}

	s.mu.Lock()
	s.current = Identity{ID: id, Token: string(token)}
	s.lastID = id
	s.mu.Unlock()
	return nil
}

func (s *Session) Login(ctx context.Context, id Identity) error {
	if id.ID <= 0 || id.Token == "" {
		return ErrInvalidIdentity
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyID, []byte(strconv.FormatInt(id.ID, 10))); err != nil {
			return err
		}
		return repo.Set(ctx, keyToken, []byte(id.Token))
	})
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	changed := s.lastID != id.ID
	s.current = id
	s.lastID = id.ID
	s.publishLocked(ctx, Event{Kind: EventLogin, Identity: id, UserChanged: changed})
	s.mu.Unlock()

	s.log.Info(ctx, "logged in", "user_id", id.ID)
	return nil
}

func (s *Session) Logout(ctx context.Context) error {
	if err := metadata.NewSQLiteRepository(s.db).Delete(ctx, keyID, keyToken); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.mu.Lock()
	s.current = Identity{}
	s.publishLocked(ctx, Event{Kind: EventLogout})
	s.mu.Unlock()

	s.log.Info(ctx, "logged out")
	return nil
}

func (s *Session) Current() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// CurrentID is Current().ID, in the shape paging.CurrentUser expects.
func (s *Session) CurrentID() int64 {
	return s.Current().ID
}

// Token implements client.TokenSource.
func (s *Session) Token() string {
	return s.Current().Token
}

// Subscribe returns a channel of identity changes made after the call. It is
// closed when ctx is done. A subscriber that falls behind loses events.
func (s *Session) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *Session) publishLocked(ctx context.Context, ev Event) {
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Warn(ctx, "session subscriber is full, event dropped", "event", ev.Kind)
		}
	}
}
