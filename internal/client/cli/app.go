package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/feedsync/internal/client/client"
	"github.com/dmitrijs2005/feedsync/internal/client/config"
	"github.com/dmitrijs2005/feedsync/internal/client/media"
	"github.com/dmitrijs2005/feedsync/internal/client/services"
	"github.com/dmitrijs2005/feedsync/internal/client/session"
	"github.com/dmitrijs2005/feedsync/internal/filex"
	"github.com/dmitrijs2005/feedsync/internal/logging"
)

type App struct {
	config  *config.Config
	db      *sql.DB
	log     logging.Logger
	session *session.Session
	posts   *services.PostService
	out     io.Writer
	reader  *bufio.Reader
}

// NewApp opens the database at cfg.DatabasePath, restores the session and
// wires the post service. Logs go to logOut, command output to out.
func NewApp(ctx context.Context, cfg *config.Config, in io.Reader, out, logOut io.Writer) (*App, error) {
	log, err := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	if _, err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	sess := session.New(db, log.With("component", "session"))
	if err := sess.Load(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error restoring session: %w", err)
	}

	api := client.NewHTTPClient(cfg.ServerURL, cfg.RequestTimeout, sess)

	var uploader media.Uploader
	if cfg.MediaBucket != "" {
		uploader, err = media.NewS3Uploader(ctx, media.S3Config{
			Bucket:    cfg.MediaBucket,
			Region:    cfg.MediaRegion,
			Endpoint:  cfg.MediaEndpoint,
			AccessKey: cfg.MediaAccessKey,
			SecretKey: cfg.MediaSecretKey,
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	ps := services.NewPostService(api, db, log, services.Options{
		PageSize:          cfg.PageSize,
		NewerPollInterval: cfg.NewerPollInterval,
		Uploader:          uploader,
		CurrentUser:       sess.CurrentID,
	})

	return &App{
		config:  cfg,
		db:      db,
		log:     log,
		session: sess,
		posts:   ps,
		out:     out,
		reader:  bufio.NewReader(in),
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

// withSessionWatch runs fn while the post service follows session events,
// then lets the service handle every event fn produced.
func (a *App) withSessionWatch(ctx context.Context, fn func() error) error {
	subCtx, cancel := context.WithCancel(ctx)
	events := a.session.Subscribe(subCtx)

	err := fn()
	cancel()

	// events is closed once the subscription is gone
	a.posts.WatchSession(context.WithoutCancel(ctx), events)
	return err
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

// stdin is replaced in tests.
var stdin io.Reader = os.Stdin
