package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/feedsync/internal/client/paging"
	"github.com/dmitrijs2005/feedsync/internal/client/repositories/posts"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errStreamClosed = errors.New("feed stream closed")

func nextSnapshot(ctx context.Context, s *paging.Stream) (paging.Snapshot, error) {
	select {
	case snap, ok := <-s.Updates():
		if !ok {
			return paging.Snapshot{}, errStreamClosed
		}
		return snap, nil
	case <-ctx.Done():
		return paging.Snapshot{}, ctx.Err()
	}
}

func newFeedCommand(app func() *App) *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:     "feed",
		Aliases: []string{"ls"},
		Short:   "Print the feed, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()

			stream := a.posts.Data(ctx)
			defer stream.Close()

			snap, err := nextSnapshot(ctx, stream)
			if err != nil {
				return err
			}
			for i := 1; i < pages && !snap.EndOfPaginationReached; i++ {
				stream.LoadMore()
				if snap, err = nextSnapshot(ctx, stream); err != nil {
					return err
				}
			}

			if snap.Err != nil {
				a.printf("%s\n", color.YellowString("showing cached posts: %s", describe(snap.Err)))
			}
			if len(snap.Items) == 0 {
				a.printf("No posts\n")
				return nil
			}
			for _, p := range snap.Items {
				printPost(a.out, p)
			}
			if snap.EndOfPaginationReached {
				a.printf("%s\n", color.New(color.Faint).Sprint("-- end of feed --"))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&pages, "pages", "n", 1, "number of pages to print")
	return cmd
}

func newRefreshCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch posts newer than the newest stored one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if a.posts.LoadNewPosts(cmd.Context()) {
				a.printf("%s\n", color.GreenString("New posts loaded"))
			} else {
				a.printf("Nothing new\n")
			}
			return nil
		},
	}
}

func newWatchCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll for newer posts until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()

			latest, err := posts.NewSQLiteRepository(a.db).LatestID(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("Watching for posts newer than #%d every %s\n", latest, a.config.NewerPollInterval)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				for v := range a.posts.NewerCount(ctx, latest) {
					if v.Err != nil {
						return v.Err
					}
					if v.Count > 0 {
						a.printf("%s\n", color.GreenString("%d new posts", v.Count))
					}
				}
				return ctx.Err()
			})
			g.Go(func() error {
				a.posts.WatchSession(ctx, a.session.Subscribe(ctx))
				return nil
			})

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
