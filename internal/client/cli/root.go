package cli

import (
	"context"
	"errors"
	"io"

	"github.com/dmitrijs2005/feedsync/internal/client/config"
	"github.com/spf13/cobra"
)

// commandTree is the root command plus the App its pre-run opened.
type commandTree struct {
	root *cobra.Command
	app  *App
}

// newCommandTree builds the feedsync command tree. Output goes to out, logs
// and errors to errOut.
func newCommandTree(out, errOut io.Writer) *commandTree {
	t := &commandTree{}

	root := &cobra.Command{
		Use:           "feedsync",
		Short:         "Offline-first feed client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	binding := config.Bind(root.PersistentFlags())

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := binding.Resolve()
		if err != nil {
			return err
		}
		t.app, err = NewApp(cmd.Context(), cfg, stdin, out, errOut)
		return err
	}

	get := func() *App { return t.app }
	root.AddCommand(
		newLoginCommand(get),
		newLogoutCommand(get),
		newFeedCommand(get),
		newRefreshCommand(get),
		newWatchCommand(get),
		newPostCommand(get),
		newLikeCommand(get, true),
		newLikeCommand(get, false),
		newRemoveCommand(get),
		newVersionCommand(),
	)

	t.root = root
	return t
}

// execute runs the tree with args. The App is closed whether or not the
// command failed; cobra skips post-run hooks after a RunE error.
func (t *commandTree) execute(ctx context.Context, args []string) (err error) {
	defer func() {
		err = errors.Join(err, t.close())
	}()
	t.root.SetArgs(args)
	return t.root.ExecuteContext(ctx)
}

func (t *commandTree) close() error {
	if t.app == nil {
		return nil
	}
	err := t.app.Close()
	t.app = nil
	return err
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	return newCommandTree(out, errOut).execute(ctx, args)
}
