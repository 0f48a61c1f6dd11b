package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in, run feedsync login first")

func (a *App) requireLogin() error {
	if !a.session.Current().Authenticated() {
		return errNotLoggedIn
	}
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id %q", arg)
	}
	return id, nil
}

func newPostCommand(app func() *App) *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "post [text]",
		Short: "Publish a post",
		Long:  "Publish a post. Without text the content is read from stdin until an empty line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireLogin(); err != nil {
				return err
			}

			content := strings.Join(args, " ")
			if content == "" {
				var err error
				if content, err = GetMultiline(a.reader, "Post text", a.out); err != nil {
					return err
				}
			}
			if content == "" {
				return errors.New("post text is empty")
			}

			var upload *models.MediaUpload
			if image != "" {
				upload = &models.MediaUpload{Path: image}
			}

			saved, err := a.posts.Save(cmd.Context(), models.Post{Content: content}, upload)
			if err != nil {
				return errors.New(describe(err))
			}
			a.printf("%s #%d\n", color.GreenString("Published"), saved.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&image, "image", "i", "", "path of an image to attach")
	return cmd
}

func newLikeCommand(app func() *App, like bool) *cobra.Command {
	use, short := "like <id>", "Like a post"
	if !like {
		use, short = "unlike <id>", "Remove a like"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if like {
				err = a.posts.LikeByID(cmd.Context(), id)
			} else {
				err = a.posts.UnlikeByID(cmd.Context(), id)
			}
			if err != nil {
				return errors.New(describe(err))
			}
			a.printf("OK\n")
			return nil
		},
	}
}

func newRemoveCommand(app func() *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				answer, err := GetSimpleText(a.reader, fmt.Sprintf("Delete post #%d? [y/N]", id), a.out)
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					a.printf("Cancelled\n")
					return nil
				}
			}

			if err := a.posts.RemoveByID(cmd.Context(), id); err != nil {
				return errors.New(describe(err))
			}
			a.printf("Deleted #%d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
