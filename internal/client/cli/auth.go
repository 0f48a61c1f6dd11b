package cli

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/feedsync/internal/client/session"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLoginCommand(app func() *App) *cobra.Command {
	var (
		token string
		id    int64
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Set the active identity",
		Long: `Set the active identity from a token issued by the feed server.
The user id is read from the token unless --id is given. Without --token the
token is read from the terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if token == "" {
				raw, err := GetToken(a.out)
				if err != nil {
					return err
				}
				token = strings.TrimSpace(string(raw))
			}
			if token == "" {
				return errors.New("token is required")
			}

			ident := session.Identity{ID: id, Token: token}
			if id == 0 {
				var err error
				if ident, err = session.IdentityFromToken(token); err != nil {
					return err
				}
			}

			err := a.withSessionWatch(cmd.Context(), func() error {
				return a.session.Login(cmd.Context(), ident)
			})
			if err != nil {
				return err
			}
			a.printf("%s as user %d\n", color.GreenString("Logged in"), ident.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "session token")
	cmd.Flags().Int64Var(&id, "id", 0, "user id, when the token does not carry one")
	return cmd
}

func newLogoutCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the active identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if !a.session.Current().Authenticated() {
				a.printf("%s\n", color.YellowString("Not logged in"))
				return nil
			}
			err := a.withSessionWatch(cmd.Context(), func() error {
				return a.session.Logout(cmd.Context())
			})
			if err != nil {
				return err
			}
			a.printf("Logged out\n")
			return nil
		},
	}
}
