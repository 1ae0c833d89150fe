package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAuthCommand creates the auth command group: login, logout, whoami.
func NewAuthCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Session commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login <email> <password>",
		Short: "Authenticate and store the session user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessions, s, err := openAuth(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := sessions.Login(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n",
				user.String("displayName"), user.String("email"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Clear the session user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessions, s, err := openAuth(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			return sessions.Logout(ctx)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Print the session user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sessions, s, err := openAuth(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := sessions.CurrentUser(ctx)
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "guest")
				return nil
			}
			return printJSON(cmd, user)
		},
	})

	return cmd
}
