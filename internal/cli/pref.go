package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPrefCommand creates the pref command group over the reserved
// preference scalars (language, theme).
func NewPrefCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pref",
		Short: "User preference scalars",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Print a preference (empty line when unset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			value, err := s.Setting(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name> <value>",
		Short: "Store a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.SetSetting(ctx, args[0], args[1])
		},
	})

	return cmd
}
