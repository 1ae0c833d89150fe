// Package cli implements the localbase command tree. It is a thin
// operator surface over the store: inspect collections, write documents
// and watch live queries. Running `watch` in two terminals against the
// same backing store demonstrates the cross-process relay.
package cli

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"ataa/localbase/auth"
	"ataa/localbase/config"
	"ataa/localbase/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the localbase CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "localbase",
		Short: "Local reactive document store for the Ataa app",
		Long: `localbase is a client-side stand-in for a remote document database and
realtime sync service. Collections of documents are persisted in a shared
key-value backing and change events are relayed to every process using it.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewDelCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewPrefCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))
	cmd.AddCommand(NewConvCommand(opts))

	return cmd
}

// openStore connects to the configured backing and seeds a fresh one.
func openStore(ctx context.Context) (*store.Store, config.Config, error) {
	cfg := config.Load()
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	return s, cfg, nil
}

func openAuth(ctx context.Context) (*auth.Service, *store.Store, error) {
	s, cfg, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return auth.New(s, cfg.IdentityClientID, nil), s, nil
}
