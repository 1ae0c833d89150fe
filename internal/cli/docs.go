package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ataa/localbase/store"
)

// NewGetCommand creates the get command: one document or a whole
// collection snapshot.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> [id]",
		Short: "Print a collection snapshot or a single document",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if len(args) == 2 {
				doc, err := s.GetOne(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd, doc)
			}
			docs, err := s.GetAll(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, docs)
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection> <json>",
		Short: "Add a document, assigning an id unless the payload has one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			payload, err := decodePayload(args[1])
			if err != nil {
				return err
			}
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.AddOne(ctx, args[0], payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

// NewSetCommand creates the set command (merge-or-insert by id).
func NewSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <collection> <id> <json>",
		Short: "Merge fields into a document, inserting it if absent",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			payload, err := decodePayload(args[2])
			if err != nil {
				return err
			}
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.SetOne(ctx, args[0], args[1], payload)
		},
	}
}

// NewDelCommand creates the del command.
func NewDelCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "del <collection> <id>",
		Short: "Delete a document (no-op when absent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.DeleteOne(ctx, args[0], args[1])
		},
	}
}

// NewWatchCommand creates the watch command: a live subscription printing
// every snapshot until interrupted.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <collection>",
		Short: "Subscribe to a collection and print each snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			dispose := s.Subscribe(ctx, args[0], func(docs []store.Document) {
				printJSON(cmd, docs)
			})
			defer dispose()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-ctx.Done():
			}
			return nil
		},
	}
}

func decodePayload(raw string) (store.Document, error) {
	var payload store.Document
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("invalid document JSON: %w", err)
	}
	return payload, nil
}

func printJSON(cmd *cobra.Command, value any) error {
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
