package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ataa/localbase/chat"
)

// NewConvCommand creates the conv command group: create, send, list.
func NewConvCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conv",
		Short: "Conversation and messaging commands",
	}

	var itemIDs []string
	create := &cobra.Command{
		Use:   "create <participantId>...",
		Short: "Create a conversation between participants",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := chat.New(s).CreateConversation(ctx, args, itemIDs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	create.Flags().StringSliceVar(&itemIDs, "items", nil, "related item ids")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "send <conversationId> <senderId> <senderName> <content>",
		Short: "Send a message",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := chat.New(s).SendMessage(ctx, args[0], args[1], args[2], args[3])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list <userId>",
		Short: "List a user's conversations, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			// The initial snapshot fires synchronously inside the
			// subscribe call; dispose immediately after.
			dispose := chat.New(s).ConversationsForUser(ctx, args[0], func(conversations []chat.Conversation) {
				for _, conv := range conversations {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %q\n",
						conv.ID,
						time.UnixMilli(conv.LastMessageAt).Format(time.RFC3339),
						conv.LastMessage)
				}
			})
			dispose()
			return nil
		},
	})

	return cmd
}
