package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/spf13/cobra"
)

var (
	sendRaw     bool
	sendNewChat bool
)

var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Send a single message and print the reply",
	Long: `Send a message to the active session and print Jonas's reply.

The active session is the one the last command used, or the most recent one.
A new session is created when there is none.

Examples:
  jonas-chat send "Write a user story for the login page"
  jonas-chat send --new "Start over with a new topic"
  jonas-chat send --raw "hello" > reply.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return internal.ErrEmptyMessage
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ctrl := a.newController()
		defer func() { _ = ctrl.Close() }()

		var reply internal.Message
		err = internal.ShowProgress(cmd.Context(), "Jonas is thinking...", func(ctx context.Context) error {
			if err := a.resume(ctx, ctrl); err != nil {
				return err
			}
			if sendNewChat || ctrl.Snapshot().Phase != internal.StateReady {
				if _, err := ctrl.NewChat(ctx); err != nil {
					return err
				}
			}
			var err error
			reply, err = ctrl.Send(ctx, text)
			return err
		})
		a.remember(ctrl.Snapshot())
		if err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}

		out := cmd.OutOrStdout()
		markup := internal.ToMarkup(reply.Content)
		if sendRaw {
			_, _ = fmt.Fprintln(out, markup)
		} else {
			_, _ = fmt.Fprint(out, renderMarkdown(markup, a.theme.IsDark()))
		}
		if badges := flagBadges(reply.Metadata); badges != "" {
			_, _ = fmt.Fprintln(out, badges)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVar(&sendRaw, "raw", false, "Print the reply as plain markup without terminal styling")
	sendCmd.Flags().BoolVar(&sendNewChat, "new", false, "Start a new session before sending")
}
