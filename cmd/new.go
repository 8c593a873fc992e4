package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session",
	Long: `Save the active session and start a new, empty one. The new session
becomes active for send and chat.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ctrl := a.newController()
		defer func() { _ = ctrl.Close() }()

		var session internal.Session
		err = internal.ShowProgress(cmd.Context(), "Creating session...", func(ctx context.Context) error {
			if err := a.resume(ctx, ctrl); err != nil {
				return err
			}
			var err error
			session, err = ctrl.NewChat(ctx)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		a.remember(ctrl.Snapshot())

		internal.PrintSuccess(fmt.Sprintf("Started new session %s", session.SessionID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
