package cmd

import (
	"errors"
	"fmt"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/spf13/cobra"
)

var switchCmd = &cobra.Command{
	Use:   "switch <session>",
	Short: "Make another session active",
	Long: `Make a session active on the server so that send and chat continue it.
A session can be given by number, id or the start of its title.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		sessions, _, err := a.sessionList(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		session, err := findSession(sessions, args[0])
		if err != nil {
			return err
		}

		res, err := a.client.SwitchSession(cmd.Context(), identity(session))
		if err != nil {
			return fmt.Errorf("failed to switch session: %w", err)
		}
		if !res.Success {
			msg := res.Message
			if msg == "" {
				msg = internal.MsgSwitchFailed
			}
			return errors.New(msg)
		}

		if err := a.cache.SaveSessions(sessions, identity(session), a.client.BaseURL()); err != nil {
			internal.LogWarn("Failed to update session cache: %v", err)
		}
		internal.PrintSuccess(fmt.Sprintf("Switched to %s", internal.Title(session)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(switchCmd)
}
