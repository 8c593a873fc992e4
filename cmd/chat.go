package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/iksnae/jonas-chat/internal/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	Long: `Open the full-screen chat with Jonas.

Keys:
  enter        send the message
  tab          browse sessions (enter switch, n new, d delete, D delete all)
  ctrl+n       start a new chat
  ctrl+l       clear the current chat's history
  ctrl+p       edit the preferences detected in the last reply
  ctrl+e       edit the last reply and send it back
  ctrl+t       toggle dark/light theme
  ctrl+c       quit

Log output goes to chat.log in the data directory while the chat is open.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		logPath := filepath.Join(a.cfg.DataDir, "chat.log")
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		internal.SetLogOutput(logFile)
		defer func() {
			internal.SetLogOutput(os.Stderr)
			_ = logFile.Close()
		}()

		ctrl := a.newController()
		// today's transcript shows while the session list loads
		ctrl.RestoreBackup()

		runErr := tui.Run(cmd.Context(), ctrl, a.theme)
		a.remember(ctrl.Snapshot())
		if err := ctrl.Close(); err != nil {
			internal.LogWarn("Failed to close chat: %v", err)
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
