package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/spf13/cobra"
)

var (
	deleteAll     bool
	deleteCurrent bool
	deleteYes     bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete [session]",
	Short: "Delete sessions",
	Long: `Delete a session from the server.

Examples:
  jonas-chat delete 2            # delete the second listed session
  jonas-chat delete --current    # delete the active session
  jonas-chat delete --all --yes  # delete every session

Deleting the active session makes the next most recent one active.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateDeleteArgs(args); err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ctx := cmd.Context()
		var target internal.Session
		if len(args) == 1 {
			sessions, _, err := a.sessionList(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if target, err = findSession(sessions, args[0]); err != nil {
				return err
			}
		}

		ctrl := a.newController()
		defer func() { _ = ctrl.Close() }()

		var summary string
		err = internal.ShowProgress(ctx, "Deleting...", func(ctx context.Context) error {
			if err := a.resume(ctx, ctrl); err != nil {
				return err
			}
			switch {
			case deleteAll:
				res, err := ctrl.DeleteAll(ctx)
				if err != nil {
					return err
				}
				summary = fmt.Sprintf("Deleted %d session(s)", len(res.Results))
				if res.Message != "" {
					summary = res.Message
				}
			case deleteCurrent:
				state := ctrl.Snapshot()
				current, ok := findByID(state.Sessions, state.CurrentSessionID)
				if !ok {
					return internal.ErrNotReady
				}
				summary = fmt.Sprintf("Deleted %s", internal.Title(current))
				return ctrl.DeleteCurrent(ctx)
			default:
				summary = fmt.Sprintf("Deleted %s", internal.Title(target))
				return ctrl.Delete(ctx, target)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}

		switch {
		case deleteAll:
			if err := a.cache.ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			}
		case len(args) == 1:
			_ = a.cache.RemoveTranscript(target.Key())
		}
		state := ctrl.Snapshot()
		a.remember(state)

		internal.PrintSuccess(summary)
		if current, ok := state.CurrentSession(); ok {
			internal.PrintInfo(fmt.Sprintf("Active session: %s", internal.Title(current)))
		}
		return nil
	},
}

func validateDeleteArgs(args []string) error {
	modes := 0
	if len(args) == 1 {
		modes++
	}
	if deleteAll {
		modes++
	}
	if deleteCurrent {
		modes++
	}
	switch {
	case modes == 0:
		return errors.New("name a session, or use --current or --all")
	case modes > 1:
		return errors.New("a session argument, --current and --all cannot be combined")
	case deleteAll && !deleteYes:
		return errors.New("refusing to delete every session without --yes")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "Delete every session")
	deleteCmd.Flags().BoolVar(&deleteCurrent, "current", false, "Delete the active session")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Confirm deleting every session")
}
