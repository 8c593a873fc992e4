package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/jonas-chat/internal"
	"github.com/spf13/cobra"
)

var sessionsClearCache bool

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"list", "ls"},
	Short:   "List saved sessions",
	Long: `List the chat sessions stored on the server, newest first.

The active session is marked with ●. Use the number in the first column
with show, switch, delete and export.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if sessionsClearCache {
			if err := a.cache.ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.LogInfo("Cache cleared")
			}
		}

		sessions, currentID, err := a.sessionList(cmd.Context())
		if err != nil {
			if len(sessions) == 0 {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			internal.PrintWarning(fmt.Sprintf("Backend unreachable, showing cached sessions: %v", err))
		}

		displaySessions(cmd.OutOrStdout(), sessions, currentID, time.Now())
		return nil
	},
}

func displaySessions(out io.Writer, sessions []internal.Session, currentID string, now time.Time) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("No sessions found"))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Found %d session(s)", len(sessions))))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, " \t"+titleStyle.Render("#")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Updated")+"\t"+titleStyle.Render("ID"))
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 90))

	for i, s := range sessions {
		marker := " "
		if s.MatchesCurrent(currentID) {
			marker = activeStyle.Render("●")
		}

		title := lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(internal.Title(s))

		updated := internal.FormatSessionDate(s.LastModified, now)
		if updated == "" {
			updated = "—"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			marker,
			strconv.Itoa(i+1),
			title,
			dateStyle.Render(updated),
			idStyle.Render(identity(s)),
		)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, idStyle.Render("Tip: `jonas-chat show 1` prints the first session"))
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().BoolVar(&sessionsClearCache, "clear-cache", false, "Clear the session cache before listing")
}
