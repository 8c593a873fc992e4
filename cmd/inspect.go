package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/jonas-chat/internal"
	"github.com/spf13/cobra"
)

var (
	inspectFormat  string
	inspectPattern string
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the local state database",
	Long: `Show what jonas-chat keeps in its local state database: the theme
preference and the chat backup restored when the chat opens on the same day.

Examples:
  jonas-chat inspect                     # Summary of every key
  jonas-chat inspect --format json       # Raw key/value pairs as JSON
  jonas-chat inspect --key 'theme%'      # Only keys matching a LIKE pattern`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := internal.EnsureDir(cfg.DataDir); err != nil {
			return err
		}
		store, err := internal.OpenStorage(cfg.StateDBPath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = store.Close() }()

		pairs, err := store.Entries(inspectPattern)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch inspectFormat {
		case "json":
			values := make(map[string]json.RawMessage, len(pairs))
			for _, p := range pairs {
				if json.Valid([]byte(p.Value)) {
					values[p.Key] = json.RawMessage(p.Value)
				} else {
					quoted, _ := json.Marshal(p.Value)
					values[p.Key] = quoted
				}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(values)
		case "text":
			inspectEntries(out, store.Path(), pairs, time.Now())
			return nil
		default:
			return fmt.Errorf("unsupported format: %s (supported: text, json)", inspectFormat)
		}
	},
}

func inspectEntries(out io.Writer, path string, pairs []internal.KeyValuePair, now time.Time) {
	_, _ = fmt.Fprintf(out, "Database: %s\n", path)
	if len(pairs) == 0 {
		_, _ = fmt.Fprintln(out, "No entries stored")
		return
	}
	_, _ = fmt.Fprintf(out, "Found %d entr(ies)\n\n", len(pairs))

	for _, p := range pairs {
		_, _ = fmt.Fprintf(out, "• %s (%s)\n", p.Key, humanize.Bytes(uint64(len(p.Value))))
		switch p.Key {
		case internal.ThemeKey:
			_, _ = fmt.Fprintf(out, "    dark theme: %s\n", p.Value)
		case internal.BackupKey:
			describeBackup(out, p.Value, now)
		default:
			value := p.Value
			if len(value) > 80 {
				value = value[:80] + "..."
			}
			_, _ = fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(value, "\n", " "))
		}
	}
}

func describeBackup(out io.Writer, raw string, now time.Time) {
	store := internal.NewMemoryStorage()
	_ = store.Set(internal.BackupKey, raw)
	backup, ok := internal.LoadBackup(store, now)
	if !ok {
		_, _ = fmt.Fprintln(out, "    stale or unreadable, will not be restored")
		return
	}
	_, _ = fmt.Fprintf(out, "    %d message(s) saved %s", len(backup.Messages), humanize.RelTime(backup.Timestamp, now, "ago", "from now"))
	if backup.SessionID != "" {
		_, _ = fmt.Fprintf(out, " for %s", backup.SessionID)
	}
	_, _ = fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format (text, json)")
	inspectCmd.Flags().StringVar(&inspectPattern, "key", "%", "SQL LIKE pattern selecting keys")
}
