package cmd

import (
	"bytes"
	"fmt"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/iksnae/jonas-chat/internal/export"
	"github.com/spf13/cobra"
)

var (
	showRaw   bool
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show [session]",
	Short: "Show the messages of a session",
	Long: `Print a session transcript. Without an argument the active session is shown.

A session can be given by its number in 'jonas-chat sessions', its id, or the
start of its title. Transcripts are cached, so a session that was shown once
can be shown again while the backend is down.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ref := ""
		if len(args) > 0 {
			ref = args[0]
		}
		session, err := a.resolveSession(cmd.Context(), ref)
		if err != nil {
			return err
		}
		transcript, err := a.fetchTranscript(cmd.Context(), session)
		if err != nil {
			return err
		}
		if showLimit > 0 && len(transcript.Messages) > showLimit {
			transcript.Messages = transcript.Messages[len(transcript.Messages)-showLimit:]
		}

		var buf bytes.Buffer
		if err := (&export.MarkdownExporter{}).Export(transcript, &buf); err != nil {
			return fmt.Errorf("failed to render transcript: %w", err)
		}

		out := cmd.OutOrStdout()
		if showRaw {
			_, _ = out.Write(buf.Bytes())
			return nil
		}
		if len(transcript.Messages) == 0 {
			internal.PrintInfo("This session has no messages yet")
		}
		_, _ = fmt.Fprint(out, renderMarkdown(buf.String(), a.theme.IsDark()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print Markdown without terminal styling")
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Only show the last N messages")
}
