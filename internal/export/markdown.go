package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/jonas-chat/internal"
)

// MarkdownExporter exports transcripts in Markdown format. Assistant content
// is already markup, so only user text is escaped.
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	session := transcript.Session

	_, _ = fmt.Fprintf(w, "# %s\n\n", transcript.Title())
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", session.SessionID)
	if !session.LastModified.IsZero() {
		_, _ = fmt.Fprintf(w, "**Last modified:** %s  \n", session.LastModified.Format("2006-01-02 15:04"))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(transcript.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range transcript.Messages {
		timestamp := ""
		if !msg.Timestamp.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp.Format("15:04"))
		}

		content := msg.Content
		if msg.IsUser() {
			content = escapeMarkdown(content)
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", senderLabel(msg.Sender), timestamp, content)

		if flags := msg.Metadata.Flags(); len(flags) > 0 {
			names := make([]string, len(flags))
			for j, f := range flags {
				names[j] = f.String()
			}
			_, _ = fmt.Fprintf(w, "_Detected: %s_\n\n", strings.Join(names, ", "))
		}

		if i < len(transcript.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes emphasis markers outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```"):
			inCodeBlock = !inCodeBlock
		case !inCodeBlock:
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
