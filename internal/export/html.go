package export

import (
	"fmt"
	"html"
	"io"

	"github.com/iksnae/jonas-chat/internal"
)

// HTMLExporter exports transcripts as a standalone HTML page
type HTMLExporter struct{}

const htmlHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.message { padding: 0.75rem 1rem; margin: 0.5rem 0; border-radius: 0.5rem; }
.user { background: #e8f0fe; }
.assistant { background: #f1f3f4; }
.sender { font-weight: bold; margin-bottom: 0.25rem; }
</style>
</head>
<body>
<h1>%s</h1>
`

// Export exports a transcript to HTML. Content is escaped before the
// markdown-style emphasis is converted.
func (e *HTMLExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	title := html.EscapeString(transcript.Title())
	if _, err := fmt.Fprintf(w, htmlHeader, title, title); err != nil {
		return err
	}

	for _, msg := range transcript.Messages {
		body := internal.FormatMessageContent(html.EscapeString(msg.Content))
		if _, err := fmt.Fprintf(w, "<div class=\"message %s\">\n<div class=\"sender\">%s</div>\n<div>%s</div>\n</div>\n",
			msg.Sender, senderLabel(msg.Sender), body); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}

// Extension returns the file extension for this format
func (e *HTMLExporter) Extension() string {
	return "html"
}
