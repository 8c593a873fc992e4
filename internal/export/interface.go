package export

import (
	"fmt"
	"io"

	"github.com/iksnae/jonas-chat/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(transcript *internal.Transcript, w io.Writer) error
	Extension() string
}

// Formats lists the supported format names
var Formats = []string{"jsonl", "md", "yaml", "json", "html"}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "html":
		return &HTMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json, html)", format)
	}
}

// senderLabel is the display name of a message author
func senderLabel(sender internal.Sender) string {
	if sender == internal.SenderUser {
		return "You"
	}
	return "Jonas"
}
