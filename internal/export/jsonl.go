package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/iksnae/jonas-chat/internal"
)

// JSONLExporter exports transcripts in JSONL format (one message per line)
type JSONLExporter struct{}

type jsonlRecord struct {
	SessionID string            `json:"session_id"`
	ID        string            `json:"id"`
	Sender    internal.Sender   `json:"sender"`
	Content   string            `json:"content"`
	Timestamp string            `json:"timestamp,omitempty"`
	Metadata  internal.Metadata `json:"metadata,omitempty"`
}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(transcript *internal.Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range transcript.Messages {
		rec := jsonlRecord{
			SessionID: transcript.Session.SessionID,
			ID:        msg.ID,
			Sender:    msg.Sender,
			Content:   msg.Content,
			Metadata:  msg.Metadata,
		}
		if !msg.Timestamp.IsZero() {
			rec.Timestamp = msg.Timestamp.Format(time.RFC3339)
		}

		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
