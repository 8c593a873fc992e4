package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/jonas-chat/internal"
)

func TestJSONExporter_Export(t *testing.T) {
	tests := []struct {
		name       string
		transcript *internal.Transcript
		wantCount  int
	}{
		{
			name:       "basic transcript",
			transcript: internal.CreateTestTranscript("test1"),
			wantCount:  2,
		},
		{
			name:       "empty transcript",
			transcript: internal.CreateTestTranscriptWithMessages("test2", []internal.Message{}),
			wantCount:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&JSONExporter{}).Export(tt.transcript, &buf); err != nil {
				t.Fatalf("JSONExporter.Export() error = %v", err)
			}

			output := buf.String()
			var got internal.Transcript
			if err := json.Unmarshal([]byte(output), &got); err != nil {
				t.Fatalf("Output is not valid JSON: %v\nOutput: %s", err, output)
			}
			if got.Session.SessionID != tt.transcript.Session.SessionID {
				t.Errorf("session id = %q, want %q", got.Session.SessionID, tt.transcript.Session.SessionID)
			}
			if len(got.Messages) != tt.wantCount {
				t.Errorf("messages = %d, want %d", len(got.Messages), tt.wantCount)
			}
			if !strings.Contains(output, "\n  ") {
				t.Errorf("Output should be pretty-printed with indentation")
			}
		})
	}
}

func TestJSONExporter_PreservesMetadata(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(internal.CreateTestTranscript("meta"), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	var got internal.Transcript
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !got.Messages[1].Metadata.Flag(internal.FlagUserStory) {
		t.Errorf("metadata lost: %+v", got.Messages[1].Metadata)
	}
}

func TestJSONExporter_Extension(t *testing.T) {
	if got := (&JSONExporter{}).Extension(); got != "json" {
		t.Errorf("JSONExporter.Extension() = %v, want json", got)
	}
}
