package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/jonas-chat/internal"
)

func TestMarkdownExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(internal.CreateTestTranscript("test1"), &buf); err != nil {
		t.Fatalf("MarkdownExporter.Export() error = %v", err)
	}
	output := buf.String()

	want := []string{
		"# Hello, how are you?\n",
		"**Session:** test1",
		"**Last modified:** 2025-09-16 11:11",
		"**Messages:** 2",
		"**You:** (11:11)",
		"**Jonas:** (11:12)",
		"I'm doing **well**, thank you!",
		"_Detected: User Story_",
	}
	for _, s := range want {
		if !strings.Contains(output, s) {
			t.Errorf("output missing %q\n%s", s, output)
		}
	}
	if strings.Count(output, "---\n\n") != 2 {
		t.Errorf("expected a rule after the header and between messages\n%s", output)
	}
}

func TestMarkdownExporter_EscapesUserText(t *testing.T) {
	transcript := internal.CreateTestTranscriptWithMessages("esc", []internal.Message{
		{ID: "u", Content: "make it **bold**", Sender: internal.SenderUser},
		{ID: "a", Content: "**Done**", Sender: internal.SenderAssistant},
	})

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(transcript, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, `make it \*\*bold\*\*`) {
		t.Errorf("user text not escaped\n%s", output)
	}
	if !strings.Contains(output, "\n**Done**\n") {
		t.Errorf("assistant markup was escaped\n%s", output)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bold", in: "**x**", want: `\*\*x\*\*`},
		{name: "underscore", in: "__x__", want: `\_\_x\_\_`},
		{name: "code block untouched", in: "```\n**x**\n```", want: "```\n**x**\n```"},
		{name: "plain", in: "hello", want: "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeMarkdown(tt.in); got != tt.want {
				t.Errorf("escapeMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMarkdownExporter_Extension(t *testing.T) {
	if got := (&MarkdownExporter{}).Extension(); got != "md" {
		t.Errorf("MarkdownExporter.Extension() = %v, want md", got)
	}
}
