package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNormalizeCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		args  []string
		want  string
	}{
		{
			name:  "html to markup",
			input: "<p>Hi <strong>there</strong></p>",
			args:  []string{"normalize"},
			want:  "Hi **there**",
		},
		{
			name:  "plain text unchanged",
			input: "no tags here",
			args:  []string{"normalize", "-"},
			want:  "no tags here",
		},
		{
			name:  "markup back to html",
			input: "<p>Hi <em>you</em></p><p>again</p>",
			args:  []string{"normalize", "--html"},
			want:  "Hi <em>you</em><br><br>again",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			out, err := execute(strings.NewReader(tt.input), tt.args...)
			if err != nil {
				t.Fatalf("normalize error = %v", err)
			}
			if strings.TrimSpace(out) != tt.want {
				t.Errorf("normalize = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestNormalizeCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reply.html")
	if err := os.WriteFile(path, []byte("<h2>Title</h2>Body &amp; more"), 0644); err != nil {
		t.Fatal(err)
	}

	resetFlags()
	out, err := execute(nil, "normalize", path)
	if err != nil {
		t.Fatalf("normalize error = %v", err)
	}
	if strings.TrimSpace(out) != "## Title\n\nBody & more" {
		t.Errorf("normalize = %q", out)
	}

	if _, err := execute(nil, "normalize", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
