package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/jonas-chat/internal"
)

func TestInspectCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run("inspect")
	if err != nil {
		t.Fatalf("inspect error = %v", err)
	}
	if !strings.Contains(out, "No entries stored") {
		t.Errorf("empty database output:\n%s", out)
	}

	if _, err := env.run("theme", "light"); err != nil {
		t.Fatalf("theme error = %v", err)
	}
	out, err = env.run("inspect")
	if err != nil {
		t.Fatalf("inspect error = %v", err)
	}
	for _, want := range []string{"Found 1 entr(ies)", internal.ThemeKey, "dark theme: false"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = env.run("inspect", "--format", "json")
	if err != nil {
		t.Fatalf("inspect --format json error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("json output invalid: %v\n%s", err, out)
	}
	if decoded[internal.ThemeKey] != false {
		t.Errorf("theme value = %v, want false", decoded[internal.ThemeKey])
	}

	out, err = env.run("inspect", "--key", "backup%")
	if err != nil {
		t.Fatalf("inspect --key error = %v", err)
	}
	if !strings.Contains(out, "No entries stored") {
		t.Errorf("pattern did not filter:\n%s", out)
	}

	if _, err := env.run("inspect", "--format", "xml"); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestInspectEntries_Backup(t *testing.T) {
	now := time.Date(2025, 9, 16, 15, 0, 0, 0, time.Local)
	store := internal.NewMemoryStorage()
	messages := []internal.Message{
		{ID: "1", Content: "hi", Sender: internal.SenderUser, Timestamp: now},
		{ID: "2", Content: "hello", Sender: internal.SenderAssistant, Timestamp: now},
	}
	if err := internal.SaveBackup(store, "chat_session_20250916_090000", messages, now.Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	fresh, _ := store.Get(internal.BackupKey)

	tests := []struct {
		name string
		raw  string
		now  time.Time
		want string
	}{
		{name: "same day", raw: fresh, now: now, want: "2 message(s) saved 2 hours ago for chat_session_20250916_090000"},
		{name: "next day", raw: fresh, now: now.Add(24 * time.Hour), want: "stale or unreadable"},
		{name: "garbage", raw: "{not json", now: now, want: "stale or unreadable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			inspectEntries(&buf, "state.db", []internal.KeyValuePair{{Key: internal.BackupKey, Value: tt.raw}}, tt.now)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, buf.String())
			}
		})
	}
}
