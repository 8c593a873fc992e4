package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/iksnae/jonas-chat/internal"
)

func TestFindSession(t *testing.T) {
	sessions := []internal.Session{
		{SessionID: "chat_session_20250916_101500", BlobName: "chat_session_20250916_101500.json", FirstUserMessage: "Plan the release"},
		{SessionID: "Chat_09_15_09_00", BlobName: "Chat_09_15_09_00.json", FirstUserMessage: "Plan the sprint"},
		{SessionID: "scratch", FirstUserMessage: "Draft a user story"},
	}

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "by number", ref: "2", want: "Chat_09_15_09_00"},
		{name: "number out of range", ref: "4", wantErr: true},
		{name: "zero", ref: "0", wantErr: true},
		{name: "by id", ref: "scratch", want: "scratch"},
		{name: "by blob name", ref: "Chat_09_15_09_00.json", want: "Chat_09_15_09_00"},
		{name: "unique title prefix", ref: "draft", want: "scratch"},
		{name: "ambiguous title prefix", ref: "Plan the", wantErr: true},
		{name: "no match", ref: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := findSession(sessions, tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("findSession(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if !tt.wantErr && got.SessionID != tt.want {
				t.Errorf("findSession(%q) = %q, want %q", tt.ref, got.SessionID, tt.want)
			}
		})
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		session internal.Session
		want    string
	}{
		{internal.Session{SessionID: "chat_session_20250916_101500"}, "session_chat_session_20250916_101500.md"},
		{internal.Session{BlobName: "chats/my session.json"}, "session_chats_my_session.md"},
	}
	for _, tt := range tests {
		if got := exportFilename(tt.session, "md"); got != tt.want {
			t.Errorf("exportFilename(%+v) = %q, want %q", tt.session, got, tt.want)
		}
	}
}

func TestResumeReopensCachedSession(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	env.server.Seed("older", now.Add(-2*time.Hour), internal.HistoryEntry{Role: "user", Content: "first"})
	env.server.Seed("recent", now.Add(-time.Hour), internal.HistoryEntry{Role: "user", Content: "second"})

	if _, err := env.run("switch", "older"); err != nil {
		t.Fatalf("switch error = %v", err)
	}

	resetFlags()
	apiURL, dataDir = env.ts.URL, env.dataDir
	a, err := newApp()
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()
	ctrl := a.newController()
	defer ctrl.Close()

	if err := a.resume(context.Background(), ctrl); err != nil {
		t.Fatalf("resume() error = %v", err)
	}
	if got := ctrl.Snapshot().CurrentSessionID; got != "older" {
		t.Errorf("CurrentSessionID = %q, want older", got)
	}
	if env.server.Current() != "older" {
		t.Errorf("backend current = %q, want older", env.server.Current())
	}
}
