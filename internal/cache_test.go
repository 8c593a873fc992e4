package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/jonas-chat/testutil"
)

func TestCacheManager_Paths(t *testing.T) {
	cacheDir := testutil.CreateTempDir(t)
	cm := NewCacheManager(cacheDir)

	if got, want := cm.GetIndexPath(), filepath.Join(cacheDir, "sessions.yaml"); got != want {
		t.Errorf("GetIndexPath() = %q, want %q", got, want)
	}
	if got, want := cm.GetTranscriptPath("abc.json"), filepath.Join(cacheDir, "session_abc.json.json"); got != want {
		t.Errorf("GetTranscriptPath() = %q, want %q", got, want)
	}
	if got := cm.GetTranscriptPath("chats/a b.json"); filepath.Dir(got) != cacheDir || strings.Contains(filepath.Base(got), "/") {
		t.Errorf("GetTranscriptPath() escaped the cache dir: %q", got)
	}
}

func TestCacheManager_SessionsRoundTrip(t *testing.T) {
	cm := NewCacheManager(filepath.Join(testutil.CreateTempDir(t), "cache"))
	baseURL := "http://localhost:8000"

	sessions := []Session{
		{SessionID: "new", IsNew: true},
		{SessionID: "a", BlobName: "a.json", LastModified: parseTimestamp("2025-09-16T11:11:00"), FirstUserMessage: "Hi"},
	}
	if err := cm.SaveSessions(sessions, "a", baseURL); err != nil {
		t.Fatalf("SaveSessions() error = %v", err)
	}

	got, current := cm.LoadSessions(baseURL)
	if current != "a" {
		t.Errorf("current = %q, want a", current)
	}
	if len(got) != 2 || !got[0].IsNew || got[1].FirstUserMessage != "Hi" {
		t.Fatalf("LoadSessions() = %+v", got)
	}
	if !got[1].LastModified.Equal(sessions[1].LastModified) {
		t.Errorf("LastModified = %v, want %v", got[1].LastModified, sessions[1].LastModified)
	}
}

func TestCacheManager_IsCacheValid(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))

	tests := []struct {
		name    string
		setup   func()
		baseURL string
		want    bool
	}{
		{
			name:    "cache does not exist",
			setup:   func() {},
			baseURL: "http://a",
			want:    false,
		},
		{
			name: "same backend",
			setup: func() {
				_ = cm.SaveSessions(nil, "", "http://a")
			},
			baseURL: "http://a",
			want:    true,
		},
		{
			name:    "other backend",
			setup:   func() {},
			baseURL: "http://b",
			want:    false,
		},
		{
			name: "corrupt index",
			setup: func() {
				_ = os.WriteFile(cm.GetIndexPath(), []byte("sessions: [unterminated"), 0644)
			},
			baseURL: "http://a",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			got, err := cm.IsCacheValid(tt.baseURL)
			if err != nil {
				t.Fatalf("IsCacheValid() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsCacheValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCacheManager_LoadSessionsOtherBackend(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	_ = cm.SaveSessions([]Session{{SessionID: "a"}}, "a", "http://a")

	if got, current := cm.LoadSessions("http://b"); got != nil || current != "" {
		t.Errorf("LoadSessions() for other backend = %v, %q", got, current)
	}
}

func TestCacheManager_Transcripts(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	transcript := CreateTestTranscript("chat_session_20250916_111100")

	if err := cm.SaveTranscript(transcript); err != nil {
		t.Fatalf("SaveTranscript() error = %v", err)
	}
	loaded, err := cm.LoadTranscript(transcript.Session.Key())
	if err != nil {
		t.Fatalf("LoadTranscript() error = %v", err)
	}
	if len(loaded.Messages) != len(transcript.Messages) {
		t.Errorf("loaded %d messages, want %d", len(loaded.Messages), len(transcript.Messages))
	}
	if loaded.Session.SessionID != transcript.Session.SessionID {
		t.Errorf("SessionID = %q", loaded.Session.SessionID)
	}

	if err := cm.RemoveTranscript(transcript.Session.Key()); err != nil {
		t.Fatalf("RemoveTranscript() error = %v", err)
	}
	if _, err := cm.LoadTranscript(transcript.Session.Key()); !os.IsNotExist(err) {
		t.Errorf("LoadTranscript() after remove error = %v, want not exist", err)
	}
	if err := cm.RemoveTranscript("missing"); err != nil {
		t.Errorf("RemoveTranscript(missing) error = %v", err)
	}
}

func TestCacheManager_ClearCache(t *testing.T) {
	cm := NewCacheManager(testutil.CreateTempDir(t))
	transcript := CreateTestTranscript("a")
	_ = cm.SaveTranscript(transcript)
	_ = cm.SaveSessions([]Session{transcript.Session}, "", "http://a")

	if err := cm.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	if _, err := os.Stat(cm.GetIndexPath()); !os.IsNotExist(err) {
		t.Error("index still present")
	}
	if _, err := os.Stat(cm.GetTranscriptPath(transcript.Session.Key())); !os.IsNotExist(err) {
		t.Error("transcript still present")
	}
	if err := cm.ClearCache(); err != nil {
		t.Errorf("ClearCache() on empty cache error = %v", err)
	}
}
