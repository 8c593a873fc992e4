package internal

import (
	"testing"
	"time"
)

func TestBackup_RoundTripSameDay(t *testing.T) {
	store := NewMemoryStorage()
	now := time.Date(2025, 9, 16, 11, 11, 0, 0, time.Local)
	msgs := []Message{
		{ID: "1", Content: "hello", Sender: SenderUser, Timestamp: now},
		{ID: "2", Content: "hi", Sender: SenderAssistant, Timestamp: now, Metadata: Metadata{"Userstory": BoolValue(true)}},
	}

	if err := SaveBackup(store, "chat_session_1", msgs, now); err != nil {
		t.Fatalf("SaveBackup() error = %v", err)
	}

	backup, ok := LoadBackup(store, now.Add(2*time.Hour))
	if !ok {
		t.Fatal("LoadBackup() ok = false, want true")
	}
	if backup.SessionID != "chat_session_1" {
		t.Errorf("SessionID = %q", backup.SessionID)
	}
	if len(backup.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(backup.Messages))
	}
	if !backup.Messages[1].Metadata.Flag(FlagUserStory) {
		t.Error("metadata flag lost in backup round trip")
	}
	if !backup.Messages[0].Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", backup.Messages[0].Timestamp, now)
	}
}

func TestBackup_StaleIsIgnored(t *testing.T) {
	store := NewMemoryStorage()
	yesterday := time.Date(2025, 9, 15, 23, 0, 0, 0, time.Local)
	_ = SaveBackup(store, "", []Message{{ID: "1", Content: "old", Sender: SenderUser}}, yesterday)

	if _, ok := LoadBackup(store, yesterday.Add(2*time.Hour)); ok {
		t.Error("LoadBackup() restored a backup from a previous day")
	}
}

func TestBackup_MalformedIsIgnored(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{{{"},
		{"bad timestamp", `{"messages":[],"timestamp":"yesterday-ish"}`},
		{"messages not array", `{"messages":{"id":"1"},"timestamp":"` + now.Format(time.RFC3339) + `"}`},
		{"messages missing", `{"timestamp":"` + now.Format(time.RFC3339) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStorage()
			_ = store.Set(BackupKey, tt.raw)
			if _, ok := LoadBackup(store, now); ok {
				t.Errorf("LoadBackup() accepted %s", tt.raw)
			}
		})
	}
}

func TestBackup_Missing(t *testing.T) {
	if _, ok := LoadBackup(NewMemoryStorage(), time.Now()); ok {
		t.Error("LoadBackup() ok = true with empty store")
	}
}
