package internal

import (
	"encoding/json"
	"errors"
	"time"
)

// BackupKey is the storage key of the local chat backup
const BackupKey = "jonas-ai-chat-backup"

// ChatBackup is the local copy of the transcript kept between runs
type ChatBackup struct {
	SessionID string    `json:"session_id,omitempty"`
	Messages  []Message `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveBackup writes the transcript to store
func SaveBackup(store KeyValueStore, sessionID string, messages []Message, now time.Time) error {
	backup := ChatBackup{
		SessionID: sessionID,
		Messages:  messages,
		Timestamp: now,
	}
	if backup.Messages == nil {
		backup.Messages = []Message{}
	}
	data, err := json.Marshal(backup)
	if err != nil {
		return &ParseError{Source: "backup", Key: BackupKey, Err: err}
	}
	return store.Set(BackupKey, string(data))
}

// LoadBackup returns the stored backup when it was written on now's calendar
// day. Missing, stale or malformed backups yield ok == false.
func LoadBackup(store KeyValueStore, now time.Time) (*ChatBackup, bool) {
	raw, err := store.Get(BackupKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			LogError("Error loading chat backup: %v", err)
		}
		return nil, false
	}

	var wire struct {
		SessionID string          `json:"session_id"`
		Messages  json.RawMessage `json:"messages"`
		Timestamp string          `json:"timestamp"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		LogDebug("Ignoring malformed chat backup: %v", err)
		return nil, false
	}

	saved := parseTimestamp(wire.Timestamp)
	if saved.IsZero() || !sameDay(saved, now) {
		return nil, false
	}

	var messages []Message
	if err := json.Unmarshal(wire.Messages, &messages); err != nil || messages == nil {
		return nil, false
	}

	return &ChatBackup{
		SessionID: wire.SessionID,
		Messages:  messages,
		Timestamp: saved,
	}, true
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
