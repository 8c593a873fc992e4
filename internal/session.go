package internal

import (
	"encoding/json"
	"strings"
	"time"
)

// Sender identifies who wrote a message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ParseSender accepts the spellings found in stored transcripts.
func ParseSender(s string) Sender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "human":
		return SenderUser
	default:
		return SenderAssistant
	}
}

// Message is a single transcript entry
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Content   string    `json:"content" yaml:"content"`
	Sender    Sender    `json:"sender" yaml:"sender"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Metadata  Metadata  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IsUser reports whether the message was written by the user
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}

// Session is the client-side view of a remote conversation thread. The
// remote store owns SessionID, BlobName, LastModified and Title; the
// FirstUserMessage preview and IsNew flag only live on the client.
type Session struct {
	SessionID        string    `json:"session_id" yaml:"session_id"`
	BlobName         string    `json:"blob_name,omitempty" yaml:"blob_name,omitempty"`
	LastModified     time.Time `json:"last_modified" yaml:"last_modified"`
	Title            string    `json:"title,omitempty" yaml:"title,omitempty"`
	FirstUserMessage string    `json:"first_user_message,omitempty" yaml:"first_user_message,omitempty"`
	IsNew            bool      `json:"is_new_chat,omitempty" yaml:"is_new_chat,omitempty"`
}

// Key returns the storage key used to address the session's history
func (s Session) Key() string {
	if s.BlobName != "" {
		return s.BlobName
	}
	return s.SessionID
}

// Matches reports whether two entries refer to the same remote session
func (s Session) Matches(other Session) bool {
	if s.SessionID != "" && s.SessionID == other.SessionID {
		return true
	}
	return s.BlobName != "" && s.BlobName == other.BlobName
}

// MatchesCurrent reports whether id (a session id or blob name) addresses s
func (s Session) MatchesCurrent(id string) bool {
	if id == "" {
		return false
	}
	if s.SessionID == id || s.BlobName == id {
		return true
	}
	return s.BlobName != "" && strings.TrimSuffix(s.BlobName, ".json") == id
}

// UnmarshalJSON accepts the loosely formatted timestamps the remote store emits
func (s *Session) UnmarshalJSON(data []byte) error {
	type sessionAlias Session
	var wire struct {
		sessionAlias
		LastModified string `json:"last_modified"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*s = Session(wire.sessionAlias)
	s.LastModified = parseTimestamp(wire.LastModified)
	return nil
}
