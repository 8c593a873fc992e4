package internal

import (
	"strings"
	"time"
)

// ChatRequest is the body of POST {chat}
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the assistant reply
type ChatResponse struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// SessionList is the body of GET {chatSessions}
type SessionList struct {
	Sessions []Session `json:"sessions"`
}

// HistoryEntry is one turn in a stored session history
type HistoryEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SessionHistory is the body of GET {chatSessions}/{blobName}
type SessionHistory struct {
	SessionID   string         `json:"session_id"`
	ChatHistory []HistoryEntry `json:"chat_history"`
}

// CreateSessionRequest is the body of POST {sessions}/new
type CreateSessionRequest struct {
	SessionName string `json:"session_name,omitempty"`
}

// SwitchSessionRequest is the body of POST {sessions}/switch
type SwitchSessionRequest struct {
	SessionID string `json:"session_id"`
}

// SessionResult is the common {success, session_id, message} reply
type SessionResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// CurrentSession is the body of GET {sessions}/current
type CurrentSession struct {
	SessionID    string `json:"session_id"`
	SessionName  string `json:"session_name,omitempty"`
	MessageCount int    `json:"message_count,omitempty"`
}

// DeleteResult is the per-session reply of DELETE {chatSessions}/{blobName}
type DeleteResult struct {
	BlobName string `json:"blob_name,omitempty"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
}

// BulkDeleteResult aggregates a delete-all fan-out
type BulkDeleteResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Results []DeleteResult `json:"results,omitempty"`
}

// HealthStatus is the body of GET /health
type HealthStatus struct {
	Status           string `json:"status"`
	AgentInitialized bool   `json:"agent_initialized"`
}

// Healthy reports whether the backend declared itself healthy
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses the timestamp formats seen from the backend. Naive
// timestamps are read as UTC. Unparsable input yields the zero time.
func parseTimestamp(ts string) time.Time {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}
