package internal

import "time"

// Transcript is a session together with its loaded messages
type Transcript struct {
	Session  Session   `json:"session" yaml:"session"`
	Messages []Message `json:"messages" yaml:"messages"`
}

// NewTranscript builds a transcript, normalizing assistant content to markup
func NewTranscript(session Session, messages []Message) *Transcript {
	return &Transcript{
		Session:  session,
		Messages: NormalizeTranscript(messages),
	}
}

// Title returns the transcript's display title
func (t *Transcript) Title() string {
	return Title(t.Session)
}

// UpdatedAt returns the newest message time, falling back to the session's
// last-modified time
func (t *Transcript) UpdatedAt() time.Time {
	latest := t.Session.LastModified
	for _, msg := range t.Messages {
		if msg.Timestamp.After(latest) {
			latest = msg.Timestamp
		}
	}
	return latest
}
