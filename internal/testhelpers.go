package internal

import (
	"time"
)

// CreateTestSession creates a test session with sample data
func CreateTestSession(id string) Session {
	return Session{
		SessionID:        id,
		BlobName:         id + ".json",
		LastModified:     time.Date(2025, 9, 16, 11, 11, 0, 0, time.UTC),
		FirstUserMessage: "Hello, how are you?",
	}
}

// CreateTestMessages creates a user/assistant exchange for sessionID
func CreateTestMessages(sessionID string) []Message {
	base := time.Date(2025, 9, 16, 11, 11, 0, 0, time.UTC)
	return []Message{
		{
			ID:        historyMessageID(sessionID, 0),
			Content:   "Hello, how are you?",
			Sender:    SenderUser,
			Timestamp: base,
		},
		{
			ID:        historyMessageID(sessionID, 1),
			Content:   "I'm doing **well**, thank you!",
			Sender:    SenderAssistant,
			Timestamp: base.Add(time.Minute),
			Metadata:  Metadata{"Userstory": BoolValue(true), "score": NumberValue(3)},
		},
	}
}

// CreateTestTranscript creates a test transcript with sample data
func CreateTestTranscript(id string) *Transcript {
	return &Transcript{
		Session:  CreateTestSession(id),
		Messages: CreateTestMessages(id),
	}
}

// CreateTestTranscriptWithMessages creates a test transcript with custom messages
func CreateTestTranscriptWithMessages(id string, messages []Message) *Transcript {
	return &Transcript{
		Session:  CreateTestSession(id),
		Messages: messages,
	}
}
