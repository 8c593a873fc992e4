package internal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Role is the author of a stored history entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	RoleUnknown   Role = ""
)

// ParseRole accepts plain role names and the "AuthorRole.USER" spelling the
// backend's agent framework writes, case-insensitively.
func ParseRole(s string) Role {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "authorrole.")
	switch s {
	case "user", "human":
		return RoleUser
	case "assistant", "ai":
		return RoleAssistant
	case "system":
		return RoleSystem
	case "tool", "function":
		return RoleTool
	default:
		return RoleUnknown
	}
}

var jsonFencePattern = regexp.MustCompile("(?s)^```json\\s*\\n(.*?)\\n?```$")

// unwrapJSONContent returns the `content` field of a ```json fenced reply,
// or the input unchanged when it is not one.
func unwrapJSONContent(content string) string {
	trimmed := strings.TrimSpace(content)
	m := jsonFencePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return content
	}
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		LogDebug("Failed to parse fenced JSON reply: %v", err)
		return content
	}
	if payload.Content == "" {
		return content
	}
	return payload.Content
}

// HistoryMessages converts a stored session history into transcript
// messages. System and tool entries are dropped along with blank entries;
// entries without a timestamp are stamped with now.
func HistoryMessages(history *SessionHistory, now time.Time) []Message {
	if history == nil {
		return nil
	}

	messages := make([]Message, 0, len(history.ChatHistory))
	for i, entry := range history.ChatHistory {
		var sender Sender
		content := entry.Content

		switch ParseRole(entry.Role) {
		case RoleSystem, RoleTool:
			continue
		case RoleUser:
			sender = SenderUser
		default:
			sender = SenderAssistant
			content = unwrapJSONContent(content)
		}

		if strings.TrimSpace(content) == "" {
			continue
		}

		ts := parseTimestamp(entry.Timestamp)
		if ts.IsZero() {
			ts = now
		}

		messages = append(messages, Message{
			ID:        historyMessageID(history.SessionID, i),
			Content:   content,
			Sender:    sender,
			Timestamp: ts,
		})
	}

	LogDebug("Loaded %d messages from chat history of %s", len(messages), history.SessionID)
	return messages
}

// FirstUserMessage returns the trimmed content of the first user entry with
// non-blank content
func FirstUserMessage(history *SessionHistory) (string, bool) {
	if history == nil {
		return "", false
	}
	for _, entry := range history.ChatHistory {
		if ParseRole(entry.Role) != RoleUser {
			continue
		}
		if content := strings.TrimSpace(entry.Content); content != "" {
			return content, true
		}
	}
	return "", false
}

func historyMessageID(sessionID string, index int) string {
	return fmt.Sprintf("msg_%s_%d", sessionID, index)
}
