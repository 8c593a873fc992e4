package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// SessionListJSON is a GET /api/chat-sessions body covering both
// auto-generated naming schemes and a session without a blob name
const SessionListJSON = `{"sessions":[
	{"session_id":"Chat_09_16_11_11","blob_name":"Chat_09_16_11_11.json","last_modified":"2025-09-16T11:11:00"},
	{"session_id":"chat_session_20250915_090000","blob_name":"chat_session_20250915_090000.json","last_modified":"2025-09-15T09:00:00.123456"},
	{"session_id":"planning","last_modified":"2025-09-14 08:00:00","title":"Sprint planning"}
]}`

// SessionHistoryJSON is a GET /api/chat-sessions/{blob} body using the
// agent framework role spellings
const SessionHistoryJSON = `{"session_id":"Chat_09_16_11_11","chat_history":[
	{"role":"AuthorRole.SYSTEM","content":"You are Jonas."},
	{"role":"AuthorRole.USER","content":"Create user story for login feature","timestamp":"2025-09-16T11:11:00"},
	{"role":"AuthorRole.ASSISTANT","content":"<h2>Login</h2><p>As a <strong>user</strong> I want to log in.</p>"},
	{"role":"AuthorRole.TOOL","content":"{}"}
]}`

// CreateSQLiteFixture creates a client state database file with sample data
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(createClientKVSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	insertSQL := "INSERT INTO clientKV (key, value) VALUES (?, ?)"
	if _, err := db.Exec(insertSQL, "theme-preference", "true"); err != nil {
		t.Fatalf("Failed to insert theme preference: %v", err)
	}
}

// CreateConfigFixture writes a config.yaml into dir and returns its path
func CreateConfigFixture(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create config directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

// CreateEnvFixture writes a .env file into dir and returns its path
func CreateEnvFixture(t *testing.T, dir string, vars map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, ".env")
	var content []byte
	for k, v := range vars {
		content = append(content, []byte(k+"="+v+"\n")...)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write .env file: %v", err)
	}
	return path
}
