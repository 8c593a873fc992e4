package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

const createClientKVSQL = `
CREATE TABLE IF NOT EXISTS clientKV (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at INTEGER NOT NULL DEFAULT 0
)`

// CreateInMemoryDB creates an in-memory SQLite database with the clientKV table
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// every new connection would get its own empty :memory: database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createClientKVSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to create clientKV table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateTestDB creates a test database holding a theme preference, a chat
// backup and a NULL row
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	rows := []struct {
		key   string
		value interface{}
	}{
		{key: "theme-preference", value: "false"},
		{
			key:   "jonas-ai-chat-backup",
			value: `{"messages":[{"id":"1","content":"Hello","sender":"user","timestamp":"2025-09-16T11:11:00Z"}],"timestamp":"2025-09-16T11:12:00Z"}`,
		},
		{key: "empty-value", value: nil},
	}

	stmt, err := db.Prepare("INSERT INTO clientKV (key, value) VALUES (?, ?)")
	if err != nil {
		t.Fatalf("Failed to prepare insert statement: %v", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.key, row.value); err != nil {
			t.Fatalf("Failed to insert %s: %v", row.key, err)
		}
	}

	return db
}
