package internal

import (
	"database/sql"
	"errors"
	"sync"
	"time"
)

// ErrKeyNotFound is returned by Get when the key has never been written
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is durable string storage for client preferences and backups
type KeyValueStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Storage persists key/value pairs in the clientKV table
type Storage struct {
	db   *sql.DB
	path string
}

// NewStorage creates a new Storage instance
func NewStorage(db *sql.DB, path string) *Storage {
	return &Storage{db: db, path: path}
}

// OpenStorage opens the database at path and wraps it
func OpenStorage(path string) (*Storage, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return NewStorage(db, path), nil
}

// Get returns the value stored under key
func (s *Storage) Get(key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM clientKV WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !value.Valid) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", &StorageError{Path: s.path, Op: "get", Err: err}
	}
	return value.String, nil
}

// Set stores value under key, replacing any previous value
func (s *Storage) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO clientKV (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return &StorageError{Path: s.path, Op: "set", Err: err}
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (s *Storage) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM clientKV WHERE key = ?", key); err != nil {
		return &StorageError{Path: s.path, Op: "delete", Err: err}
	}
	return nil
}

// Keys lists stored keys matching a LIKE pattern
func (s *Storage) Keys(pattern string) ([]string, error) {
	pairs, err := s.Entries(pattern)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		keys = append(keys, pair.Key)
	}
	return keys, nil
}

// Entries lists stored pairs matching a LIKE pattern, ordered by key
func (s *Storage) Entries(pattern string) ([]KeyValuePair, error) {
	pairs, err := QueryClientKV(s.db, pattern)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "query", Err: err}
	}
	return pairs, nil
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.path
}

// Close closes the underlying database
func (s *Storage) Close() error {
	return s.db.Close()
}

// MemoryStorage is a process-lifetime KeyValueStore
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStorage creates an empty in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
