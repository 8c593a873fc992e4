package internal

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const cacheVersion = "1.0"

// CacheManager keeps a local shadow of the reconciled session list and of
// fetched transcripts so the CLI keeps first messages and new-chat markers
// between runs and can show transcripts offline.
type CacheManager struct {
	cacheDir string
}

// CacheMetadata stores metadata about the cache
type CacheMetadata struct {
	BaseURL      string    `json:"base_url" yaml:"base_url"`
	CacheVersion string    `json:"cache_version" yaml:"cache_version"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// SessionIndex represents the YAML index of all sessions
type SessionIndex struct {
	CurrentSessionID string        `yaml:"current_session_id,omitempty"`
	Sessions         []Session     `yaml:"sessions"`
	Metadata         CacheMetadata `yaml:"metadata"`
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cacheDir string) *CacheManager {
	return &CacheManager{
		cacheDir: cacheDir,
	}
}

// EnsureCacheDir ensures the cache directory exists
func (cm *CacheManager) EnsureCacheDir() error {
	return os.MkdirAll(cm.cacheDir, 0755)
}

// GetCacheDir returns the cache directory path
func (cm *CacheManager) GetCacheDir() string {
	return cm.cacheDir
}

// GetIndexPath returns the path to the session index YAML file
func (cm *CacheManager) GetIndexPath() string {
	return filepath.Join(cm.cacheDir, "sessions.yaml")
}

// GetTranscriptPath returns the path to a session's transcript file.
// The id is escaped so blob names with slashes stay inside the cache dir.
func (cm *CacheManager) GetTranscriptPath(sessionID string) string {
	return filepath.Join(cm.cacheDir, fmt.Sprintf("session_%s.json", url.PathEscape(sessionID)))
}

// IsCacheValid checks whether the cached index belongs to baseURL
func (cm *CacheManager) IsCacheValid(baseURL string) (bool, error) {
	if _, err := os.Stat(cm.GetIndexPath()); os.IsNotExist(err) {
		return false, nil
	}

	index, err := cm.LoadIndex()
	if err != nil {
		return false, nil
	}

	return index.Metadata.BaseURL == baseURL && index.Metadata.CacheVersion == cacheVersion, nil
}

// LoadIndex loads the session index
func (cm *CacheManager) LoadIndex() (*SessionIndex, error) {
	data, err := os.ReadFile(cm.GetIndexPath())
	if err != nil {
		return nil, err
	}

	var index SessionIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, &ParseError{Source: "cache", Key: cm.GetIndexPath(), Err: err}
	}

	return &index, nil
}

// SaveIndex saves the session index
func (cm *CacheManager) SaveIndex(index *SessionIndex) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := yaml.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	return os.WriteFile(cm.GetIndexPath(), data, 0644)
}

// LoadSessions returns the cached sessions for baseURL, or nil when the
// cache is missing or belongs to another backend
func (cm *CacheManager) LoadSessions(baseURL string) ([]Session, string) {
	valid, _ := cm.IsCacheValid(baseURL)
	if !valid {
		return nil, ""
	}
	index, err := cm.LoadIndex()
	if err != nil {
		LogDebug("Ignoring unreadable session cache: %v", err)
		return nil, ""
	}
	return index.Sessions, index.CurrentSessionID
}

// SaveSessions replaces the cached session list for baseURL
func (cm *CacheManager) SaveSessions(sessions []Session, currentID, baseURL string) error {
	now := time.Now()
	index := &SessionIndex{
		CurrentSessionID: currentID,
		Sessions:         sessions,
		Metadata: CacheMetadata{
			BaseURL:      baseURL,
			CacheVersion: cacheVersion,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}

	if existing, err := cm.LoadIndex(); err == nil && existing.Metadata.BaseURL == baseURL {
		index.Metadata.CreatedAt = existing.Metadata.CreatedAt
	}
	if index.Sessions == nil {
		index.Sessions = []Session{}
	}

	return cm.SaveIndex(index)
}

// SaveTranscript saves a single transcript to its cache file
func (cm *CacheManager) SaveTranscript(t *Transcript) error {
	if err := cm.EnsureCacheDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	return os.WriteFile(cm.GetTranscriptPath(t.Session.Key()), data, 0644)
}

// LoadTranscript loads a single transcript from its cache file
func (cm *CacheManager) LoadTranscript(key string) (*Transcript, error) {
	data, err := os.ReadFile(cm.GetTranscriptPath(key))
	if err != nil {
		return nil, err
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, &ParseError{Source: "cache", Key: key, Err: err}
	}

	return &t, nil
}

// RemoveTranscript drops a cached transcript; a missing file is not an error
func (cm *CacheManager) RemoveTranscript(key string) error {
	if err := os.Remove(cm.GetTranscriptPath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearCache clears the cache
func (cm *CacheManager) ClearCache() error {
	index, err := cm.LoadIndex()
	if err == nil {
		for _, s := range index.Sessions {
			_ = cm.RemoveTranscript(s.Key())
		}
	}

	if err := os.Remove(cm.GetIndexPath()); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
