package internal

import (
	"encoding/json"
	"errors"
	"sync"
)

// ThemeKey is the storage key holding the dark-theme preference
const ThemeKey = "theme-preference"

// DefaultDarkTheme is used when no valid preference is stored
const DefaultDarkTheme = true

// ThemeStore holds the dark/light flag and notifies subscribers on change.
// Persistence failures are logged and never surfaced.
type ThemeStore struct {
	mu          sync.Mutex
	store       KeyValueStore
	dark        bool
	nextID      int
	subscribers map[int]func(bool)
}

// NewThemeStore reads the initial value from store
func NewThemeStore(store KeyValueStore) *ThemeStore {
	return &ThemeStore{
		store:       store,
		dark:        loadThemePreference(store),
		subscribers: make(map[int]func(bool)),
	}
}

func loadThemePreference(store KeyValueStore) bool {
	if store == nil {
		return DefaultDarkTheme
	}
	raw, err := store.Get(ThemeKey)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			LogWarn("Error reading theme preference: %v", err)
		}
		return DefaultDarkTheme
	}
	var dark bool
	if err := json.Unmarshal([]byte(raw), &dark); err != nil {
		LogWarn("Ignoring unparsable theme preference %q: %v", raw, err)
		return DefaultDarkTheme
	}
	return dark
}

// IsDark returns the current value
func (t *ThemeStore) IsDark() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dark
}

// Set stores a new value, notifies subscribers and persists it
func (t *ThemeStore) Set(dark bool) {
	t.mu.Lock()
	t.dark = dark
	subs := make([]func(bool), 0, len(t.subscribers))
	for _, fn := range t.subscribers {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(dark)
	}
	t.persist(dark)
}

// Toggle flips between dark and light
func (t *ThemeStore) Toggle() {
	t.mu.Lock()
	next := !t.dark
	t.mu.Unlock()
	t.Set(next)
}

// Subscribe calls fn with the current value and on every later change.
// The returned function removes the subscription.
func (t *ThemeStore) Subscribe(fn func(bool)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subscribers[id] = fn
	current := t.dark
	t.mu.Unlock()

	fn(current)

	return func() {
		t.mu.Lock()
		delete(t.subscribers, id)
		t.mu.Unlock()
	}
}

// Name returns "dark" or "light"
func (t *ThemeStore) Name() string {
	if t.IsDark() {
		return "dark"
	}
	return "light"
}

func (t *ThemeStore) persist(dark bool) {
	if t.store == nil {
		return
	}
	data, _ := json.Marshal(dark)
	if err := t.store.Set(ThemeKey, string(data)); err != nil {
		LogWarn("Error saving theme preference: %v", err)
	}
}
