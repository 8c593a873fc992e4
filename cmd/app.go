package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/iksnae/jonas-chat/internal"
)

// app holds what every backend-facing command needs
type app struct {
	cfg    *internal.Config
	client *internal.Client
	store  *internal.Storage
	theme  *internal.ThemeStore
	cache  *internal.CacheManager
}

// loadConfig reads the layered config and applies the command-line overrides
func loadConfig() (*internal.Config, error) {
	cfg, err := internal.LoadConfig(configPath, envFile)
	if err != nil {
		return nil, err
	}

	if apiURL != "" {
		cfg.API.BaseURL = strings.TrimSuffix(strings.TrimSpace(apiURL), "/")
	}
	if timeoutArg != "" {
		d, err := internal.ParseTimeout(timeoutArg)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", timeoutArg, err)
		}
		cfg.SetTimeout(d)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
		cfg.CacheDir = ""
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("could not determine a data directory, use --data-dir")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.DataDir, "cache")
	}
	return cfg, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := internal.EnsureDir(cfg.DataDir); err != nil {
		return nil, err
	}
	store, err := internal.OpenStorage(cfg.StateDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	internal.LogDebug("Using backend %s (timeout %s)", cfg.API.BaseURL, cfg.API.Timeout)

	return &app{
		cfg:    cfg,
		client: internal.NewClient(cfg.ClientConfig()),
		store:  store,
		theme:  internal.NewThemeStore(store),
		cache:  internal.NewCacheManager(cfg.CacheDir),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) newController() *internal.Controller {
	return internal.NewController(a.client, internal.ControllerOptions{
		Store:        a.store,
		RefreshDelay: a.cfg.RefreshDelay,
	})
}

// resume loads the session list and reopens the session the last command
// left active, falling back to the most recent one. The backend is pointed
// at the same session so sends land where the transcript shows.
func (a *app) resume(ctx context.Context, ctrl *internal.Controller) error {
	if err := ctrl.Load(ctx); err != nil {
		return err
	}

	cached, cachedID := a.cache.LoadSessions(a.client.BaseURL())
	state := ctrl.Snapshot()
	target, listed := findByID(state.Sessions, cachedID)
	if !listed {
		// the backend made a new chat current when creating it, but lists
		// it only once it has messages
		if cur, ok := findByID(cached, cachedID); ok && cur.IsNew {
			return ctrl.Switch(ctx, cur)
		}
	}
	if listed && !target.MatchesCurrent(state.CurrentSessionID) {
		return ctrl.Switch(ctx, target)
	}
	if state.CurrentSessionID == "" {
		return nil
	}

	res, err := a.client.SwitchSession(ctx, state.CurrentSessionID)
	if err != nil {
		return err
	}
	if !res.Success {
		internal.LogWarn("Backend did not switch to %s: %s", state.CurrentSessionID, res.Message)
	}
	return nil
}

// remember writes the session list and active session to the cache
func (a *app) remember(state internal.State) {
	baseURL := a.client.BaseURL()
	sessions := state.Sessions
	if _, ok := findByID(sessions, state.CurrentSessionID); !ok {
		cached, _ := a.cache.LoadSessions(baseURL)
		if cur, ok := findByID(cached, state.CurrentSessionID); ok {
			sessions = append([]internal.Session{cur}, sessions...)
		}
	}
	if err := a.cache.SaveSessions(sessions, state.CurrentSessionID, baseURL); err != nil {
		internal.LogWarn("Failed to update session cache: %v", err)
	}
}

// sessionList reconciles the server list with the cached one and returns it
// with the active session id. When the backend is unreachable the cached
// list is returned together with the error.
func (a *app) sessionList(ctx context.Context) ([]internal.Session, string, error) {
	baseURL := a.client.BaseURL()
	cached, currentID := a.cache.LoadSessions(baseURL)

	list, err := a.client.ListSessions(ctx)
	if err != nil {
		return cached, currentID, err
	}
	merged := internal.NewReconciler(a.client).Reconcile(ctx, list.Sessions, cached)

	// a just-created chat is not listed until it has messages
	if cur, ok := findByID(cached, currentID); ok && cur.IsNew {
		if _, listed := findByID(merged, currentID); !listed {
			merged = append([]internal.Session{cur}, merged...)
		}
	}
	if _, ok := findByID(merged, currentID); !ok {
		currentID = ""
		if len(merged) > 0 {
			currentID = identity(merged[0])
		}
	}

	if err := a.cache.SaveSessions(merged, currentID, baseURL); err != nil {
		internal.LogWarn("Failed to update session cache: %v", err)
	}
	return merged, currentID, nil
}

// resolveSession picks the session ref names, or the active one when ref is
// empty. listErr is returned only when nothing could be resolved offline.
func (a *app) resolveSession(ctx context.Context, ref string) (internal.Session, error) {
	sessions, currentID, listErr := a.sessionList(ctx)
	if listErr != nil {
		if len(sessions) == 0 {
			return internal.Session{}, fmt.Errorf("failed to list sessions: %w", listErr)
		}
		internal.LogWarn("Backend unreachable, using cached sessions: %v", listErr)
	}

	if ref != "" {
		return findSession(sessions, ref)
	}
	if s, ok := findByID(sessions, currentID); ok {
		return s, nil
	}
	if len(sessions) > 0 {
		return sessions[0], nil
	}
	return internal.Session{}, fmt.Errorf("no sessions found")
}

// fetchTranscript loads a session's messages, caching them for offline use.
// If the backend fails, the cached transcript is used when there is one.
func (a *app) fetchTranscript(ctx context.Context, session internal.Session) (*internal.Transcript, error) {
	history, err := a.client.GetSession(ctx, session.Key())
	if err != nil {
		if apiErr, ok := internal.AsAPIError(err); ok && apiErr.IsNotFound() && session.IsNew {
			return internal.NewTranscript(session, nil), nil
		}
		if cached, cacheErr := a.cache.LoadTranscript(session.Key()); cacheErr == nil {
			internal.LogWarn("Using cached transcript, backend failed: %v", err)
			return cached, nil
		}
		return nil, fmt.Errorf("failed to load session %s: %w", session.Key(), err)
	}

	t := internal.NewTranscript(session, internal.HistoryMessages(history, time.Now()))
	if err := a.cache.SaveTranscript(t); err != nil {
		internal.LogDebug("Failed to cache transcript: %v", err)
	}
	return t, nil
}

func identity(s internal.Session) string {
	if s.SessionID != "" {
		return s.SessionID
	}
	return s.BlobName
}

func findByID(sessions []internal.Session, id string) (internal.Session, bool) {
	if id == "" {
		return internal.Session{}, false
	}
	for _, s := range sessions {
		if s.MatchesCurrent(id) {
			return s, true
		}
	}
	return internal.Session{}, false
}

// findSession resolves a command-line reference: the 1-based position shown
// by `sessions`, a session id or blob name, or a unique title prefix
func findSession(sessions []internal.Session, ref string) (internal.Session, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(sessions) {
			return internal.Session{}, fmt.Errorf("session %d out of range (1-%d)", n, len(sessions))
		}
		return sessions[n-1], nil
	}
	if s, ok := findByID(sessions, ref); ok {
		return s, nil
	}

	var matches []internal.Session
	lower := strings.ToLower(ref)
	for _, s := range sessions {
		if strings.HasPrefix(strings.ToLower(internal.Title(s)), lower) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return internal.Session{}, fmt.Errorf("no session matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return internal.Session{}, fmt.Errorf("%q matches %d sessions, use the number or id", ref, len(matches))
	}
}
