// Package mockserver provides an in-memory stand-in for the Jonas backend,
// used by integration tests and the serve-mock command.
package mockserver

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iksnae/jonas-chat/internal"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Config configures a Server. Zero values pick defaults.
type Config struct {
	Endpoints internal.Endpoints
	Latency   time.Duration
	Reply     func(query string) internal.ChatResponse
	Now       func() time.Time
}

type session struct {
	id       string
	modified time.Time
	history  []internal.HistoryEntry
	saved    bool
}

func (s *session) blobName() string {
	return s.id + ".json"
}

// listed reports whether the backend would return the session from its list
func (s *session) listed() bool {
	return s.saved || len(s.history) > 0
}

// Server holds the fake sessions. It is safe for concurrent use.
type Server struct {
	endpoints internal.Endpoints
	latency   time.Duration
	reply     func(query string) internal.ChatResponse
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	current  string
}

// New creates an empty server
func New(cfg Config) *Server {
	endpoints := cfg.Endpoints
	defaults := internal.DefaultEndpoints()
	if endpoints.Chat == "" {
		endpoints.Chat = defaults.Chat
	}
	if endpoints.ChatSessions == "" {
		endpoints.ChatSessions = defaults.ChatSessions
	}
	if endpoints.Sessions == "" {
		endpoints.Sessions = defaults.Sessions
	}
	if endpoints.SaveChat == "" {
		endpoints.SaveChat = defaults.SaveChat
	}
	if endpoints.Health == "" {
		endpoints.Health = defaults.Health
	}
	if cfg.Reply == nil {
		cfg.Reply = EchoReply
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Server{
		endpoints: endpoints,
		latency:   cfg.Latency,
		reply:     cfg.Reply,
		now:       cfg.Now,
		sessions:  make(map[string]*session),
	}
}

// EchoReply answers with the query wrapped in HTML, flagging the content
// types it mentions
func EchoReply(query string) internal.ChatResponse {
	lower := strings.ToLower(query)
	metadata := internal.Metadata{}
	if strings.Contains(lower, "user story") {
		metadata["Userstory"] = internal.BoolValue(true)
	}
	if strings.Contains(lower, "test case") {
		metadata["Testcase"] = internal.BoolValue(true)
	}
	if strings.Contains(lower, "task") {
		metadata["Devtask"] = internal.BoolValue(true)
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	return internal.ChatResponse{
		Content:  fmt.Sprintf("<p>You said: <strong>%s</strong></p>", html.EscapeString(query)),
		Metadata: metadata,
	}
}

// Seed adds a saved session with history, for tests and demos
func (s *Server) Seed(id string, modified time.Time, history ...internal.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{id: id, modified: modified, history: history, saved: true}
}

// Current returns the active session id
func (s *Server) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SessionCount returns the number of stored sessions, listed or not
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RegisterRoutes registers routes with the echo server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.POST(s.endpoints.Chat, s.Chat)

	e.GET(s.endpoints.ChatSessions, s.ListSessions)
	e.GET(s.endpoints.ChatSessions+"/:blob", s.GetSession)
	e.DELETE(s.endpoints.ChatSessions+"/:blob", s.DeleteSession)

	e.POST(s.endpoints.Sessions+"/new", s.NewSession)
	e.POST(s.endpoints.Sessions+"/switch", s.SwitchSession)
	e.GET(s.endpoints.Sessions+"/current", s.CurrentSession)
	e.POST(s.endpoints.SaveChat, s.SaveChat)

	e.GET(s.endpoints.Health, s.Health)
}

// NewEcho returns an echo instance serving s
func NewEcho(s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger)
	s.RegisterRoutes(e)
	return e
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		internal.LogDebug("mock %s %s -> %d (%s)", c.Request().Method, c.Request().URL.Path, c.Response().Status, time.Since(start))
		return err
	}
}

// Serve runs the server on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, s *Server) error {
	e := NewEcho(s)

	errc := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down mock server: %w", err)
	}
	return nil
}

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"detail": msg})
}

// wait simulates backend latency
func (s *Server) wait(c echo.Context) error {
	if s.latency <= 0 {
		return nil
	}
	select {
	case <-time.After(s.latency):
		return nil
	case <-c.Request().Context().Done():
		return c.Request().Context().Err()
	}
}

// newSessionLocked creates and activates a session named like the backend does
func (s *Server) newSessionLocked(name string) *session {
	now := s.now()
	id := name
	if id == "" {
		id = "chat_session_" + now.Format("20060102_150405")
	}
	base := id
	for n := 2; s.sessions[id] != nil; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	sess := &session{id: id, modified: now}
	s.sessions[id] = sess
	s.current = id
	return sess
}

func (s *Server) lookupLocked(blob string) *session {
	id := strings.TrimSuffix(blob, ".json")
	return s.sessions[id]
}

// Chat answers a query in the active session.
// POST {chat}
func (s *Server) Chat(c echo.Context) error {
	var req internal.ChatRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		return detail(c, http.StatusBadRequest, "query is required")
	}
	if err := s.wait(c); err != nil {
		return err
	}

	resp := s.reply(req.Query)

	s.mu.Lock()
	sess := s.sessions[s.current]
	if sess == nil {
		sess = s.newSessionLocked("")
	}
	now := s.now()
	sess.history = append(sess.history,
		internal.HistoryEntry{Role: "AuthorRole.USER", Content: req.Query, Timestamp: now.Format(time.RFC3339)},
		internal.HistoryEntry{Role: "AuthorRole.ASSISTANT", Content: resp.Content, Timestamp: now.Format(time.RFC3339)},
	)
	sess.modified = now
	s.mu.Unlock()

	return c.JSON(http.StatusOK, resp)
}

type sessionEntry struct {
	SessionID    string `json:"session_id"`
	BlobName     string `json:"blob_name"`
	LastModified string `json:"last_modified"`
}

// ListSessions lists the saved sessions, newest first.
// GET {chatSessions}
func (s *Server) ListSessions(c echo.Context) error {
	s.mu.Lock()
	listed := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.listed() {
			listed = append(listed, sess)
		}
	}
	sort.Slice(listed, func(i, j int) bool {
		return listed[i].modified.After(listed[j].modified)
	})
	entries := make([]sessionEntry, len(listed))
	for i, sess := range listed {
		entries[i] = sessionEntry{
			SessionID:    sess.id,
			BlobName:     sess.blobName(),
			LastModified: sess.modified.UTC().Format("2006-01-02T15:04:05.000000"),
		}
	}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": entries})
}

func blobParam(c echo.Context) string {
	blob := c.Param("blob")
	if unescaped, err := url.PathUnescape(blob); err == nil {
		return unescaped
	}
	return blob
}

// GetSession returns one session's history.
// GET {chatSessions}/:blob
func (s *Server) GetSession(c echo.Context) error {
	blob := blobParam(c)

	s.mu.Lock()
	sess := s.lookupLocked(blob)
	var history internal.SessionHistory
	if sess != nil {
		history.SessionID = sess.id
		history.ChatHistory = append([]internal.HistoryEntry{}, sess.history...)
	}
	s.mu.Unlock()

	if sess == nil {
		return detail(c, http.StatusNotFound, "Session not found: "+blob)
	}
	return c.JSON(http.StatusOK, history)
}

// DeleteSession deletes one session.
// DELETE {chatSessions}/:blob
func (s *Server) DeleteSession(c echo.Context) error {
	blob := blobParam(c)

	s.mu.Lock()
	sess := s.lookupLocked(blob)
	if sess != nil {
		delete(s.sessions, sess.id)
		if s.current == sess.id {
			s.current = ""
		}
	}
	s.mu.Unlock()

	if sess == nil {
		return detail(c, http.StatusNotFound, "Session not found: "+blob)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Deleted " + blob,
	})
}

// NewSession creates and activates a session.
// POST {sessions}/new
func (s *Server) NewSession(c echo.Context) error {
	var req internal.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	sess := s.newSessionLocked(strings.TrimSpace(req.SessionName))
	s.mu.Unlock()

	return c.JSON(http.StatusOK, internal.SessionResult{
		Success:   true,
		SessionID: sess.id,
		Message:   "Created session " + sess.id,
	})
}

// SwitchSession activates an existing session.
// POST {sessions}/switch
func (s *Server) SwitchSession(c echo.Context) error {
	var req internal.SwitchSessionRequest
	if err := c.Bind(&req); err != nil || req.SessionID == "" {
		return detail(c, http.StatusBadRequest, "session_id is required")
	}
	if err := s.wait(c); err != nil {
		return err
	}

	s.mu.Lock()
	sess := s.lookupLocked(req.SessionID)
	if sess != nil {
		s.current = sess.id
	}
	s.mu.Unlock()

	if sess == nil {
		return c.JSON(http.StatusOK, internal.SessionResult{
			Success: false,
			Message: "Session not found: " + req.SessionID,
		})
	}
	return c.JSON(http.StatusOK, internal.SessionResult{
		Success:   true,
		SessionID: sess.id,
		Message:   "Switched to session " + sess.id,
	})
}

// CurrentSession describes the active session.
// GET {sessions}/current
func (s *Server) CurrentSession(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[s.current]
	if sess == nil {
		return detail(c, http.StatusNotFound, "No active session")
	}
	return c.JSON(http.StatusOK, internal.CurrentSession{
		SessionID:    sess.id,
		SessionName:  sess.id,
		MessageCount: len(sess.history),
	})
}

// SaveChat persists the active session.
// POST {saveChat}
func (s *Server) SaveChat(c echo.Context) error {
	s.mu.Lock()
	sess := s.sessions[s.current]
	if sess != nil {
		sess.saved = true
		sess.modified = s.now()
	}
	s.mu.Unlock()

	if sess == nil {
		return c.JSON(http.StatusOK, internal.SessionResult{Success: false, Message: "No active session"})
	}
	return c.JSON(http.StatusOK, internal.SessionResult{Success: true, SessionID: sess.id, Message: "Chat saved"})
}

// Health returns health status.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, internal.HealthStatus{Status: "healthy", AgentInitialized: true})
}
