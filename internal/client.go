package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds every API call
const DefaultTimeout = 180 * time.Second

// Endpoints holds the request paths relative to the base URL
type Endpoints struct {
	Chat         string `yaml:"chat"`
	ChatSessions string `yaml:"chat_sessions"`
	Sessions     string `yaml:"sessions"`
	SaveChat     string `yaml:"save_chat"`
	Health       string `yaml:"health"`
}

// DefaultEndpoints returns the paths the backend serves
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Chat:         "/api/chat",
		ChatSessions: "/api/chat-sessions",
		Sessions:     "/api/sessions",
		SaveChat:     "/api/save-chat",
		Health:       "/health",
	}
}

// ClientConfig configures a Client
type ClientConfig struct {
	BaseURL    string
	Endpoints  Endpoints
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client wraps the remote chat and session endpoints. Transport failures and
// non-2xx answers are returned as *APIError, a 2xx body that does not decode
// as *ParseError.
type Client struct {
	baseURL    string
	endpoints  Endpoints
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	// copy so a shared client such as http.DefaultClient keeps its timeout
	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		httpClient = &c
	}
	httpClient.Timeout = timeout

	endpoints := cfg.Endpoints
	defaults := DefaultEndpoints()
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

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		endpoints:  endpoints,
		httpClient: httpClient,
	}
}

// BaseURL returns the configured backend root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendMessage posts a user query and returns the assistant reply
func (c *Client) SendMessage(ctx context.Context, query string) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, c.url(c.endpoints.Chat), ChatRequest{Query: query}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSessions returns the remote session list
func (c *Client) ListSessions(ctx context.Context) (*SessionList, error) {
	var list SessionList
	if err := c.do(ctx, http.MethodGet, c.url(c.endpoints.ChatSessions), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetSession loads one session's history by blob name
func (c *Client) GetSession(ctx context.Context, blobName string) (*SessionHistory, error) {
	LogDebug("Getting chat session with blob name: %s", blobName)
	var history SessionHistory
	if err := c.do(ctx, http.MethodGet, c.url(c.endpoints.ChatSessions, blobName), nil, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// DeleteSession deletes one session by blob name
func (c *Client) DeleteSession(ctx context.Context, blobName string) (*DeleteResult, error) {
	LogDebug("Deleting chat session with blob name: %s", blobName)
	var body struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodDelete, c.url(c.endpoints.ChatSessions, blobName), nil, &body); err != nil {
		return nil, err
	}
	result := &DeleteResult{BlobName: blobName, Success: true, Message: body.Message}
	if body.Success != nil {
		result.Success = *body.Success
	}
	return result, nil
}

// CreateSession asks the backend for a new session. An empty name lets the
// backend generate one.
func (c *Client) CreateSession(ctx context.Context, name string) (*SessionResult, error) {
	LogDebug("Creating new session with name: %q", name)
	var result SessionResult
	if err := c.do(ctx, http.MethodPost, c.url(c.endpoints.Sessions, "new"), CreateSessionRequest{SessionName: name}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SwitchSession makes sessionID the backend's active session
func (c *Client) SwitchSession(ctx context.Context, sessionID string) (*SessionResult, error) {
	LogDebug("Switching to session: %s", sessionID)
	var result SessionResult
	if err := c.do(ctx, http.MethodPost, c.url(c.endpoints.Sessions, "switch"), SwitchSessionRequest{SessionID: sessionID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CurrentSession returns the backend's active session
func (c *Client) CurrentSession(ctx context.Context) (*CurrentSession, error) {
	var current CurrentSession
	if err := c.do(ctx, http.MethodGet, c.url(c.endpoints.Sessions, "current"), nil, &current); err != nil {
		return nil, err
	}
	return &current, nil
}

// SaveChat persists the backend's active session
func (c *Client) SaveChat(ctx context.Context) (*SessionResult, error) {
	var result SessionResult
	if err := c.do(ctx, http.MethodPost, c.url(c.endpoints.SaveChat), struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteAllSessions lists every session and deletes them concurrently.
// Sessions that are already gone (404) count as deleted.
func (c *Client) DeleteAllSessions(ctx context.Context) (*BulkDeleteResult, error) {
	list, err := c.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(list.Sessions) == 0 {
		return &BulkDeleteResult{Success: true, Message: "No sessions to delete"}, nil
	}

	results := make([]DeleteResult, len(list.Sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, session := range list.Sessions {
		i, key := i, session.Key()
		g.Go(func() error {
			res, err := c.DeleteSession(gctx, key)
			if err != nil {
				if apiErr, ok := AsAPIError(err); ok && apiErr.IsNotFound() {
					results[i] = DeleteResult{BlobName: key, Success: true, Message: "already deleted"}
					return nil
				}
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &BulkDeleteResult{
		Success: true,
		Message: fmt.Sprintf("Deleted %d session(s)", len(results)),
		Results: results,
	}, nil
}

// Health queries the backend health endpoint
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.do(ctx, http.MethodGet, c.url(c.endpoints.Health), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// url joins the base URL, an endpoint path and escaped path segments
func (c *Client) url(path string, segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString(path)
	for _, seg := range segments {
		b.WriteString("/")
		b.WriteString(url.PathEscape(seg))
	}
	return b.String()
}

func (c *Client) do(ctx context.Context, method, target string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return NewAPIError(0, "", target, nil, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := NewAPIError(0, "", target, nil, err)
		apiErr.Timeout = isTimeout(err)
		LogDebug("API error: %s %s: %v", method, target, err)
		return apiErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := NewAPIError(0, "", target, nil, fmt.Errorf("failed to read response: %w", err))
		apiErr.Timeout = isTimeout(err)
		return apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusText := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
		apiErr := NewAPIError(resp.StatusCode, statusText, target, data, nil)
		LogDebug("API error: %s %s: %d %s", method, target, resp.StatusCode, apiErr.Detail)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ParseError{Source: "response", Key: target, Err: err}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
