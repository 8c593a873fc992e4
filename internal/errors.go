package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Messages shown to the user for each API failure class.
const (
	MsgConnectivity = "Unable to connect to the server. Please check if the API is running."
	MsgBadRequest   = "Bad request. Please check your input."
	MsgNotFound     = "API endpoint not found."
	MsgServerError  = "Server error. Please try again later."
)

// APIError is the normalized failure returned by every Client operation.
// Status is 0 when the request never produced an HTTP response.
type APIError struct {
	Status     int
	StatusText string
	URL        string
	Message    string
	Body       string
	Detail     string
	Timeout    bool
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether the server answered 404.
func (e *APIError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsServerError reports a 5xx answer: the backend is reachable but degraded.
func (e *APIError) IsServerError() bool {
	return e.Status >= 500 && e.Status < 600
}

// IsTimeout reports a client-side timeout.
func (e *APIError) IsTimeout() bool {
	return e.Timeout
}

// NewAPIError builds an APIError from a status and response body.
func NewAPIError(status int, statusText, url string, body []byte, cause error) *APIError {
	apiErr := &APIError{
		Status:     status,
		StatusText: statusText,
		URL:        url,
		Message:    StatusMessage(status, statusText),
		Body:       string(body),
		Detail:     extractDetail(body),
		Err:        cause,
	}
	return apiErr
}

// StatusMessage maps an HTTP status to the human-readable message.
func StatusMessage(status int, statusText string) string {
	switch status {
	case 0:
		return MsgConnectivity
	case http.StatusBadRequest:
		return MsgBadRequest
	case http.StatusNotFound:
		return MsgNotFound
	case http.StatusInternalServerError:
		return MsgServerError
	default:
		if statusText == "" {
			statusText = http.StatusText(status)
		}
		return fmt.Sprintf("Server Error: %d - %s", status, statusText)
	}
}

// extractDetail pulls `detail`, then `error.message`, falling back to the raw body.
func extractDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return string(body)
	}
	if len(payload.Detail) > 0 && string(payload.Detail) != "null" {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		return string(payload.Detail)
	}
	if payload.Error.Message != "" {
		return payload.Error.Message
	}
	return string(body)
}

// AsAPIError unwraps err into an *APIError when possible.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StorageError represents errors accessing durable client storage
type StorageError struct {
	Path string
	Op   string // "open", "get", "set", "migrate"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ParseError represents errors parsing data
type ParseError struct {
	Source string // "history", "backup", "config"
	Key    string // storage key, session id or file path
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
