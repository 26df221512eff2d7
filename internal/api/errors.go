package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UnauthorizedError is returned for any 401. The client has already invoked
// its unauthorized handler by the time the caller sees it.
type UnauthorizedError struct {
	Path string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("%s: unauthorized", e.Path)
}

// ValidationError rejects a request before it is sent.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ServerError is a non-2xx, non-401 response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// newServerError extracts {"error": "..."} (or "message") from the body,
// falling back to a generic message with the status code.
func newServerError(resp *http.Response) *ServerError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return &ServerError{Status: resp.StatusCode, Message: msg}
		}
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return &ServerError{Status: resp.StatusCode, Message: msg}
		}
	}
	return &ServerError{Status: resp.StatusCode, Message: fmt.Sprintf("Request failed (%d)", resp.StatusCode)}
}

// IsUnauthorized reports whether err came from a 401.
func IsUnauthorized(err error) bool {
	var ue *UnauthorizedError
	return errors.As(err, &ue)
}

// UserMessage returns the text to show an admin for err: the server's own
// message when it sent one, otherwise a generic description.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		se *ServerError
		ve *ValidationError
		ue *UnauthorizedError
		ne *NetworkError
	)
	switch {
	case errors.As(err, &se):
		return se.Message
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &ue):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, context.Canceled):
		return "Request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	case errors.As(err, &ne):
		return "Network error: could not reach the server"
	}
	return "Something went wrong. Please try again."
}
