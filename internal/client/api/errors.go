package api

import (
	"context"
	"errors"
	"fmt"
)

// Терминальные ошибки аутентификации. Никогда не повторяются.
var (
	// ErrAuthRequired означает ответ 401: сессия истекла или отсутствует.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAccessDenied означает ответ 403: недостаточно прав.
	ErrAccessDenied = errors.New("access denied")
)

// HTTPError represents a non-2xx response other than 401/403.
type HTTPError struct {
	Status     string
	Body       string
	StatusCode int
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	if e.Status != "" {
		return fmt.Sprintf("HTTP %s", e.Status)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// NetworkError represents a transport-level failure: DNS, refused connection, timeout.
type NetworkError struct {
	Err    error
	Method string
	URL    string
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError means a 2xx response whose body is not the expected JSON.
type ParseError struct {
	Err  error
	Body string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is a terminal authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrAccessDenied)
}

// IsRetryable reports whether the Executor retries err.
// Everything except auth failures, parse errors and context cancellation is retried.
func IsRetryable(err error) bool {
	if err == nil || IsAuthError(err) {
		return false
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return !errors.Is(err, context.Canceled)
	}
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}
