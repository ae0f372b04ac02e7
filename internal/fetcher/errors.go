package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorises a failed fetch for diagnostics.
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeClient     ErrorType = "client"
	ErrorTypeValidation ErrorType = "validation"
)

// FetchError carries a classified failure from the scanner client. The retry
// layer treats every fetch error the same; the classification only feeds
// failure reasons and logs.
type FetchError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

func classifyStatus(status int) *FetchError {
	switch {
	case status == http.StatusTooManyRequests:
		return &FetchError{Type: ErrorTypeRateLimit, StatusCode: status, Message: "rate limit exceeded"}
	case status >= 500:
		return &FetchError{Type: ErrorTypeServer, StatusCode: status, Message: "scanner returned an error"}
	default:
		return &FetchError{Type: ErrorTypeClient, StatusCode: status, Message: "scanner rejected the request"}
	}
}

func classifyTransport(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Type: ErrorTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &FetchError{Type: ErrorTypeNetwork, Message: "request failed", Cause: err}
}
