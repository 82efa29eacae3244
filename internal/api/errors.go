package api

import (
	"fmt"
	"net/http"

	"github.com/pesawallet/pesa/internal/common"
)

// ErrorKind classifies backend errors into the buckets callers act on.
type ErrorKind string

// Error kinds.
const (
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindRateLimit    ErrorKind = "rate_limit"
	KindServer       ErrorKind = "server"
	KindNetwork      ErrorKind = "network"
)

// Error is a failed backend call. Network and server errors are
// retryable; validation errors are not.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend error: %s", e.Message)
}

// Unwrap maps kinds onto the shared sentinels so callers can use
// errors.Is without importing this package's kinds.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindUnauthorized:
		return common.ErrUnauthorized
	case KindRateLimit:
		return common.ErrRateLimit
	case KindNetwork, KindServer:
		return common.ErrBackendDown
	case KindNotFound:
		return common.ErrNotFound
	default:
		return nil
	}
}

// Retryable reports whether retrying the same call may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindServer, KindRateLimit:
		return true
	default:
		return false
	}
}

// kindForStatus maps an HTTP status code to an error kind.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}
