package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrDecode marks a response the backend accepted but that could not be read.
// It is never transient: the backend has already applied the request.
var ErrDecode = errors.New("decode response")

// Error is an HTTP failure reported by the backend.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Detail)
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// IsTransient reports whether err is worth retrying later: the backend was
// unreachable, timed out, or answered 5xx, 408 or 429. Other 4xx responses are
// business rejections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrDecode) {
		return false
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode >= 500:
			return true
		case apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}

	// Transport failures: refused connection, DNS, deadline exceeded.
	return true
}
