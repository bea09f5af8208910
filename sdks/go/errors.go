package opsdeck

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the request lacks a valid token or
	// the credentials are wrong.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the authenticated user's role does not
	// permit the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited is returned when the server rejects the request for
	// exceeding a rate limit.
	ErrRateLimited = errors.New("rate limited")

	// ErrServerUnreachable is returned when the OpsDeck server cannot be
	// contacted.
	ErrServerUnreachable = errors.New("server unreachable")
)

// APIError is the base error type for non-2xx responses from the server.
type APIError struct {
	// StatusCode is the HTTP status returned by the server.
	StatusCode int

	// Message is the server's error message.
	Message string
}

// Error returns the error message.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("opsdeck: server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("opsdeck: server returned %d", e.StatusCode)
}

// NotFoundError is returned when the requested record does not exist.
type NotFoundError struct {
	// Message is the server's error message.
	Message string
}

// Error returns a human-readable description of the missing record.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("opsdeck: %s", e.Message)
	}
	return "opsdeck: not found"
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrNotFound).
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// UnauthorizedError is returned for requests rejected with HTTP 401.
type UnauthorizedError struct {
	// Message is the server's error message.
	Message string
}

// Error returns a human-readable description of the rejection.
func (e *UnauthorizedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("opsdeck: %s", e.Message)
	}
	return "opsdeck: unauthorized"
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrUnauthorized).
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// ForbiddenError is returned for requests rejected with HTTP 403.
type ForbiddenError struct {
	// Message is the server's error message.
	Message string
}

// Error returns a human-readable description of the rejection.
func (e *ForbiddenError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("opsdeck: %s", e.Message)
	}
	return "opsdeck: forbidden"
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrForbidden).
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// RateLimitedError is returned when the server rejects a request with HTTP
// 429. Callers should back off for at least RetryAfter before retrying.
type RateLimitedError struct {
	// RetryAfter is the wait the server suggested via the Retry-After
	// header. Zero when the header was absent or unparseable.
	RetryAfter time.Duration

	// Message is the server's error message.
	Message string
}

// Error returns a human-readable description of the rate limit rejection.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("opsdeck: rate limited, retry after %s", e.RetryAfter)
	}
	return "opsdeck: rate limited"
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrRateLimited).
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// ServerUnreachableError is returned when the OpsDeck server cannot be
// contacted.
type ServerUnreachableError struct {
	// Cause is the underlying error that made the server unreachable.
	Cause error
}

// Error returns a human-readable description of the connection failure.
func (e *ServerUnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("opsdeck: server unreachable: %v", e.Cause)
	}
	return "opsdeck: server unreachable"
}

// Unwrap returns the underlying error cause.
func (e *ServerUnreachableError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrServerUnreachable).
func (e *ServerUnreachableError) Is(target error) bool {
	return target == ErrServerUnreachable
}
