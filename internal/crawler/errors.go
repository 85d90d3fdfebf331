package crawler

import (
	"errors"
	"fmt"
)

var errNotAbsolute = errors.New("not an absolute url")

// Job-level errors surfaced to API callers.
var (
	ErrDuplicateJobID = errors.New("job id already registered")
	ErrInvalidConfig  = errors.New("invalid job config")
	ErrJobNotFound    = errors.New("job not found")
)

// RequestError wraps transport-level fetch failures: network errors,
// timeouts, and exceeding the redirect cap.
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed for %s: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusError reports a response outside the 2xx range. It is recorded as a
// non-fatal page error and the body is not parsed.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// RateLimitError indicates the limiter could not grant a token, which only
// happens when the limiter is misconfigured or its context is torn down.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limiter: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}
