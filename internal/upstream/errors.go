package upstream

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrThrottled indicates the upstream API answered 429.
	ErrThrottled = errors.New("upstream throttled")
	// ErrNotFound indicates the upstream API has no such record.
	ErrNotFound = errors.New("not found")
	// ErrTimeout indicates the call exceeded its deadline.
	ErrTimeout = errors.New("upstream timeout")
	// ErrNoPrice indicates a detail record carried no price.
	ErrNoPrice = errors.New("no detailed price")
)

// Error is a classified failure from an upstream call. Err is one of the
// sentinel errors above, or nil for a generic failure.
type Error struct {
	Endpoint   string
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	kind := "upstream failure"
	if e.Err != nil {
		kind = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (status %d): %s", e.Endpoint, kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Endpoint, kind, e.Message)
}

// Unwrap supports errors.Is against the sentinel errors.
func (e *Error) Unwrap() error {
	return e.Err
}

// RetryAfterHint returns the upstream Retry-After value if err carries one.
func RetryAfterHint(err error) time.Duration {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.RetryAfter
	}
	return 0
}

// Outcome maps an error to a short label for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrThrottled):
		return "throttled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
