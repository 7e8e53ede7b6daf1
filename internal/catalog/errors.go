package catalog

import (
	"errors"
	"fmt"

	"github.com/benvon/catalog-proxy/internal/validation"
)

// ValidationError reports malformed or missing input. No upstream call was made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// RateLimitedError reports that the local governor denied the request.
type RateLimitedError struct {
	RetryAfter int
	Limit      int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit of %d requests per window exceeded, retry after %ds", e.Limit, e.RetryAfter)
}

func asValidationError(err error) error {
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Message: fe.Message}
	}
	return &ValidationError{Message: err.Error()}
}
