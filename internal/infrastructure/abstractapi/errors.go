package abstractapi

import (
	"errors"
	"fmt"

	"github.com/go-verify-api/internal/domain"
)

// Category is the normalized failure taxonomy for upstream calls.
type Category string

const (
	// CategoryTimeout means the attempt exceeded its deadline.
	CategoryTimeout Category = "timeout"
	// CategoryNetwork covers DNS failures, refused or reset connections.
	CategoryNetwork Category = "network"
	// CategoryOutage is a 5xx response.
	CategoryOutage Category = "outage"
	// CategoryRateLimited is a 429 response.
	CategoryRateLimited Category = "rate_limited"
	// CategoryBadData is a body that is not JSON or lacks required fields.
	CategoryBadData Category = "bad_data"
	// CategoryClient is a definitive 4xx response other than 429.
	CategoryClient Category = "client_error"
	// CategoryConfig means the client cannot call upstream at all, e.g. a missing API key.
	CategoryConfig Category = "config"
)

// Error describes one failed upstream attempt. It never carries the API key
// or the upstream body.
type Error struct {
	Category   Category
	Kind       domain.Kind
	StatusCode int
	Retryable  bool
	Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s validation [%s]", e.Kind, e.Category)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Underlying }

func newError(kind domain.Kind, category Category, status int, underlying error) *Error {
	return &Error{
		Category:   category,
		Kind:       kind,
		StatusCode: status,
		Retryable:  category != CategoryClient && category != CategoryConfig,
		Underlying: underlying,
	}
}

// IsRetryable reports whether err is an upstream failure worth another attempt.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetCategory extracts the category from err, or "" when err is not an *Error.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}
