package provider

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes provider failures.
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorUnreachable indicates the request never got a response
	ErrorUnreachable ErrorCategory = "unreachable"

	// ErrorAuthentication indicates the provider refused our credentials
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorRejected indicates any other non-success status
	ErrorRejected ErrorCategory = "rejected"

	// ErrorBadData indicates a success status with an unusable body
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorNotConfigured indicates missing client credentials
	ErrorNotConfigured ErrorCategory = "not_configured"
)

// ProviderError wraps provider failures with a normalized category. Detail
// holds a truncated response body for server-side logs only.
type ProviderError struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
	Detail     string
	Underlying error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("verification provider [%s]: %s", e.Category, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a normalized provider error.
func NewProviderError(category ErrorCategory, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		Message:    message,
		Underlying: underlying,
	}
}

// GetCategory extracts the error category, defaulting to unreachable for
// errors that never reached the provider.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorUnreachable
}

// categoryForStatus maps a non-2xx provider status to a category.
func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == 401 || status == 403:
		return ErrorAuthentication
	case status == 429:
		return ErrorRateLimited
	default:
		return ErrorRejected
	}
}
