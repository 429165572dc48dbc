package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// APIError represents a non-2xx platform API response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Is maps HTTP status codes onto domain sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrAuthInvalid:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// IsRetryable reports whether a request failing with err may succeed if repeated.
// Rate limits, server errors and network failures are retryable; context
// cancellation and client errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrAuthInvalid)
}
