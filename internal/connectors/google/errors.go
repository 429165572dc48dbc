package google

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
)

// ErrForbidden indicates insufficient permissions.
var ErrForbidden = errors.New("google: forbidden (insufficient permissions)")

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrAuthInvalid) || code(err) == http.StatusUnauthorized
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) || code(err) == http.StatusForbidden
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || code(err) == http.StatusNotFound
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited) || code(err) == http.StatusTooManyRequests
}

func code(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// WrapError converts a Google API error to the matching domain error,
// keeping the original message.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	switch code(err) {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", domain.ErrAuthInvalid, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w: %v", domain.ErrAuthInvalid, ErrForbidden, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	default:
		return err
	}
}
