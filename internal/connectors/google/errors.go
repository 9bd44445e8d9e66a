package google

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/aganswers/drivesync/internal/core/domain"
)

// StatusCode returns the HTTP status carried by a Google API error, or 0.
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) || StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	return errors.Is(err, domain.ErrForbidden) || StatusCode(err) == http.StatusForbidden
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || StatusCode(err) == http.StatusNotFound
}

// IsConflict returns true if the resource already exists (409).
func IsConflict(err error) bool {
	return errors.Is(err, domain.ErrAlreadyExists) || StatusCode(err) == http.StatusConflict
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, domain.ErrRateLimited) || StatusCode(err) == http.StatusTooManyRequests
}

// IsRetryable returns true for rate limiting and server-side failures.
func IsRetryable(err error) bool {
	if IsRateLimited(err) || errors.Is(err, domain.ErrUnavailable) {
		return true
	}
	return StatusCode(err) >= http.StatusInternalServerError
}

// WrapError classifies a Google API error with the matching domain error.
// The original error stays in the chain.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	code := StatusCode(err)
	switch {
	case code == 0:
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrForbidden, err)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
}
