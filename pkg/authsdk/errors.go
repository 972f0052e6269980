package authsdk

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingPermission is returned before a request is sent when the session
// lacks the permission the endpoint requires.
var ErrMissingPermission = errors.New("session lacks required permission")

// APIError is a failed response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("auth api: %d %s", e.StatusCode, e.Message)
}

func statusIs(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// IsUnauthorized reports a rejected credential or token.
func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }

// IsForbidden reports an inactive account or a missing permission.
func IsForbidden(err error) bool { return statusIs(err, http.StatusForbidden) }

// IsConflict reports a duplicate email or username on register.
func IsConflict(err error) bool { return statusIs(err, http.StatusConflict) }

// IsRateLimited reports a 429 from the service.
func IsRateLimited(err error) bool { return statusIs(err, http.StatusTooManyRequests) }
