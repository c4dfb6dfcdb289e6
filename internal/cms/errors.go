package cms

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the typed failure for every upstream call. Status is the
// upstream HTTP status, or 0 when the request never produced a response
// (dial failure, timeout, canceled context).
type APIError struct {
	Message  string
	Status   int
	Endpoint string
	Errors   map[string][]string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("cms: %s (endpoint %s)", e.Message, e.Endpoint)
	}
	return fmt.Sprintf("cms: %s (status %d, endpoint %s)", e.Message, e.Status, e.Endpoint)
}

// IsNotFound reports whether err is an upstream 404. Page handlers use it
// to serve the themed not-found page instead of a 5xx.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// IsUnauthorized reports an upstream 401/403, which means the configured
// API token is wrong or revoked.
func IsUnauthorized(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden
}

// IsTransport reports whether err never reached the upstream at all.
func IsTransport(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == 0
}
