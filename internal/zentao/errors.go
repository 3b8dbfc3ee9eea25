package zentao

import (
	"errors"
	"fmt"
)

// maxErrorBodyLength bounds how much upstream response body an APIError carries.
const maxErrorBodyLength = 2000

var (
	// ErrInvalidPath indicates an empty or absolute request path.
	ErrInvalidPath = errors.New("request path must be a non-empty relative path")
	// ErrMissingCredentials indicates login was attempted without account or password configured.
	ErrMissingCredentials = errors.New("zentao account and password are not configured")
	// ErrTokenFieldMissing indicates the login response contained no recognizable token field.
	ErrTokenFieldMissing = errors.New("login response contains no token field")
	// ErrTimeout indicates an upstream request exceeded its deadline.
	ErrTimeout = errors.New("upstream request timed out")
	// ErrInvalidVerifyResult indicates a verify result other than pass or fail.
	ErrInvalidVerifyResult = errors.New(`verify result must be "pass" or "fail"`)
	// ErrMissingIdentifier indicates a bug record without a recognizable ID field.
	ErrMissingIdentifier = errors.New("bug record has no recognizable id field")
)

// APIError carries the status code and truncated body of a non-2xx upstream response.
type APIError struct {
	Status int
	Body   string
}

func newAPIError(status int, body string) *APIError {
	if len(body) > maxErrorBodyLength {
		body = body[:maxErrorBodyLength]
	}
	return &APIError{Status: status, Body: body}
}

// Error implements error.
func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.Status, e.Body)
}

// StatusCode returns the upstream HTTP status.
func (e *APIError) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.Status
}
