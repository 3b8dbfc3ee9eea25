package zentao

import (
	"fmt"
	"net/http"
)

// ValidationError reports a malformed argument detected before any network
// call. It carries a 400 status so the serving layer maps it without
// translation.
type ValidationError struct {
	message string
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{message: fmt.Sprintf(format, args...)}
}

// Error implements error.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.message
}

// StatusCode returns 400.
func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

func requirePositiveID(id int64) error {
	if id <= 0 {
		return validationErrorf("bug id must be a positive integer, got %d", id)
	}
	return nil
}
