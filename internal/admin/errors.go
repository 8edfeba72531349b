package admin

import (
	"errors"
	"fmt"
)

// ErrUnauthorized indicates a mutation attempted without a live admin
// session.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError rejects an input before any storage work happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
