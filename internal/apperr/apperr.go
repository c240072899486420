// Package apperr holds the domain error values shared by repositories,
// services and HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateCode      = errors.New("project code already exists")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrFileTooLarge       = errors.New("file exceeds size limit")
	// ErrAuditNotRecorded means the mutation was stored but its history
	// row was not. Retrying the request repeats the mutation.
	ErrAuditNotRecorded   = errors.New("change saved but audit entry not recorded")
)

// Validation wraps ErrValidation with a field-level message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsConflict reports whether err is one of the 409 class errors.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateCode) || errors.Is(err, ErrUsernameTaken)
}
