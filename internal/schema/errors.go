package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors for the schema model's structural preconditions. These are
// programmer errors (a bug in the caller, a parser, or the planner itself),
// not user-facing schema problems — those are reported as 1215 strings by
// Database.UnfulfilledFKs instead. Callers check kind with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidArgument = errors.New("invalid argument")
)

// notFoundf wraps ErrNotFound with a formatted message.
func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// alreadyExistsf wraps ErrAlreadyExists with a formatted message.
func alreadyExistsf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrAlreadyExists)
}

// invalidArgumentf wraps ErrInvalidArgument with a formatted message.
func invalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}
