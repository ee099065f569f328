package config

import (
	"errors"
	"fmt"
)

// ErrInvalid matches every configuration error via errors.Is.
var ErrInvalid = errors.New("invalid configuration")

// Error describes one missing or malformed setting.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *Error) Is(target error) bool { return target == ErrInvalid }

func invalid(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}
