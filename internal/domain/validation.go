package domain

import (
	"net/mail"
	"strings"
)

// ValidationError reports per-field request validation failures. Handlers
// serialize Fields as the error body so clients see which field failed.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds an empty field error collector.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a failure for a field, keeping the first message per field.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// Empty reports whether any field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// ValidEmail reports whether s parses as a bare address.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
