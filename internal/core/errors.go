package core

import (
	"errors"
	"fmt"
	"strings"
)

// Store-level sentinel errors. Store implementations wrap these so the
// orchestrator can branch with errors.Is regardless of backend.
var (
	// ErrDuplicateEmail reports that the identity key already exists in
	// the store (unique-constraint violation or equivalent).
	ErrDuplicateEmail = errors.New("customer email already exists")

	// ErrStoreUnavailable reports that the store itself is unreachable.
	// Unlike per-record failures it aborts the remaining batch.
	ErrStoreUnavailable = errors.New("customer store unavailable")
)

// Skip reasons for duplicate outcomes.
const (
	ReasonDuplicateInFile = "duplicate in file"
	ReasonAlreadyExists   = "already exists"
)

// FormatError reports that the input byte stream could not be decoded as
// the declared format at all. It aborts the whole import; no partial
// result is produced.
type FormatError struct {
	Format Format
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s input: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErrf(format Format, msg string, args ...any) *FormatError {
	return &FormatError{Format: format, Err: fmt.Errorf(msg, args...)}
}

// FieldError describes one invalid or missing field in a record.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// FieldErrors is the full set of validation failures for one record. Any
// field error rejects the whole record; there is no partial import.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}
