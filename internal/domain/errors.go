package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateTransaction signals that the transaction id was already ingested.
// It is treated as idempotent success by the service.
var ErrDuplicateTransaction = errors.New("duplicate transaction")

// ErrTransactionNotFound is returned when a transaction does not exist
var ErrTransactionNotFound = errors.New("transaction not found")

// ErrStoreNotFound is returned when a store is not registered
var ErrStoreNotFound = errors.New("store not found")

// FieldError describes a single invalid field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field-level problem found in a submission
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any field failed
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// PersistenceError wraps a storage failure. Partial writes have been rolled back
// and the caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// RollupConflictError reports a concurrent update race on an aggregate key
type RollupConflictError struct {
	Key string
	Err error
}

func (e *RollupConflictError) Error() string {
	return fmt.Sprintf("rollup conflict on %s: %v", e.Key, e.Err)
}

func (e *RollupConflictError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the caller should retry the submission
func IsRetryable(err error) bool {
	var persistErr *PersistenceError
	var conflictErr *RollupConflictError
	return errors.As(err, &persistErr) || errors.As(err, &conflictErr)
}
