package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an entity type, field or record does not exist
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found with ID: %s", e.Entity, e.ID)
}

// ValidationError represents an error that occurs due to invalid input or parameters
type ValidationError struct {
	Message string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new validation error with the given message
func NewValidationError(message string) error {
	return ValidationError{
		Message: message,
	}
}

// ConflictError is returned when an extension field collides with an existing one
type ConflictError struct {
	EntityType string
	ColumnName string
	Message    string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("conflict: %s", e.Message)
	}
	return fmt.Sprintf("conflict: column %s already exists for %s", e.ColumnName, e.EntityType)
}

// ExecutionError wraps a store rejection of a DDL statement.
// Error() only renders the intent, raw driver text is reachable through Unwrap.
type ExecutionError struct {
	Intent string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %s", e.Intent)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is (or wraps) an ErrNotFound
func IsNotFound(err error) bool {
	var target *ErrNotFound
	return errors.As(err, &target)
}

// IsConflict reports whether err is (or wraps) a ConflictError
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsExecutionError reports whether err is (or wraps) an ExecutionError
func IsExecutionError(err error) bool {
	var target *ExecutionError
	return errors.As(err, &target)
}
