package snapshot

import (
	"errors"
	"fmt"
)

// SnapshotError represents a fatal failure of a snapshot operation
type SnapshotError struct {
	Type    SnapshotErrorType      `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *SnapshotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *SnapshotError) Unwrap() error {
	return e.Cause
}

// SnapshotErrorType represents different types of snapshot errors
type SnapshotErrorType string

const (
	SnapshotErrorTypeConfiguration SnapshotErrorType = "CONFIGURATION_ERROR"
	SnapshotErrorTypeStorage       SnapshotErrorType = "STORAGE_ERROR"
	SnapshotErrorTypeDatabase      SnapshotErrorType = "DATABASE_ERROR"
	SnapshotErrorTypeSerialization SnapshotErrorType = "SERIALIZATION_ERROR"
)

// NewSnapshotError creates a new SnapshotError
func NewSnapshotError(errorType SnapshotErrorType, message string, cause error) *SnapshotError {
	return &SnapshotError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *SnapshotError) WithContext(key string, value interface{}) *SnapshotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewConfigurationError(message string, cause error) *SnapshotError {
	return NewSnapshotError(SnapshotErrorTypeConfiguration, message, cause)
}

func NewStorageError(message string, cause error) *SnapshotError {
	return NewSnapshotError(SnapshotErrorTypeStorage, message, cause)
}

func NewDatabaseError(message string, cause error) *SnapshotError {
	return NewSnapshotError(SnapshotErrorTypeDatabase, message, cause)
}

func NewSerializationError(message string, cause error) *SnapshotError {
	return NewSnapshotError(SnapshotErrorTypeSerialization, message, cause)
}

// ValidationError represents a single invalid configuration field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// IsStorageFailure reports whether err is a storage-side snapshot failure
func IsStorageFailure(err error) bool {
	var snapErr *SnapshotError
	if errors.As(err, &snapErr) {
		return snapErr.Type == SnapshotErrorTypeStorage
	}
	return false
}
