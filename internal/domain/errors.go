package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidProvenance    = NewDomainError(ErrCodeValidation, "invalid entry provenance")
	ErrInvalidFeedbackLabel = NewDomainError(ErrCodeValidation, "feedback label must be 1 or -1")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrEntryNotFound     = NewDomainError(ErrCodeNotFound, "knowledge entry not found")
	ErrConfigKeyNotFound = NewDomainError(ErrCodeNotFound, "shelter config key not found")
	ErrBiasNotFound      = NewDomainError(ErrCodeNotFound, "entry bias not found")
)

// Service errors
var (
	ErrEmbedderUnavailable  = NewDomainError(ErrCodeUnavailable, "embedding service unavailable")
	ErrTransformUnavailable = NewDomainError(ErrCodeUnavailable, "text transform service unavailable")
	ErrEmptyCorpus          = NewDomainError(ErrCodeUnavailable, "no knowledge base entries available")
)

// Operation errors
var (
	ErrBiasRebuildLocked = NewDomainError(ErrCodeInvalidOperation, "bias rebuild already running")
)
