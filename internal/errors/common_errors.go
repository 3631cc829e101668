package errors

import (
	"errors"
	"fmt"

	"retailbonds/internal/catalog"
	"retailbonds/internal/dataprocessing"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeExtraction ErrorType = "EXTRACTION"
	ErrTypeContinuity ErrorType = "CONTINUITY"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeInternal   ErrorType = "INTERNAL"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ExitCode maps the error type to a process exit status.
func (e *AppError) ExitCode() int {
	switch e.Type {
	case ErrTypeConfig:
		return 2
	case ErrTypeExtraction:
		return 3
	case ErrTypeContinuity:
		return 4
	case ErrTypeNotFound:
		return 5
	default:
		return 1
	}
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// ClassifyBuildError wraps a catalog build failure with the type matching
// its cause. Location details of extraction failures land in Context.
func ClassifyBuildError(err error) *AppError {
	if err == nil {
		return nil
	}
	var app *AppError
	if errors.As(err, &app) {
		return app
	}

	var extraction *dataprocessing.ExtractionError
	if errors.As(err, &extraction) {
		appErr := NewAppError(ErrTypeExtraction, "source extraction failed", err).
			WithContext("source", extraction.Source)
		if extraction.Sheet != "" {
			appErr.WithContext("sheet", extraction.Sheet)
			if extraction.Row >= 0 && extraction.Column >= 0 {
				appErr.WithContext("row", extraction.Row).WithContext("column", extraction.Column)
			}
		}
		return appErr
	}

	var continuity *catalog.ContinuityError
	if errors.As(err, &continuity) {
		return NewAppError(ErrTypeContinuity, "sale windows are not continuous", err).
			WithContext("previous", string(continuity.Previous)).
			WithContext("next", string(continuity.Next))
	}

	if errors.Is(err, dataprocessing.ErrExtraction) {
		return NewAppError(ErrTypeExtraction, "source extraction failed", err)
	}
	if errors.Is(err, catalog.ErrContinuity) {
		return NewAppError(ErrTypeContinuity, "sale windows are not continuous", err)
	}
	return NewAppError(ErrTypeInternal, "catalog build failed", err)
}
