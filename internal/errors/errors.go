package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Error codes carried in the error_code extension.
const (
	CodeInvalidParameter   = "INVALID_PARAMETER"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeBondNotFound       = "BOND_NOT_FOUND"
	CodeNotOnSale          = "NOT_ON_SALE"
	CodeNoBuyout           = "NO_BUYOUT"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeCatalogUnavailable = "CATALOG_UNAVAILABLE"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

var (
	ErrNotFound           = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrRateLimitExceeded  = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")
	ErrInternalServer     = New(http.StatusInternalServerError, CodeInternal, "Internal server error")
	ErrCatalogUnavailable = New(http.StatusServiceUnavailable, CodeCatalogUnavailable, "Bond catalog is not loaded")
)

// BondNotFound reports an unknown instrument id. The message doubles as the
// "error" member of the problem body.
func BondNotFound(id string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeBondNotFound,
		fmt.Sprintf("Bond with ID %s not found", id), map[string]string{"id": id})
}

// NotOnSale reports a date on which no instrument of the catalog was sold.
func NotOnSale(day string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotOnSale,
		fmt.Sprintf("No bond on sale on %s", day), map[string]string{"date": day})
}

// NoBuyout reports a date that falls in no instrument's buyout window.
func NoBuyout(day string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNoBuyout,
		fmt.Sprintf("No bond bought out on %s", day), map[string]string{"date": day})
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, message, ValidationError{
		Field:   field,
		Message: message,
	})
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errors []ValidationError) *APIError {
	return NewWithDetails(
		http.StatusBadRequest,
		CodeValidationFailed,
		"Request validation failed",
		ValidationErrors{Errors: errors},
	)
}

// InvalidParameter reports a path or query parameter that could not be parsed.
func InvalidParameter(name string, err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidParameter,
		fmt.Sprintf("Invalid %s parameter", name), err.Error())
}
