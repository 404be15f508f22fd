// Package errors defines the structured error type used at tabi's outer
// edges: configuration, navigation files, content loading and the live
// bridge protocol. The synchronization core itself never returns errors;
// its failure modes are "render nothing" or "no-op".
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeProtocol   ErrorType = "protocol"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeNavInvalid       = "ERR_NAV_INVALID"
	ErrCodeContentInvalid   = "ERR_CONTENT_INVALID"
	ErrCodeUnknownMessage   = "ERR_UNKNOWN_MESSAGE"
	ErrCodeMalformedMessage = "ERR_MALFORMED_MESSAGE"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// TabiError is a structured error type with context.
type TabiError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *TabiError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *TabiError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a TabiError of the same type and code.
func (e *TabiError) Is(target error) bool {
	var t *TabiError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *TabiError) WithContext(key string, value interface{}) *TabiError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile records the file the error relates to.
func (e *TabiError) WithFile(path string) *TabiError {
	e.FilePath = path

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *TabiError {
	return &TabiError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *TabiError {
	return &TabiError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *TabiError {
	return &TabiError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewProtocolError creates an error for a malformed or unknown bridge
// message. Protocol errors are recoverable: the session drops the message
// and keeps going.
func NewProtocolError(code, message string, cause error) *TabiError {
	return &TabiError{
		Type:        ErrorTypeProtocol,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *TabiError {
	return &TabiError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var te *TabiError
	if errors.As(err, &te) {
		return te.Recoverable
	}

	return false
}

// IsType reports whether err is a TabiError of the given type.
func IsType(err error, t ErrorType) bool {
	var te *TabiError
	if errors.As(err, &te) {
		return te.Type == t
	}

	return false
}

// FieldValidationError describes a single invalid field.
type FieldValidationError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fve.FieldName, fve.ErrorMessage)
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []*FieldValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	switch len(vec.Errors) {
	case 0:
		return "no validation errors"
	case 1:
		return vec.Errors[0].Error()
	}

	msgs := make([]string, len(vec.Errors))
	for i, err := range vec.Errors {
		msgs[i] = err.Error()
	}

	return fmt.Sprintf("validation failed with %d errors: %s", len(vec.Errors), strings.Join(msgs, "; "))
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(field string, value interface{}, message string) {
	vec.Errors = append(vec.Errors, &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
	})
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}

// Err returns nil when the collection is empty, otherwise the collection
// wrapped in a validation TabiError with the given code.
func (vec *ValidationErrorCollection) Err(code string) error {
	if !vec.HasErrors() {
		return nil
	}

	return &TabiError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     "validation failed",
		Cause:       vec,
		Recoverable: true,
	}
}
