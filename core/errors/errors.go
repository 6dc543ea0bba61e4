// Package errors provides the error taxonomy shared by the comparator, the package layer
// and the command-line tool.
//
// Three kinds matter to callers of a comparison:
//   - ErrInvalidInput: the document is structurally malformed (ValidationError).
//   - ErrUnsupported: the document uses content the engine refuses to compare (UnsupportedError).
//   - ErrInternal: the engine broke one of its own invariants (InternalError).
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a part or resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates malformed document structure or invalid arguments
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal indicates a defect in the engine itself
	ErrInternal = errors.New("internal error")
	// ErrUnsupported indicates unsupported document content
	ErrUnsupported = errors.New("unsupported")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "part", "relationship")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError represents invalid input structure.
type ValidationError struct {
	Document string // Name of the offending document, if known
	Field    string // Element or field that failed validation
	Message  string // Human-readable error message
	Err      error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	prefix := "validation failed"
	if e.Document != "" {
		prefix = fmt.Sprintf("validation failed in %s", e.Document)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s for %s: %s", prefix, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// InternalError reports a broken engine invariant. It is never caused by document content
// alone; seeing one means the engine has a bug.
type InternalError struct {
	Component string // Engine component that detected the violation
	Message   string
	Err       error
}

func (e *InternalError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("internal error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("internal error: %s", e.Message)
}

func (e *InternalError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInternal
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "XML", "field code", "relationships")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// UnsupportedError represents unsupported document content found during preflight.
type UnsupportedError struct {
	Document string // Name of the document containing the content
	Feature  string // Feature that is unsupported (e.g., "legacy sub-document")
	Reason   string // Why it's not supported or where it was found
	Err      error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	msg := fmt.Sprintf("unsupported %s", e.Feature)
	if e.Document != "" {
		msg = fmt.Sprintf("%s in %s", msg, e.Document)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewValidationf creates a ValidationError with a formatted message.
func NewValidationf(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewInternal creates an InternalError
func NewInternal(component, message string) *InternalError {
	return &InternalError{
		Component: component,
		Message:   message,
	}
}

// NewInternalf creates an InternalError with a formatted message.
func NewInternalf(component, format string, args ...interface{}) *InternalError {
	return &InternalError{
		Component: component,
		Message:   fmt.Sprintf(format, args...),
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(document, feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Document: document,
		Feature:  feature,
		Reason:   reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsInternal reports whether err is an engine defect rather than an input problem.
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}
