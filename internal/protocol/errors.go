package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a protocol failure.
type ErrorKind string

// Error kinds
const (
	InvalidRequest      ErrorKind = "invalid_request"
	MethodNotFound      ErrorKind = "method_not_found"
	ToolExecutionFailed ErrorKind = "tool_execution_failed"
	ValidationFailed    ErrorKind = "validation_failed"
)

// Sentinel errors matching each kind, for use with errors.Is.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrMethodNotFound      = errors.New("method not found")
	ErrToolExecutionFailed = errors.New("tool execution failed")
	ErrValidationFailed    = errors.New("validation failed")
)

// Sentinel returns the sentinel error for the kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case InvalidRequest:
		return ErrInvalidRequest
	case MethodNotFound:
		return ErrMethodNotFound
	case ValidationFailed:
		return ErrValidationFailed
	default:
		return ErrToolExecutionFailed
	}
}

// ToolError is returned by a handler that wants to control the error kind
// reported to the caller. Any other handler error becomes ToolExecutionFailed.
type ToolError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

// NewToolError creates a ToolError of the given kind.
func NewToolError(kind ErrorKind, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *ToolError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.Sentinel(), e.Err}
	}
	return []error{e.Kind.Sentinel()}
}

// MissingParam reports a required parameter that was not supplied.
func MissingParam(name string) *ToolError {
	return NewToolError(ValidationFailed, "missing required parameter %q", name)
}

// CallError is the typed failure returned by Client.Call when the server
// answers with an error message.
type CallError struct {
	Kind   ErrorKind
	Detail string
	Method string
	ID     string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Kind, e.Detail)
}

func (e *CallError) Unwrap() error {
	return e.Kind.Sentinel()
}

// KindOf returns the protocol error kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind, true
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Kind, true
	}
	return "", false
}
