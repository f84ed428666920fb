// Package errors provides structured error handling for the Josser client.
// Every failure surfaced by the protocol, transport and codec layers is a
// JosserError carrying a code, a category and optional structured data, so
// callers can tell a malformed reply from a remote fault without parsing text.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"
)

// Category represents the type/category of an error for classification and handling
type Category string

const (
	// CategoryValidation marks caller mistakes (InvalidArgument).
	CategoryValidation Category = "validation"
	// CategoryProtocol marks structurally malformed replies (InvalidResponse).
	CategoryProtocol Category = "protocol"
	// CategoryRemote marks errors reported by the remote service (RPCFault).
	CategoryRemote Category = "remote"
	// CategoryTransport marks failures to obtain a reply at all (TransportFailure).
	CategoryTransport Category = "transport"
	// CategoryEncoding marks failures to turn a DTO into bytes or back.
	CategoryEncoding Category = "encoding"
	// CategoryInternal marks anything else.
	CategoryInternal Category = "internal"
)

// Severity indicates how critical an error is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context provides additional context about where and when an error occurred
type Context struct {
	RequestID string    `json:"request_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`
}

// JosserError defines the interface for all Josser errors
type JosserError interface {
	error

	// Code returns the error code. For remote faults this is the code the
	// remote service reported.
	Code() int

	// Message returns a human-readable error message
	Message() string

	// Details returns detailed technical description for debugging
	Details() string

	// Data returns structured error data for programmatic handling
	Data() interface{}

	// Category returns the error category for classification
	Category() Category

	// Severity returns the error severity level
	Severity() Severity

	// Context returns the error context information
	Context() *Context

	// WithContext returns a new error with the provided context
	WithContext(ctx *Context) JosserError

	// WithDetail returns a new error with additional detail
	WithDetail(detail string) JosserError

	// WithData returns a new error with structured data
	WithData(data interface{}) JosserError

	// Unwrap returns the underlying error for error chain traversal
	Unwrap() error

	// ToJSON returns the error as a JSON-serializable map
	ToJSON() map[string]interface{}
}

type baseError struct {
	code     int
	message  string
	details  string
	data     interface{}
	category Category
	severity Severity
	context  *Context
	cause    error
}

func (e *baseError) Error() string {
	if e.details != "" {
		return fmt.Sprintf("%s: %s", e.message, e.details)
	}
	return e.message
}

func (e *baseError) Code() int {
	return e.code
}

func (e *baseError) Message() string {
	return e.message
}

func (e *baseError) Details() string {
	return e.details
}

func (e *baseError) Data() interface{} {
	return e.data
}

func (e *baseError) Category() Category {
	return e.category
}

func (e *baseError) Severity() Severity {
	return e.severity
}

func (e *baseError) Context() *Context {
	return e.context
}

// WithContext returns a copy carrying ctx. The receiver is left untouched.
func (e *baseError) WithContext(ctx *Context) JosserError {
	newErr := *e
	newErr.context = ctx
	return &newErr
}

// WithDetail returns a copy with detail appended to any existing details.
func (e *baseError) WithDetail(detail string) JosserError {
	newErr := *e
	if newErr.details != "" {
		newErr.details = fmt.Sprintf("%s; %s", newErr.details, detail)
	} else {
		newErr.details = detail
	}
	return &newErr
}

func (e *baseError) WithData(data interface{}) JosserError {
	newErr := *e
	newErr.data = data
	return &newErr
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":     e.code,
		"message":  e.message,
		"category": string(e.category),
		"severity": string(e.severity),
	}

	if e.details != "" {
		result["details"] = e.details
	}
	if e.data != nil {
		result["data"] = e.data
	}
	if e.context != nil {
		result["context"] = e.context
	}
	if e.cause != nil {
		result["cause"] = e.cause.Error()
	}

	return result
}

// MarshalJSON implements json.Marshaler for baseError
func (e *baseError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}

// NewError creates a new JosserError with the specified parameters
func NewError(code int, message string, category Category, severity Severity) JosserError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		context:  &Context{Timestamp: time.Now()},
	}
}

// NewErrorf creates a new JosserError with formatted message
func NewErrorf(code int, category Category, severity Severity, format string, args ...interface{}) JosserError {
	return NewError(code, fmt.Sprintf(format, args...), category, severity)
}

// WrapError wraps an existing error as a JosserError
func WrapError(err error, code int, message string, category Category, severity Severity) JosserError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		cause:    err,
		context:  &Context{Timestamp: time.Now()},
	}
}

// AsJosserError finds the first JosserError in err's chain.
func AsJosserError(err error) (JosserError, bool) {
	if err == nil {
		return nil, false
	}
	var jerr JosserError
	if stderrors.As(err, &jerr) {
		return jerr, true
	}
	return nil, false
}

// IsJosserError checks if an error is, or wraps, a JosserError
func IsJosserError(err error) bool {
	_, ok := AsJosserError(err)
	return ok
}

// IsCategory checks if an error is of a specific category
func IsCategory(err error, category Category) bool {
	if jerr, ok := AsJosserError(err); ok {
		return jerr.Category() == category
	}
	return false
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code int) bool {
	if jerr, ok := AsJosserError(err); ok {
		return jerr.Code() == code
	}
	return false
}
