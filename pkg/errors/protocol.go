package errors

import (
	"fmt"
)

// RemoteErrorData is the structured payload of an RPC fault: the error object
// exactly as the remote service reported it.
type RemoteErrorData struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationErrorData describes which part of a request failed validation.
type ValidationErrorData struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Got      string `json:"got,omitempty"`
}

// InvalidArgument creates an error for requests that violate protocol rules.
func InvalidArgument(format string, args ...interface{}) JosserError {
	return NewErrorf(CodeInvalidArgument, CategoryValidation, SeverityError, format, args...)
}

// InvalidField creates an InvalidArgument naming the offending request field.
func InvalidField(field, expected string, got interface{}) JosserError {
	gotType := "nil"
	if got != nil {
		gotType = fmt.Sprintf("%T", got)
	}
	return InvalidArgument("Invalid %s type. Expected %s, %s detected.", field, expected, gotType).
		WithData(&ValidationErrorData{Field: field, Expected: expected, Got: gotType})
}

// InvalidResponse creates an error for structurally malformed replies.
func InvalidResponse(format string, args ...interface{}) JosserError {
	return NewErrorf(CodeInvalidResponse, CategoryProtocol, SeverityError, format, args...)
}

// IDMismatch creates an error for replies whose id does not correlate with
// the request that was sent.
func IDMismatch(requestID, responseID interface{}) JosserError {
	return NewErrorf(CodeIDMismatch, CategoryProtocol, SeverityError,
		"Response id %v does not match request id %v.", responseID, requestID)
}

// NewRPCFault creates an error for an application-level error reported by the
// remote service. Code and Message return the remote values unchanged.
func NewRPCFault(code int, message string, data interface{}) JosserError {
	return NewError(code, message, CategoryRemote, SeverityError).
		WithData(&RemoteErrorData{Code: code, Message: message, Data: data})
}

// EncodingFailure wraps a codec error.
func EncodingFailure(operation string, cause error) JosserError {
	return WrapError(cause, CodeEncodingFailure,
		fmt.Sprintf("%s failed: %v", operation, cause), CategoryEncoding, SeverityError)
}

// IsInvalidArgument reports whether err is, or wraps, an InvalidArgument error.
func IsInvalidArgument(err error) bool {
	return IsCategory(err, CategoryValidation)
}

// IsInvalidResponse reports whether err is, or wraps, an InvalidResponse error.
// Id mismatches count as malformed replies.
func IsInvalidResponse(err error) bool {
	return IsCategory(err, CategoryProtocol)
}

// IsRPCFault reports whether err is, or wraps, a remote fault.
func IsRPCFault(err error) bool {
	return IsCategory(err, CategoryRemote)
}

// AsRPCFault extracts the remote error object from err.
func AsRPCFault(err error) (*RemoteErrorData, bool) {
	jerr, ok := AsJosserError(err)
	if !ok || jerr.Category() != CategoryRemote {
		return nil, false
	}
	if data, ok := jerr.Data().(*RemoteErrorData); ok {
		return data, true
	}
	return &RemoteErrorData{Code: jerr.Code(), Message: jerr.Message()}, true
}
