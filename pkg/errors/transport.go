package errors

import (
	"fmt"
)

// TransportErrorData contains structured data for transport-related errors
type TransportErrorData struct {
	Transport string `json:"transport,omitempty"`
	Endpoint  string `json:"endpoint"`
	Reason    string `json:"reason,omitempty"`
}

// TransportFailure creates an error for a reply that could not be obtained.
// The message should explain what happened; endpoint names the remote side.
func TransportFailure(endpoint, message string, cause error) JosserError {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return WrapError(cause, CodeTransportFailure, message, CategoryTransport, SeverityError).
		WithData(&TransportErrorData{Endpoint: endpoint, Reason: reason})
}

// ConnectionFailed creates an error for endpoints that cannot be reached.
func ConnectionFailed(transport, endpoint string, cause error) JosserError {
	message := fmt.Sprintf("JSON-RPC %s connection failed. Remote service at %q is not responding.", transport, endpoint)

	reason := ""
	if cause != nil {
		reason = cause.Error()
	}

	return WrapError(cause, CodeConnectionFailed, message, CategoryTransport, SeverityCritical).
		WithData(&TransportErrorData{Transport: transport, Endpoint: endpoint, Reason: reason})
}

// RateLimited creates an error for sends the local limiter refused.
func RateLimited(endpoint string, cause error) JosserError {
	return WrapError(cause, CodeRateLimited,
		fmt.Sprintf("Send to %q refused by rate limiter", endpoint), CategoryTransport, SeverityWarning).
		WithData(&TransportErrorData{Endpoint: endpoint, Reason: "rate limited"})
}

// IsTransportFailure reports whether err is, or wraps, a transport error.
func IsTransportFailure(err error) bool {
	return IsCategory(err, CategoryTransport)
}

// EndpointOf returns the endpoint a transport error names, if any.
func EndpointOf(err error) (string, bool) {
	jerr, ok := AsJosserError(err)
	if !ok || jerr.Category() != CategoryTransport {
		return "", false
	}
	data, ok := jerr.Data().(*TransportErrorData)
	if !ok {
		return "", false
	}
	return data.Endpoint, true
}
