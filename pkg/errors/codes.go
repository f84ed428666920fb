package errors

// Standard JSON-RPC error codes. JSON-RPC 1.0 leaves codes to the server; these
// are the ones most 1.0 servers borrowed from JSON-RPC 2.0 and they
// are only used to name remote faults.
const (
	CodeParseError     int = -32700
	CodeInvalidRequest int = -32600
	CodeMethodNotFound int = -32601
	CodeInvalidParams  int = -32602
	CodeInternalError  int = -32603
)

// Client-side error codes. They never travel on the wire.
const (
	// Transport errors (-32500 to -32599)
	CodeTransportFailure int = -32500 // Reply could not be obtained
	CodeConnectionFailed int = -32501 // Remote endpoint unreachable
	CodeRateLimited      int = -32504 // Local rate limiter refused the send

	// Validation errors (-32750 to -32799)
	CodeInvalidArgument int = -32750 // Request violates protocol rules

	// Encoding errors (-32800 to -32849)
	CodeEncodingFailure int = -32800 // DTO could not be encoded or decoded

	// Protocol errors (-32900 to -32999)
	CodeInvalidResponse int = -32900 // Reply is structurally malformed
	CodeIDMismatch      int = -32901 // Reply id does not correlate with the request
)

// ErrorCodeInfo provides human-readable information about error codes
type ErrorCodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

var errorCodeRegistry = map[int]ErrorCodeInfo{
	CodeParseError:     {CodeParseError, "ParseError", "Invalid JSON was received by the server", CategoryRemote, SeverityError},
	CodeInvalidRequest: {CodeInvalidRequest, "InvalidRequest", "Invalid request object", CategoryRemote, SeverityError},
	CodeMethodNotFound: {CodeMethodNotFound, "MethodNotFound", "Method does not exist", CategoryRemote, SeverityError},
	CodeInvalidParams:  {CodeInvalidParams, "InvalidParams", "Invalid method parameters", CategoryRemote, SeverityError},
	CodeInternalError:  {CodeInternalError, "InternalError", "Internal server error", CategoryRemote, SeverityError},

	CodeTransportFailure: {CodeTransportFailure, "TransportFailure", "Transport failure", CategoryTransport, SeverityError},
	CodeConnectionFailed: {CodeConnectionFailed, "ConnectionFailed", "Connection failed", CategoryTransport, SeverityCritical},
	CodeRateLimited:      {CodeRateLimited, "RateLimited", "Send refused by rate limiter", CategoryTransport, SeverityWarning},

	CodeInvalidArgument: {CodeInvalidArgument, "InvalidArgument", "Request violates protocol rules", CategoryValidation, SeverityError},
	CodeEncodingFailure: {CodeEncodingFailure, "EncodingFailure", "Encoding failure", CategoryEncoding, SeverityError},
	CodeInvalidResponse: {CodeInvalidResponse, "InvalidResponse", "Malformed response", CategoryProtocol, SeverityError},
	CodeIDMismatch:      {CodeIDMismatch, "IDMismatch", "Response id does not match request id", CategoryProtocol, SeverityError},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code int) (ErrorCodeInfo, bool) {
	info, exists := errorCodeRegistry[code]
	return info, exists
}

// GetErrorCodeName returns the name of an error code
func GetErrorCodeName(code int) string {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// IsStandardJSONRPCCode reports whether code lies in the range reserved for
// pre-defined JSON-RPC errors.
func IsStandardJSONRPCCode(code int) bool {
	return code >= -32768 && code <= -32000
}
