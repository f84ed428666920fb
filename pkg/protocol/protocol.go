package protocol

// Protocol is the surface every JSON-RPC version implements. Clients depend on
// this interface only, so adding a version never touches calling code.
type Protocol interface {
	// Version returns the protocol version tag, e.g. "1.0".
	Version() string

	// CreateNotification builds a notification. Wire rules are checked when
	// the DTO is built, not here.
	CreateNotification(method string, params interface{}) *Request

	// CreateRequest builds a request. A nil id is replaced by a generated one.
	CreateRequest(method string, params interface{}, id interface{}) *Request

	// CreateResponse validates a reply DTO and maps it to a Response. A DTO
	// carrying a remote error yields an RPC fault; a malformed DTO yields an
	// InvalidResponse error.
	CreateResponse(dto interface{}) (*Response, error)

	// Match reports whether resp is the reply to req.
	Match(req *Request, resp *Response) bool

	// ValidateRequest returns req unchanged, or an InvalidArgument error if it
	// violates the version's rules.
	ValidateRequest(req *Request) (*Request, error)

	// RequestDTO validates req and returns its wire structure (not bytes).
	RequestDTO(req *Request) (map[string]interface{}, error)

	// ValidateResponseDTO returns nil only for a well-formed result DTO.
	ValidateResponseDTO(dto interface{}) error

	// GenerateRequestID returns a value usable as a request id, unique for the
	// lifetime of the protocol value.
	GenerateRequestID() interface{}

	// IsNotification reports whether req carries no id.
	IsNotification(req *Request) bool
}
