package protocol

import (
	jerrors "github.com/C3rb/Josser/pkg/errors"
)

// JSONRPC1Version is the version tag of JSON-RPC 1.0.
const JSONRPC1Version = "1.0"

// JSONRPC1 implements Protocol with the JSON-RPC 1.0 wire rules: positional
// params only, an id key on every request (null for notifications), and
// replies carrying either a result or an error object.
type JSONRPC1 struct {
	ids IDGenerator
}

// Option configures a JSONRPC1 protocol.
type Option func(*JSONRPC1)

// WithIDGenerator replaces the default UUID id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *JSONRPC1) {
		if g != nil {
			p.ids = g
		}
	}
}

// NewJSONRPC1 creates a JSON-RPC 1.0 protocol.
func NewJSONRPC1(opts ...Option) *JSONRPC1 {
	p := &JSONRPC1{ids: UUIDGenerator{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Protocol = (*JSONRPC1)(nil)

// Version implements Protocol.
func (p *JSONRPC1) Version() string {
	return JSONRPC1Version
}

// CreateNotification implements Protocol.
func (p *JSONRPC1) CreateNotification(method string, params interface{}) *Request {
	return NewNotification(method, params)
}

// CreateRequest implements Protocol.
func (p *JSONRPC1) CreateRequest(method string, params interface{}, id interface{}) *Request {
	if id == nil {
		id = p.GenerateRequestID()
	}
	return NewRequest(method, params, id)
}

// GenerateRequestID implements Protocol.
func (p *JSONRPC1) GenerateRequestID() interface{} {
	return p.ids.NextID()
}

// IsNotification implements Protocol.
func (p *JSONRPC1) IsNotification(req *Request) bool {
	return req.IsNotification()
}

// ValidateRequest implements Protocol. Rules, first failure wins:
// the method is a non-empty string, params are positional, and the id of a
// non-notification is a string or a number. Method names starting with "rpc."
// are deliberately allowed.
func (p *JSONRPC1) ValidateRequest(req *Request) (*Request, error) {
	if req == nil {
		return nil, jerrors.InvalidArgument("Request must not be nil.")
	}
	if req.Method() == "" {
		return nil, jerrors.InvalidArgument("Invalid remote method. Remote method name must be a non-empty string.")
	}
	if params := req.Params(); params != nil && !isSequence(params) {
		return nil, jerrors.InvalidArgument("Invalid parameters structure. Parameters must be held within an indexed-only sequence, %s detected.", typeName(params)).
			WithData(&jerrors.ValidationErrorData{Field: "params", Expected: "slice or array", Got: typeName(params)})
	}
	if !req.IsNotification() {
		id := req.ID()
		if _, isString := id.(string); !isString && !isNumeric(id) {
			return nil, jerrors.InvalidField("request id", "string or numeric", id)
		}
	}
	return req, nil
}

// RequestDTO implements Protocol. The id key is always present; it is null
// for a notification.
func (p *JSONRPC1) RequestDTO(req *Request) (map[string]interface{}, error) {
	if _, err := p.ValidateRequest(req); err != nil {
		return nil, err
	}

	params := req.Params()
	if params == nil {
		params = []interface{}{}
	}

	dto := map[string]interface{}{
		"method": req.Method(),
		"params": params,
		"id":     nil,
	}
	if !req.IsNotification() {
		dto["id"] = req.ID()
	}
	return dto, nil
}

// ValidateResponseDTO implements Protocol.
func (p *JSONRPC1) ValidateResponseDTO(dto interface{}) error {
	reply, err := decodeReply(dto)
	if err != nil {
		return err
	}
	if e, ok := reply.(errorReply); ok {
		return e.fault()
	}
	return nil
}

// CreateResponse implements Protocol.
func (p *JSONRPC1) CreateResponse(dto interface{}) (*Response, error) {
	reply, err := decodeReply(dto)
	if err != nil {
		return nil, err
	}

	switch r := reply.(type) {
	case errorReply:
		return nil, r.fault()
	case successReply:
		return newResponse(r.result, r.id), nil
	default:
		return nil, jerrors.InvalidResponse("Unsupported reply kind %T.", reply)
	}
}

// Match implements Protocol. Ids compare loosely: text encodings do not keep
// the integer/string distinction, so 1 and "1" match. Notifications never
// match anything.
func (p *JSONRPC1) Match(req *Request, resp *Response) bool {
	if req == nil || resp == nil || req.IsNotification() {
		return false
	}
	return looseEqual(req.ID(), resp.ID())
}
