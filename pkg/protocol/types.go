package protocol

// Request is an outbound call. A Request without an id is a notification:
// the remote side must not reply to it.
//
// Requests are immutable once built; use NewRequest, NewNotification or a
// Protocol's factory methods.
type Request struct {
	method string
	params interface{}
	id     interface{}
}

// NewRequest creates a request expecting a reply. Passing a nil id produces a
// notification.
func NewRequest(method string, params interface{}, id interface{}) *Request {
	return &Request{method: method, params: params, id: id}
}

// NewNotification creates a fire-and-forget request.
func NewNotification(method string, params interface{}) *Request {
	return &Request{method: method, params: params}
}

// Method returns the remote method name.
func (r *Request) Method() string {
	return r.method
}

// Params returns the parameters exactly as given at construction, possibly nil.
func (r *Request) Params() interface{} {
	return r.params
}

// ID returns the request id, or nil for a notification.
func (r *Request) ID() interface{} {
	return r.id
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return r.id == nil
}

// Response is a validated reply. Values are only produced by a Protocol after
// the reply DTO passed structural validation.
type Response struct {
	result interface{}
	id     interface{}
}

func newResponse(result, id interface{}) *Response {
	return &Response{result: result, id: id}
}

// Result returns the opaque result payload.
func (r *Response) Result() interface{} {
	return r.result
}

// ID returns the id the remote side echoed back.
func (r *Response) ID() interface{} {
	return r.id
}

// Reply is the outcome of a single exchange: a Response, or nothing when the
// call was a notification.
type Reply struct {
	response *Response
}

// NoReply is the Reply of a notification.
func NoReply() Reply {
	return Reply{}
}

// ReplyWith wraps a validated Response.
func ReplyWith(resp *Response) Reply {
	return Reply{response: resp}
}

// Response returns the wrapped Response and whether there was one.
func (r Reply) Response() (*Response, bool) {
	return r.response, r.response != nil
}

// HasResponse reports whether a reply was received.
func (r Reply) HasResponse() bool {
	return r.response != nil
}
