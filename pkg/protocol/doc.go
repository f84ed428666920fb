// Package protocol defines the JSON-RPC protocol contract and its 1.0
// implementation.
//
// A Protocol turns method calls into transport-ready request DTOs and turns
// decoded reply DTOs back into Responses. It never performs I/O and never
// encodes bytes; that is the job of the endec and transport packages.
//
// # Package Organization
//
//   - protocol.go: the Protocol interface shared by all versions
//   - types.go: Request, Response and the Reply option type
//   - jsonrpc1.go: JSON-RPC 1.0 wire rules
//   - reply.go: structural decoding of reply DTOs
//   - idgen.go: request id generators
//
// # JSON-RPC 1.0 Rules
//
// Requests carry a method name, positional params and an id. Notifications
// are requests whose id is null; no reply is expected for them.
//
// Replies carry an id plus either a result or an error object. A non-null
// error object must hold an integer code and a string message and is
// surfaced as an RPC fault. Anything else is an InvalidResponse error.
//
// Request and reply ids are matched loosely, because a text encoding does
// not keep the difference between 1 and "1":
//
//	p := protocol.NewJSONRPC1()
//	req := p.CreateRequest("math.sum", []interface{}{1, 2}, 1)
//	dto, _ := p.RequestDTO(req)
//	// send dto, decode the reply into replyDTO
//	resp, err := p.CreateResponse(replyDTO)
//	if err == nil && p.Match(req, resp) {
//		fmt.Println(resp.Result())
//	}
package protocol
