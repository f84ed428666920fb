// Package client runs JSON-RPC calls over a transport.
//
// A Client ties together a protocol version, a codec and a transport. Each
// call follows the same path: the protocol builds the wire structure, the
// codec turns it into bytes, the transport delivers them, and the reply goes
// back through the codec and the protocol's validation before its id is
// matched against the request.
//
//	t := transport.NewHTTPTransport("http://localhost:8080/rpc")
//	c := client.New(t, client.WithLogger(logger))
//
//	resp, err := c.Request(ctx, "echo", []interface{}{"Hello JSON-RPC"})
//	if err != nil {
//	    if fault, ok := errors.AsRPCFault(err); ok {
//	        // the remote side answered with an error object
//	    }
//	}
//	fmt.Println(resp.Result())
//
// Notifications are fire-and-forget:
//
//	err := c.Notify(ctx, "log", []interface{}{"started"})
//
// CallInto decodes the result into a Go value:
//
//	var sum int
//	err := c.CallInto(ctx, "add", []interface{}{1, 2}, &sum)
//
// Failures are JosserErrors: InvalidArgument for requests that break the
// protocol rules, TransportFailure when no reply was obtained, InvalidResponse
// for malformed or mismatched replies and RPC faults for remote errors.
package client
