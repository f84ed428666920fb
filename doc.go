// Package josser is a JSON-RPC 1.0 client.
//
// The library is split into sub-packages:
//
//   - pkg/protocol: request and response types, validation and id matching
//   - pkg/endec: JSON and CBOR encoders/decoders
//   - pkg/transport: HTTP and WebSocket transports plus middleware
//   - pkg/client: the call pipeline tying the above together
//   - pkg/errors: the error taxonomy, including remote RPC faults
//   - pkg/config: YAML, .env and environment configuration
//   - pkg/logging: structured logging on zerolog
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//
// # Creating a Client
//
// The quickest way in is a transport and client.New:
//
//	t := josser.NewHTTPTransport("http://localhost:8080/rpc")
//	c := josser.NewClient(t)
//
//	resp, err := c.Request(ctx, "echo", []interface{}{"Hello JSON-RPC"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.Result())
//
// # From Configuration
//
// NewClientFromConfig assembles the whole stack from a config.Config:
//
//	cfg, err := config.Load("josser.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//	    log.Fatal(err)
//	}
//
//	rt, err := josser.NewClientFromConfig(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Shutdown(context.Background())
//
//	var sum int
//	err = rt.Client.CallInto(ctx, "add", []interface{}{1, 2}, &sum)
//
// # Errors
//
// Every failure is a JosserError. Remote faults carry the code, message and
// data sent by the server:
//
//	if fault, ok := errors.AsRPCFault(err); ok {
//	    fmt.Println(fault.Code, fault.Message)
//	}
package josser
