// Package transport provides a configuration-driven transport layer for
// JSON-RPC clients.
//
// A Transport performs exactly one exchange per Send: it writes an encoded
// payload and returns the raw reply bytes. It knows nothing about JSON-RPC;
// encoding, validation and id correlation happen above it. Transports never
// retry.
//
// # Supported Transport Types
//
// HTTPTransport:
//   - One POST per exchange, Content-Type taken from the codec
//   - The reply body is returned for any HTTP status
//   - Trace context is injected into request headers
//
// WebSocketTransport:
//   - One long-lived connection, dialed lazily and redialed after failures
//   - One exchange in flight at a time: write a frame, read a frame
//   - Notifications write a frame and read nothing
//
// # Usage
//
//	config := transport.DefaultTransportConfig(transport.TransportTypeHTTP)
//	config.Endpoint = "https://api.example.com/rpc"
//	config.Logger = logger
//	config.Features.EnableStats = true
//	t, err := transport.NewTransport(config)
//
// # Middleware System
//
// The transport layer uses a composable middleware system:
//
//   - LoggingMiddleware: structured logging of payload sizes and latency
//   - StatsMiddleware: in-process counters, read back with StatsOf
//   - RateLimitMiddleware: token bucket, waiting or failing fast
//   - CircuitBreakerMiddleware: fails fast while the endpoint keeps failing
//   - Custom middleware can be added through TransportConfig.Middleware
//
// Middleware embed Base, so a wrapped transport keeps the Notifier and
// io.Closer behavior of the transport underneath.
package transport
