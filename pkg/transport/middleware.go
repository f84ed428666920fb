package transport

import (
	"context"
)

// Middleware represents a transport middleware that can wrap a transport
// to add additional functionality like logging, rate limiting, etc.
type Middleware interface {
	// Wrap wraps the given transport with middleware functionality
	Wrap(transport Transport) Transport
}

// MiddlewareFunc is an adapter to allow the use of ordinary functions as middleware
type MiddlewareFunc func(Transport) Transport

// Wrap implements the Middleware interface
func (f MiddlewareFunc) Wrap(t Transport) Transport {
	return f(t)
}

// ChainMiddleware chains multiple middleware together
func ChainMiddleware(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(transport Transport) Transport {
		// Apply middleware in reverse order so the first middleware is the outermost
		for i := len(middleware) - 1; i >= 0; i-- {
			transport = middleware[i].Wrap(transport)
		}
		return transport
	})
}

// Base is embedded by middleware implementations. It delegates every call to
// the wrapped transport, keeping the Notifier and io.Closer capabilities of
// the transport underneath.
type Base struct {
	Next Transport
}

// Send delegates to the wrapped transport
func (m *Base) Send(ctx context.Context, payload []byte) ([]byte, error) {
	return m.Next.Send(ctx, payload)
}

// Endpoint delegates to the wrapped transport
func (m *Base) Endpoint() string {
	return m.Next.Endpoint()
}

// Notify delegates to the wrapped transport
func (m *Base) Notify(ctx context.Context, payload []byte) error {
	return SendNotification(ctx, m.Next, payload)
}

// Close delegates to the wrapped transport
func (m *Base) Close() error {
	return Close(m.Next)
}

// Unwrap returns the wrapped transport
func (m *Base) Unwrap() Transport {
	return m.Next
}

// MiddlewareBuilder builds middleware from configuration
type MiddlewareBuilder struct {
	config TransportConfig
}

// NewMiddlewareBuilder creates a new middleware builder
func NewMiddlewareBuilder(config TransportConfig) *MiddlewareBuilder {
	return &MiddlewareBuilder{config: config}
}

// Build constructs the middleware chain based on configuration, outermost
// first. Rate limiting sits outside everything so waiting for a token is not
// counted as send latency.
func (mb *MiddlewareBuilder) Build() []Middleware {
	var middleware []Middleware

	if mb.config.Features.EnableRateLimiting {
		middleware = append(middleware, NewRateLimitMiddleware(mb.config.RateLimit))
	}

	middleware = append(middleware, mb.config.Middleware...)

	if mb.config.Features.EnableLogging && mb.config.Logger != nil {
		middleware = append(middleware, NewLoggingMiddleware(mb.config.Logger))
	}

	if mb.config.Features.EnableStats {
		middleware = append(middleware, NewStatsMiddleware())
	}

	if mb.config.Features.EnableCircuitBreaker {
		middleware = append(middleware, NewCircuitBreakerMiddleware(mb.config.CircuitBreaker))
	}

	return middleware
}
