package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/C3rb/Josser/pkg/logging"
)

// Transport delivers a payload and returns the reply bytes.
type Transport interface {
	// Send performs one request/reply exchange. Failures are TransportFailure
	// errors naming the endpoint.
	Send(ctx context.Context, payload []byte) ([]byte, error)

	// Endpoint identifies the remote side, e.g. its URL.
	Endpoint() string
}

// Notifier is implemented by transports that can deliver a payload without
// waiting for a reply.
type Notifier interface {
	Notify(ctx context.Context, payload []byte) error
}

// SendNotification delivers a fire-and-forget payload. Transports that are not
// Notifiers get a regular Send whose reply is discarded.
func SendNotification(ctx context.Context, t Transport, payload []byte) error {
	if n, ok := t.(Notifier); ok {
		return n.Notify(ctx, payload)
	}
	_, err := t.Send(ctx, payload)
	return err
}

// Close releases t if it holds resources.
func Close(t Transport) error {
	if c, ok := t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// TransportType identifies the base transport implementation
type TransportType string

const (
	TransportTypeHTTP      TransportType = "http"
	TransportTypeWebSocket TransportType = "websocket"
)

// TransportConfig is the unified configuration for all transports
type TransportConfig struct {
	// Type of transport to create
	Type TransportType `json:"type" yaml:"type"`

	// Endpoint is the remote URL
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// ContentType labels outgoing payloads; it follows the codec in use.
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`

	// Feature configuration
	Features FeatureConfig `json:"features" yaml:"features"`

	// Component configurations
	Connection     ConnectionConfig     `json:"connection" yaml:"connection"`
	RateLimit      RateLimitConfig      `json:"rate_limit" yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`

	// Logger used by the logging middleware
	Logger logging.Logger `json:"-" yaml:"-"`

	// HTTPClient overrides the client of HTTP-based transports
	HTTPClient *http.Client `json:"-" yaml:"-"`

	// Middleware is applied outside the built-in middleware, first entry
	// outermost.
	Middleware []Middleware `json:"-" yaml:"-"`
}

// FeatureConfig controls which middleware are enabled
type FeatureConfig struct {
	EnableLogging        bool `json:"enable_logging" yaml:"enable_logging"`
	EnableStats          bool `json:"enable_stats" yaml:"enable_stats"`
	EnableRateLimiting   bool `json:"enable_rate_limiting" yaml:"enable_rate_limiting"`
	EnableCircuitBreaker bool `json:"enable_circuit_breaker" yaml:"enable_circuit_breaker"`
}

// ConnectionConfig for connection management
type ConnectionConfig struct {
	Timeout         time.Duration     `json:"timeout" yaml:"timeout"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	MaxIdleConns    int               `json:"max_idle_conns" yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration     `json:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	// ReadLimit caps the size of a reply (HTTP body or WebSocket frame) in bytes
	ReadLimit int64 `json:"read_limit" yaml:"read_limit"`
}

// RateLimitConfig configures the token bucket of the rate-limit middleware
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `json:"burst_size" yaml:"burst_size"`
	// Wait blocks until a token is available instead of failing fast
	Wait bool `json:"wait" yaml:"wait"`
}

// CircuitBreakerConfig for circuit breaker pattern
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold" yaml:"failure_threshold"`
	SuccessThreshold int           `json:"success_threshold" yaml:"success_threshold"`
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`
}

// Errors
var (
	ErrUnsupportedTransportType = errors.New("unsupported transport type")
	ErrEndpointRequired         = errors.New("endpoint is required")
)

// NewTransport creates a new transport with the specified configuration
func NewTransport(config TransportConfig) (Transport, error) {
	if err := validateTransportConfig(config); err != nil {
		return nil, err
	}

	var base Transport
	switch config.Type {
	case TransportTypeHTTP:
		base = newHTTPTransportFromConfig(config)
	case TransportTypeWebSocket:
		base = newWebSocketTransportFromConfig(config)
	default:
		return nil, ErrUnsupportedTransportType
	}

	builder := NewMiddlewareBuilder(config)
	return ChainMiddleware(builder.Build()...).Wrap(base), nil
}

// validateTransportConfig validates the transport configuration
func validateTransportConfig(config TransportConfig) error {
	if config.Endpoint == "" {
		return ErrEndpointRequired
	}
	u, err := url.Parse(config.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", config.Endpoint, err)
	}

	switch config.Type {
	case TransportTypeHTTP:
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("http transport needs an http(s) endpoint, got %q", config.Endpoint)
		}
	case TransportTypeWebSocket:
		if u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("websocket transport needs a ws(s) endpoint, got %q", config.Endpoint)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedTransportType, config.Type)
	}

	if config.Features.EnableRateLimiting && config.RateLimit.RequestsPerSecond <= 0 {
		return errors.New("rate limiting needs a positive requests_per_second")
	}
	return nil
}

// DefaultTransportConfig returns a transport configuration with sensible defaults
func DefaultTransportConfig(transportType TransportType) TransportConfig {
	return TransportConfig{
		Type: transportType,
		Features: FeatureConfig{
			EnableLogging: true,
		},
		Connection: ConnectionConfig{
			Timeout:         30 * time.Second,
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
			ReadLimit:       1 << 20,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			BurstSize:         10,
			Wait:              true,
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          60 * time.Second,
		},
	}
}
