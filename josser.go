package josser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/C3rb/Josser/pkg/client"
	"github.com/C3rb/Josser/pkg/config"
	"github.com/C3rb/Josser/pkg/endec"
	"github.com/C3rb/Josser/pkg/logging"
	"github.com/C3rb/Josser/pkg/observability"
	"github.com/C3rb/Josser/pkg/protocol"
	"github.com/C3rb/Josser/pkg/transport"
)

// Version represents the current version of the library
const Version = "0.1.0"

// These exports provide direct access to the core components
var (
	// NewClient creates a client on top of a transport
	NewClient = client.New

	// NewJSONRPC1 creates the JSON-RPC 1.0 protocol
	NewJSONRPC1 = protocol.NewJSONRPC1

	// NewHTTPTransport creates a new HTTP transport
	NewHTTPTransport = transport.NewHTTPTransport

	// NewWebSocketTransport creates a new WebSocket transport
	NewWebSocketTransport = transport.NewWebSocketTransport
)

// Runtime is a client assembled from configuration together with the
// observability providers it reports to. Metrics and Tracer are nil when
// disabled.
type Runtime struct {
	Client  *client.Client
	Logger  logging.Logger
	Metrics *observability.PrometheusMetricsProvider
	Tracer  *observability.TracingProvider
}

type buildOptions struct {
	logOutput  io.Writer
	httpClient *http.Client
	exporter   sdktrace.SpanExporter
	middleware []transport.Middleware
}

// Option adjusts how NewClientFromConfig assembles a Runtime.
type Option func(*buildOptions)

// WithLogOutput redirects log output, stderr by default.
func WithLogOutput(w io.Writer) Option {
	return func(o *buildOptions) {
		o.logOutput = w
	}
}

// WithHTTPClient sets the client used by HTTP requests and WebSocket
// handshakes.
func WithHTTPClient(c *http.Client) Option {
	return func(o *buildOptions) {
		o.httpClient = c
	}
}

// WithSpanExporter replaces the configured trace exporter.
func WithSpanExporter(e sdktrace.SpanExporter) Option {
	return func(o *buildOptions) {
		o.exporter = e
	}
}

// WithMiddleware adds transport middleware outside the observability layer.
func WithMiddleware(m ...transport.Middleware) Option {
	return func(o *buildOptions) {
		o.middleware = append(o.middleware, m...)
	}
}

// NewClientFromConfig builds a client with its codec, id strategy, transport
// middleware, metrics and tracing taken from cfg. The metrics server is not
// started; call Runtime.Metrics.Start to serve it.
func NewClientFromConfig(cfg config.Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{Level: level, Format: format, Output: o.logOutput})

	codec, err := endec.New(endec.Name(cfg.Codec))
	if err != nil {
		return nil, err
	}

	var ids protocol.IDGenerator = protocol.UUIDGenerator{}
	if cfg.IDs.Strategy == config.IDStrategySequence {
		ids = protocol.NewSequenceGenerator(cfg.IDs.Prefix)
	}

	rt := &Runtime{Logger: logger}

	if cfg.Metrics.Enabled {
		rt.Metrics, err = observability.NewMetricsProvider(observability.MetricsConfig{
			ServiceVersion: Version,
			Addr:           cfg.Metrics.Addr,
			MetricsPath:    cfg.Metrics.Path,
			Middleware:     logging.HTTPMiddleware(logger),
			ErrorLog:       logging.NewStdLogger(logger, logging.ErrorLevel),
			Namespace:      cfg.Metrics.Namespace,
			IncludeRuntime: true,
		})
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	if cfg.Tracing.Enabled {
		rt.Tracer, err = observability.NewTracingProvider(observability.TracingConfig{
			ServiceName:    "josser",
			ServiceVersion: Version,
			ExporterType:   observability.ExporterType(cfg.Tracing.Exporter),
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
			SampleRate:     cfg.Tracing.SampleRate,
			Exporter:       o.exporter,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing: %w", err)
		}
	}

	tcfg := transport.DefaultTransportConfig(transport.TransportType(strings.ToLower(cfg.Transport.Type)))
	tcfg.Endpoint = cfg.Endpoint
	tcfg.ContentType = codec.ContentType()
	tcfg.Logger = logger
	tcfg.HTTPClient = o.httpClient
	tcfg.Features.EnableStats = true
	tcfg.Features.EnableRateLimiting = cfg.RateLimit.Enabled
	tcfg.Features.EnableCircuitBreaker = cfg.CircuitBreaker.Enabled
	if cfg.Transport.Timeout > 0 {
		tcfg.Connection.Timeout = cfg.Transport.Timeout
	}
	if cfg.Transport.ReadLimit > 0 {
		tcfg.Connection.ReadLimit = cfg.Transport.ReadLimit
	}
	tcfg.Connection.Headers = cfg.Transport.Headers
	tcfg.RateLimit = transport.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.Burst,
		Wait:              cfg.RateLimit.Wait,
	}
	tcfg.CircuitBreaker = transport.CircuitBreakerConfig{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		SuccessThreshold: cfg.CircuitBreaker.SuccessThreshold,
		Timeout:          cfg.CircuitBreaker.Timeout,
	}
	tcfg.Middleware = o.middleware
	if rt.Metrics != nil || rt.Tracer != nil {
		mw := observability.MiddlewareConfig{Tracer: rt.Tracer}
		if rt.Metrics != nil {
			mw.Metrics = rt.Metrics
		}
		tcfg.Middleware = append(tcfg.Middleware, observability.NewTransportMiddleware(mw))
	}

	t, err := transport.NewTransport(tcfg)
	if err != nil {
		_ = rt.Shutdown(context.Background())
		return nil, err
	}

	clientOpts := []client.Option{
		client.WithProtocol(protocol.NewJSONRPC1(protocol.WithIDGenerator(ids))),
		client.WithEndec(codec),
		client.WithLogger(logger),
	}
	if rt.Metrics != nil {
		clientOpts = append(clientOpts, client.WithMetrics(rt.Metrics))
	}
	if rt.Tracer != nil {
		clientOpts = append(clientOpts, client.WithTracing(rt.Tracer))
	}
	rt.Client = client.New(t, clientOpts...)

	logger.Debug("Client ready",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("transport", string(tcfg.Type)),
		logging.String("codec", codec.ContentType()),
	)
	return rt, nil
}

// Shutdown closes the client and flushes the observability providers.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error
	if r.Client != nil {
		errs = append(errs, r.Client.Close())
	}
	if r.Metrics != nil {
		errs = append(errs, r.Metrics.Shutdown(ctx))
	}
	if r.Tracer != nil {
		errs = append(errs, r.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
