package observability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jerrors "github.com/C3rb/Josser/pkg/errors"
)

// Status labels
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	ServiceVersion string

	// HTTP server for the metrics endpoint
	Addr        string // listen address (default: :9090)
	MetricsPath string // HTTP path for metrics endpoint (default: /metrics)

	// Middleware wraps the server's handler, e.g. for access logs
	Middleware func(http.Handler) http.Handler
	// ErrorLog receives server errors; the standard logger when nil
	ErrorLog *log.Logger

	// Metric options
	Namespace        string    // Prometheus namespace (default: josser)
	Subsystem        string    // Prometheus subsystem
	HistogramBuckets []float64 // Custom histogram buckets for latency

	// Labels to add to all metrics
	ConstLabels prometheus.Labels

	// Registry receives the collectors. A fresh registry is used when nil.
	Registry *prometheus.Registry

	// IncludeRuntime registers the Go runtime and process collectors
	IncludeRuntime bool
}

// MetricsProvider records client-side JSON-RPC metrics
type MetricsProvider interface {
	// Calls as seen by the client: method plus outcome
	RecordCall(ctx context.Context, method, status string, duration time.Duration)
	RecordNotification(ctx context.Context, method, status string, duration time.Duration)
	RecordInFlight(delta int)

	// One transport exchange
	RecordTransportSend(ctx context.Context, kind, status string, duration time.Duration, bytesOut, bytesIn int)

	// Failures by error category
	RecordError(ctx context.Context, category, method string)

	// Exposition
	Handler() http.Handler
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// PrometheusMetricsProvider implements MetricsProvider using Prometheus
type PrometheusMetricsProvider struct {
	config   MetricsConfig
	registry *prometheus.Registry

	server   *http.Server
	addr     string
	serverMu sync.Mutex

	callDuration         *prometheus.HistogramVec
	callTotal            *prometheus.CounterVec
	notificationDuration *prometheus.HistogramVec
	notificationTotal    *prometheus.CounterVec
	inFlight             prometheus.Gauge

	sendDuration *prometheus.HistogramVec
	sendBytes    *prometheus.CounterVec

	errorTotal *prometheus.CounterVec
}

// NewMetricsProvider creates a new Prometheus metrics provider
func NewMetricsProvider(config MetricsConfig) (*PrometheusMetricsProvider, error) {
	if config.Namespace == "" {
		config.Namespace = "josser"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.Addr == "" {
		config.Addr = ":9090"
	}
	if config.HistogramBuckets == nil {
		// Default buckets for milliseconds
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	}
	config.ConstLabels = maps.Clone(config.ConstLabels)
	if config.ConstLabels == nil {
		config.ConstLabels = prometheus.Labels{}
	}
	if config.ServiceVersion != "" {
		config.ConstLabels["version"] = config.ServiceVersion
	}

	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	provider := &PrometheusMetricsProvider{
		config:   config,
		registry: registry,
	}
	provider.initializeMetrics()

	if err := provider.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return provider, nil
}

func (p *PrometheusMetricsProvider) histogram(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        name,
			Help:        help,
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		labels,
	)
}

func (p *PrometheusMetricsProvider) counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: p.config.ConstLabels,
		},
		labels,
	)
}

// initializeMetrics creates all metric collectors
func (p *PrometheusMetricsProvider) initializeMetrics() {
	p.callDuration = p.histogram("call_duration_milliseconds",
		"Duration of JSON-RPC calls in milliseconds", "method", "status")
	p.callTotal = p.counter("call_total",
		"Total number of JSON-RPC calls", "method", "status")

	p.notificationDuration = p.histogram("notification_duration_milliseconds",
		"Duration of JSON-RPC notifications in milliseconds", "method", "status")
	p.notificationTotal = p.counter("notification_total",
		"Total number of JSON-RPC notifications", "method", "status")

	p.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   p.config.Namespace,
		Subsystem:   p.config.Subsystem,
		Name:        "calls_in_flight",
		Help:        "Number of calls waiting for a reply",
		ConstLabels: p.config.ConstLabels,
	})

	p.sendDuration = p.histogram("transport_send_duration_milliseconds",
		"Duration of transport exchanges in milliseconds", "kind", "status")
	p.sendBytes = p.counter("transport_bytes_total",
		"Bytes moved by the transport", "direction")

	p.errorTotal = p.counter("error_total",
		"Total number of failed calls by error category", "category", "method")
}

// registerMetrics registers all metrics with the provider's registry
func (p *PrometheusMetricsProvider) registerMetrics() error {
	cs := []prometheus.Collector{
		p.callDuration,
		p.callTotal,
		p.notificationDuration,
		p.notificationTotal,
		p.inFlight,
		p.sendDuration,
		p.sendBytes,
		p.errorTotal,
	}
	if p.config.IncludeRuntime {
		cs = append(cs,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	for _, c := range cs {
		if err := p.registry.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

// Registry returns the registry holding the provider's collectors
func (p *PrometheusMetricsProvider) Registry() *prometheus.Registry {
	return p.registry
}

// RecordCall records a completed call
func (p *PrometheusMetricsProvider) RecordCall(ctx context.Context, method, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.callDuration.WithLabelValues(method, status).Observe(ms)
	p.callTotal.WithLabelValues(method, status).Inc()
}

// RecordNotification records an outgoing notification
func (p *PrometheusMetricsProvider) RecordNotification(ctx context.Context, method, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.notificationDuration.WithLabelValues(method, status).Observe(ms)
	p.notificationTotal.WithLabelValues(method, status).Inc()
}

// RecordInFlight adjusts the in-flight gauge
func (p *PrometheusMetricsProvider) RecordInFlight(delta int) {
	p.inFlight.Add(float64(delta))
}

// RecordTransportSend records one transport exchange. kind is "send" or
// "notify".
func (p *PrometheusMetricsProvider) RecordTransportSend(ctx context.Context, kind, status string, duration time.Duration, bytesOut, bytesIn int) {
	p.sendDuration.WithLabelValues(kind, status).Observe(float64(duration.Milliseconds()))
	p.sendBytes.WithLabelValues("out").Add(float64(bytesOut))
	p.sendBytes.WithLabelValues("in").Add(float64(bytesIn))
}

// RecordError counts a failure
func (p *PrometheusMetricsProvider) RecordError(ctx context.Context, category, method string) {
	p.errorTotal.WithLabelValues(category, method).Inc()
}

// Handler serves the provider's registry in the Prometheus exposition format
func (p *PrometheusMetricsProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Start starts the metrics HTTP server. A listen failure is returned; serve
// errors after that are dropped.
func (p *PrometheusMetricsProvider) Start(ctx context.Context) error {
	p.serverMu.Lock()
	defer p.serverMu.Unlock()

	if p.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", p.config.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener on %s: %w", p.config.Addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(p.config.MetricsPath, p.Handler())

	var handler http.Handler = mux
	if p.config.Middleware != nil {
		handler = p.config.Middleware(handler)
	}
	p.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          p.config.ErrorLog,
	}
	p.addr = ln.Addr().String()

	go func(srv *http.Server) {
		_ = srv.Serve(ln)
	}(p.server)

	return nil
}

// ListenAddr returns the address the metrics server listens on, or "" when
// it is not running.
func (p *PrometheusMetricsProvider) ListenAddr() string {
	p.serverMu.Lock()
	defer p.serverMu.Unlock()
	return p.addr
}

// Shutdown gracefully shuts down the metrics server
func (p *PrometheusMetricsProvider) Shutdown(ctx context.Context) error {
	p.serverMu.Lock()
	defer p.serverMu.Unlock()

	if p.server == nil {
		return nil
	}
	err := p.server.Shutdown(ctx)
	p.server = nil
	p.addr = ""
	return err
}

// StatusOf maps an error to a status label: "success" for nil, otherwise the
// error category of a JosserError, otherwise "error".
func StatusOf(err error) string {
	if err == nil {
		return StatusSuccess
	}
	if jerr, ok := jerrors.AsJosserError(err); ok {
		return string(jerr.Category())
	}
	return StatusError
}
