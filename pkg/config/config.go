// Package config loads client configuration from YAML files, .env files and
// JOSSER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ID strategies
const (
	IDStrategyUUID     = "uuid"
	IDStrategySequence = "sequence"
)

// Config is the complete client configuration.
type Config struct {
	Endpoint       string               `yaml:"endpoint"`
	Transport      TransportConfig      `yaml:"transport"`
	Codec          string               `yaml:"codec"`
	IDs            IDConfig             `yaml:"ids"`
	Log            LogConfig            `yaml:"log"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Tracing        TracingConfig        `yaml:"tracing"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// TransportConfig selects and tunes the transport.
type TransportConfig struct {
	Type      string            `yaml:"type"`
	Timeout   time.Duration     `yaml:"timeout"`
	Headers   map[string]string `yaml:"headers"`
	ReadLimit int64             `yaml:"read_limit"`
}

// IDConfig selects how request ids are generated.
type IDConfig struct {
	Strategy string `yaml:"strategy"`
	Prefix   string `yaml:"prefix"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Exporter   string  `yaml:"exporter"`
	Endpoint   string  `yaml:"endpoint"`
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sample_rate"`
}

// RateLimitConfig configures the client-side token bucket.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	Wait              bool    `yaml:"wait"`
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// Default returns a configuration usable against a local HTTP endpoint.
func Default() Config {
	return Config{
		Endpoint: "http://localhost:8080/rpc",
		Transport: TransportConfig{
			Type:      "http",
			Timeout:   30 * time.Second,
			ReadLimit: 1 << 20,
		},
		Codec: "json",
		IDs:   IDConfig{Strategy: IDStrategyUUID},
		Log:   LogConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{
			Addr:      ":9090",
			Path:      "/metrics",
			Namespace: "josser",
		},
		Tracing: TracingConfig{
			Exporter:   "otlp-grpc",
			SampleRate: 1.0,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             10,
			Wait:              true,
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          60 * time.Second,
		},
	}
}

// Load reads a YAML file on top of Default. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile populates the config from a YAML file. Fields already set remain
// unless overwritten by corresponding entries in the file.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required"))
	} else if u, err := url.Parse(c.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("endpoint %q is not an absolute URL", c.Endpoint))
	}

	switch strings.ToLower(c.Transport.Type) {
	case "http", "websocket":
	default:
		errs = append(errs, fmt.Errorf("transport type %q must be http or websocket", c.Transport.Type))
	}
	if c.Transport.Timeout < 0 {
		errs = append(errs, errors.New("transport timeout must not be negative"))
	}

	switch strings.ToLower(c.Codec) {
	case "json", "cbor":
	default:
		errs = append(errs, fmt.Errorf("codec %q must be json or cbor", c.Codec))
	}

	switch c.IDs.Strategy {
	case IDStrategyUUID, IDStrategySequence:
	default:
		errs = append(errs, fmt.Errorf("id strategy %q must be uuid or sequence", c.IDs.Strategy))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console", "text":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be json or console", c.Log.Format))
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics addr is required when metrics are enabled"))
	}

	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp-grpc", "otlp-http", "noop":
		default:
			errs = append(errs, fmt.Errorf("tracing exporter %q must be otlp-grpc, otlp-http or noop", c.Tracing.Exporter))
		}
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("tracing sample rate %v must be within [0, 1]", c.Tracing.SampleRate))
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("rate limit requests_per_second must be positive"))
	}

	return errors.Join(errs...)
}
