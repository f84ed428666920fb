package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "JOSSER_"

// LoadEnvFiles loads .env files into the process environment. Variables that
// are already set win. Missing files are skipped; with no arguments ".env" is
// tried.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// GetEnv returns the JOSSER_-prefixed variable key, or def when it is unset
// or empty.
func GetEnv(key, def string) string {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
		return v
	}
	return def
}

// ApplyEnv overrides fields from JOSSER_* variables. Headers come from
// JOSSER_HEADERS as comma separated Name=Value pairs.
func (c *Config) ApplyEnv() error {
	var errs []error

	c.Endpoint = GetEnv("ENDPOINT", c.Endpoint)
	c.Transport.Type = GetEnv("TRANSPORT", c.Transport.Type)
	c.Codec = GetEnv("CODEC", c.Codec)
	c.IDs.Strategy = GetEnv("ID_STRATEGY", c.IDs.Strategy)
	c.IDs.Prefix = GetEnv("ID_PREFIX", c.IDs.Prefix)
	c.Log.Level = GetEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = GetEnv("LOG_FORMAT", c.Log.Format)
	c.Metrics.Addr = GetEnv("METRICS_ADDR", c.Metrics.Addr)
	c.Metrics.Path = GetEnv("METRICS_PATH", c.Metrics.Path)
	c.Metrics.Namespace = GetEnv("METRICS_NAMESPACE", c.Metrics.Namespace)
	c.Tracing.Exporter = GetEnv("TRACING_EXPORTER", c.Tracing.Exporter)
	c.Tracing.Endpoint = GetEnv("TRACING_ENDPOINT", c.Tracing.Endpoint)

	envDuration(&errs, "TIMEOUT", &c.Transport.Timeout)
	envBool(&errs, "METRICS_ENABLED", &c.Metrics.Enabled)
	envBool(&errs, "TRACING_ENABLED", &c.Tracing.Enabled)
	envBool(&errs, "TRACING_INSECURE", &c.Tracing.Insecure)
	envFloat(&errs, "TRACING_SAMPLE_RATE", &c.Tracing.SampleRate)
	envBool(&errs, "RATE_LIMIT_ENABLED", &c.RateLimit.Enabled)
	envFloat(&errs, "RATE_LIMIT_RPS", &c.RateLimit.RequestsPerSecond)
	envInt(&errs, "RATE_LIMIT_BURST", &c.RateLimit.Burst)
	envBool(&errs, "CIRCUIT_BREAKER_ENABLED", &c.CircuitBreaker.Enabled)

	if raw := GetEnv("HEADERS", ""); raw != "" {
		if c.Transport.Headers == nil {
			c.Transport.Headers = make(map[string]string)
		}
		for _, pair := range strings.Split(raw, ",") {
			name, value, ok := strings.Cut(pair, "=")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				errs = append(errs, fmt.Errorf("%sHEADERS: malformed pair %q", EnvPrefix, pair))
				continue
			}
			c.Transport.Headers[name] = strings.TrimSpace(value)
		}
	}

	return errors.Join(errs...)
}

func envBool(errs *[]error, key string, dst *bool) {
	raw := GetEnv(key, "")
	if raw == "" {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = v
}

func envInt(errs *[]error, key string, dst *int) {
	raw := GetEnv(key, "")
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = v
}

func envFloat(errs *[]error, key string, dst *float64) {
	raw := GetEnv(key, "")
	if raw == "" {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = v
}

// envDuration accepts Go durations ("10s") or plain seconds ("2.5").
func envDuration(errs *[]error, key string, dst *time.Duration) {
	raw := GetEnv(key, "")
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*dst = d
		return
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s%s: invalid duration %q", EnvPrefix, key, raw))
		return
	}
	*dst = time.Duration(f * float64(time.Second))
}
