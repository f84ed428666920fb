package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http", cfg.Transport.Type)
	assert.Equal(t, IDStrategyUUID, cfg.IDs.Strategy)
	assert.Equal(t, 30*time.Second, cfg.Transport.Timeout)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "josser.yaml", `
endpoint: ws://rpc.example.com/socket
transport:
  type: websocket
  timeout: 5s
  headers:
    Authorization: Bearer abc
codec: cbor
ids:
  strategy: sequence
  prefix: cli
metrics:
  enabled: true
rate_limit:
  enabled: true
  requests_per_second: 2.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://rpc.example.com/socket", cfg.Endpoint)
	assert.Equal(t, "websocket", cfg.Transport.Type)
	assert.Equal(t, 5*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, "Bearer abc", cfg.Transport.Headers["Authorization"])
	assert.Equal(t, "cbor", cfg.Codec)
	assert.Equal(t, IDStrategySequence, cfg.IDs.Strategy)
	assert.Equal(t, "cli", cfg.IDs.Prefix)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Addr, "unset keys keep defaults")
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	require.NoError(t, cfg.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "endpoint: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("JOSSER_ENDPOINT", "https://api.example.com/rpc")
	t.Setenv("JOSSER_TIMEOUT", "2.5")
	t.Setenv("JOSSER_CODEC", "cbor")
	t.Setenv("JOSSER_METRICS_ENABLED", "true")
	t.Setenv("JOSSER_METRICS_PATH", "/stats")
	t.Setenv("JOSSER_RATE_LIMIT_BURST", "3")
	t.Setenv("JOSSER_HEADERS", "X-Api-Key=k, X-Trace = on")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "https://api.example.com/rpc", cfg.Endpoint)
	assert.Equal(t, 2500*time.Millisecond, cfg.Transport.Timeout)
	assert.Equal(t, "cbor", cfg.Codec)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/stats", cfg.Metrics.Path)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, map[string]string{"X-Api-Key": "k", "X-Trace": "on"}, cfg.Transport.Headers)
}

func TestApplyEnvErrors(t *testing.T) {
	t.Setenv("JOSSER_METRICS_ENABLED", "maybe")
	t.Setenv("JOSSER_TIMEOUT", "soon")
	t.Setenv("JOSSER_HEADERS", "novalue")

	cfg := Default()
	err := cfg.ApplyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOSSER_METRICS_ENABLED")
	assert.Contains(t, err.Error(), "JOSSER_TIMEOUT")
	assert.Contains(t, err.Error(), "JOSSER_HEADERS")
}

func TestLoadEnvFiles(t *testing.T) {
	path := writeFile(t, "test.env", "JOSSER_TEST_FROM_FILE=loaded\nJOSSER_TEST_PRESET=file\n")
	t.Setenv("JOSSER_TEST_PRESET", "process")
	t.Cleanup(func() { os.Unsetenv("JOSSER_TEST_FROM_FILE") })

	require.NoError(t, LoadEnvFiles(path, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "loaded", GetEnv("TEST_FROM_FILE", ""))
	assert.Equal(t, "process", GetEnv("TEST_PRESET", ""), "existing variables win")
	assert.Equal(t, "fallback", GetEnv("TEST_UNSET", "fallback"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, "endpoint is required"},
		{"relative endpoint", func(c *Config) { c.Endpoint = "/rpc" }, "not an absolute URL"},
		{"bad transport", func(c *Config) { c.Transport.Type = "stdio" }, "transport type"},
		{"bad codec", func(c *Config) { c.Codec = "xml" }, "codec"},
		{"bad id strategy", func(c *Config) { c.IDs.Strategy = "random" }, "id strategy"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"metrics without addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }, "metrics addr"},
		{"bad exporter", func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "zipkin" }, "tracing exporter"},
		{"bad sample rate", func(c *Config) { c.Tracing.SampleRate = 2 }, "sample rate"},
		{"rate limit without rate", func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.RequestsPerSecond = 0
		}, "requests_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("joins every problem", func(t *testing.T) {
		cfg := Default()
		cfg.Codec = "xml"
		cfg.IDs.Strategy = "random"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "codec")
		assert.Contains(t, err.Error(), "id strategy")
	})
}
