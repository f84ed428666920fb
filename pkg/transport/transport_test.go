package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/C3rb/Josser/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransportValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *TransportConfig)
		wantErr error
		errText string
	}{
		{
			name:    "missing endpoint",
			mutate:  func(c *TransportConfig) { c.Endpoint = "" },
			wantErr: ErrEndpointRequired,
		},
		{
			name:    "unknown type",
			mutate:  func(c *TransportConfig) { c.Type = "carrier-pigeon" },
			wantErr: ErrUnsupportedTransportType,
		},
		{
			name:    "http with ws scheme",
			mutate:  func(c *TransportConfig) { c.Endpoint = "ws://localhost/rpc" },
			errText: "http transport needs an http(s) endpoint",
		},
		{
			name: "websocket with ftp scheme",
			mutate: func(c *TransportConfig) {
				c.Type = TransportTypeWebSocket
				c.Endpoint = "ftp://localhost/rpc"
			},
			errText: "websocket transport needs a ws(s) endpoint",
		},
		{
			name: "rate limiting without rate",
			mutate: func(c *TransportConfig) {
				c.Features.EnableRateLimiting = true
				c.RateLimit.RequestsPerSecond = 0
			},
			errText: "requests_per_second",
		},
		{
			name:   "valid http",
			mutate: func(c *TransportConfig) {},
		},
		{
			name: "valid websocket",
			mutate: func(c *TransportConfig) {
				c.Type = TransportTypeWebSocket
				c.Endpoint = "wss://localhost/rpc"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultTransportConfig(TransportTypeHTTP)
			config.Endpoint = "http://localhost:8080/rpc"
			tt.mutate(&config)

			tr, err := NewTransport(config)
			switch {
			case tt.wantErr != nil:
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			case tt.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
			default:
				require.NoError(t, err)
				assert.Equal(t, config.Endpoint, tr.Endpoint())
			}
		})
	}
}

func TestDefaultTransportConfig(t *testing.T) {
	config := DefaultTransportConfig(TransportTypeWebSocket)

	assert.Equal(t, TransportTypeWebSocket, config.Type)
	assert.True(t, config.Features.EnableLogging)
	assert.False(t, config.Features.EnableRateLimiting)
	assert.Equal(t, 30*time.Second, config.Connection.Timeout)
	assert.Equal(t, int64(1<<20), config.Connection.ReadLimit)
	assert.Equal(t, 100.0, config.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, config.CircuitBreaker.FailureThreshold)
}

func TestMiddlewareBuilderOrder(t *testing.T) {
	config := DefaultTransportConfig(TransportTypeHTTP)
	config.Logger = logging.NewNop()
	config.Features = FeatureConfig{
		EnableLogging:        true,
		EnableStats:          true,
		EnableRateLimiting:   true,
		EnableCircuitBreaker: true,
	}

	built := NewMiddlewareBuilder(config).Build()
	require.Len(t, built, 4)
	assert.IsType(t, &RateLimitMiddleware{}, built[0])
	assert.IsType(t, &LoggingMiddleware{}, built[1])
	assert.IsType(t, &StatsMiddleware{}, built[2])
	assert.IsType(t, &CircuitBreakerMiddleware{}, built[3])

	config.Logger = nil
	assert.Len(t, NewMiddlewareBuilder(config).Build(), 3, "logging needs a logger")
}

func TestNewTransportWithAllFeatures(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		body, _ := io.ReadAll(r.Body)
		if bytes.Contains(body, []byte(`"id":null`)) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		assert.Equal(t, "v1", r.Header.Get("X-Client"))
		_, _ = w.Write([]byte(`{"result":1,"error":null,"id":1}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	config := DefaultTransportConfig(TransportTypeHTTP)
	config.Endpoint = server.URL
	config.Logger = logging.New(logging.Config{Level: logging.DebugLevel, Output: &buf})
	config.Connection.Headers = map[string]string{"X-Client": "v1"}
	config.Features = FeatureConfig{
		EnableLogging:        true,
		EnableStats:          true,
		EnableRateLimiting:   true,
		EnableCircuitBreaker: true,
	}

	var customCalls atomic.Int32
	config.Middleware = []Middleware{MiddlewareFunc(func(next Transport) Transport {
		return &countingTransport{Base: Base{Next: next}, calls: &customCalls}
	})}

	tr, err := NewTransport(config)
	require.NoError(t, err)
	defer Close(tr)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		reply, err := tr.Send(ctx, []byte(`{"method":"m","params":[],"id":1}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"result":1,"error":null,"id":1}`, string(reply))
	}
	require.NoError(t, SendNotification(ctx, tr, []byte(`{"method":"n","params":[],"id":null}`)))

	assert.Equal(t, int32(4), requests.Load())
	assert.Equal(t, int32(3), customCalls.Load())

	stats, ok := StatsOf(tr)
	require.True(t, ok)
	assert.Equal(t, int64(3), stats.Sends.Success)
	assert.Equal(t, int64(1), stats.Notifications.Total)
	assert.Contains(t, buf.String(), "Reply received")
}

type countingTransport struct {
	Base
	calls *atomic.Int32
}

func (c *countingTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	c.calls.Add(1)
	return c.Base.Send(ctx, payload)
}
