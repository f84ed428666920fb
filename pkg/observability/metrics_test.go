package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jerrors "github.com/C3rb/Josser/pkg/errors"
)

func TestMetricsProviderRecords(t *testing.T) {
	p, err := NewMetricsProvider(MetricsConfig{ServiceVersion: "1.2.3"})
	require.NoError(t, err)

	ctx := context.Background()
	p.RecordCall(ctx, "echo", StatusSuccess, 12*time.Millisecond)
	p.RecordCall(ctx, "echo", StatusSuccess, 3*time.Millisecond)
	p.RecordCall(ctx, "echo", "remote", time.Millisecond)
	p.RecordNotification(ctx, "log", StatusSuccess, time.Millisecond)
	p.RecordInFlight(2)
	p.RecordInFlight(-1)
	p.RecordTransportSend(ctx, "send", StatusSuccess, time.Millisecond, 10, 20)
	p.RecordError(ctx, "remote", "echo")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.callTotal.WithLabelValues("echo", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.callTotal.WithLabelValues("echo", "remote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.notificationTotal.WithLabelValues("log", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.inFlight))
	assert.Equal(t, 10.0, testutil.ToFloat64(p.sendBytes.WithLabelValues("out")))
	assert.Equal(t, 20.0, testutil.ToFloat64(p.sendBytes.WithLabelValues("in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.errorTotal.WithLabelValues("remote", "echo")))
	assert.Equal(t, 2, testutil.CollectAndCount(p.callDuration))
}

func TestMetricsProviderUsesOwnRegistry(t *testing.T) {
	first, err := NewMetricsProvider(MetricsConfig{})
	require.NoError(t, err)
	second, err := NewMetricsProvider(MetricsConfig{})
	require.NoError(t, err)

	first.RecordCall(context.Background(), "a", StatusSuccess, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(second.callTotal.WithLabelValues("a", StatusSuccess)))

	shared := prometheus.NewRegistry()
	_, err = NewMetricsProvider(MetricsConfig{Registry: shared, IncludeRuntime: true})
	require.NoError(t, err)
	families, err := shared.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetricsHandler(t *testing.T) {
	p, err := NewMetricsProvider(MetricsConfig{Namespace: "test"})
	require.NoError(t, err)
	p.RecordCall(context.Background(), "sum", StatusSuccess, time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_call_total{method="sum",status="success"} 1`)
}

func TestMetricsServerStartShutdown(t *testing.T) {
	p, err := NewMetricsProvider(MetricsConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	addr := p.ListenAddr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "josser_calls_in_flight")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
	assert.Empty(t, p.ListenAddr())
	assert.NoError(t, p.Shutdown(ctx))
}

func TestMetricsServerPathAndMiddleware(t *testing.T) {
	var wrapped atomic.Int32
	p, err := NewMetricsProvider(MetricsConfig{
		Addr:        "127.0.0.1:0",
		MetricsPath: "/stats",
		Middleware: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				wrapped.Add(1)
				next.ServeHTTP(w, r)
			})
		},
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	tests := []struct {
		path string
		want int
	}{
		{"/stats", http.StatusOK},
		{"/metrics", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Get("http://" + p.ListenAddr() + tt.path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.want, resp.StatusCode, tt.path)
	}
	assert.EqualValues(t, 2, wrapped.Load())
}

func TestMetricsProviderKeepsCallerLabels(t *testing.T) {
	labels := prometheus.Labels{"region": "eu"}
	p, err := NewMetricsProvider(MetricsConfig{ServiceVersion: "1.2.3", ConstLabels: labels})
	require.NoError(t, err)

	assert.Equal(t, prometheus.Labels{"region": "eu"}, labels)

	p.RecordCall(context.Background(), "echo", StatusSuccess, 0)
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `josser_call_total{method="echo",region="eu",status="success",version="1.2.3"} 1`)
}

func TestMetricsServerListenFailure(t *testing.T) {
	p, err := NewMetricsProvider(MetricsConfig{Addr: "256.0.0.1:bad"})
	require.NoError(t, err)
	assert.Error(t, p.Start(context.Background()))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, StatusSuccess},
		{"plain", errors.New("x"), StatusError},
		{"fault", jerrors.NewRPCFault(1, "boom", nil), "remote"},
		{"transport", jerrors.TransportFailure("http://x", "down", nil), "transport"},
		{"invalid response", jerrors.InvalidResponse("bad"), "protocol"},
		{"invalid argument", jerrors.InvalidArgument("bad"), "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}
