package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sync/errgroup"

	"github.com/C3rb/Josser/pkg/endec"
	jerrors "github.com/C3rb/Josser/pkg/errors"
	"github.com/C3rb/Josser/pkg/logging"
	"github.com/C3rb/Josser/pkg/observability"
	"github.com/C3rb/Josser/pkg/protocol"
	"github.com/C3rb/Josser/pkg/transport"
)

// rpcServer is a small JSON-RPC 1.0 service used by the tests.
type rpcServer struct {
	mu            sync.Mutex
	notifications []string
	requests      atomic.Int32
}

func (s *rpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		ID     json.RawMessage   `json:"id"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if string(req.ID) == "null" {
		s.mu.Lock()
		s.notifications = append(s.notifications, req.Method)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	id := string(req.ID)
	switch req.Method {
	case "echo":
		fmt.Fprintf(w, `{"result":%s,"error":null,"id":%s}`, req.Params[0], id)
	case "add":
		var a, b int
		_ = json.Unmarshal(req.Params[0], &a)
		_ = json.Unmarshal(req.Params[1], &b)
		fmt.Fprintf(w, `{"result":%d,"error":null,"id":%s}`, a+b, id)
	case "profile":
		fmt.Fprintf(w, `{"result":{"name":"Ada","age":36},"error":null,"id":%s}`, id)
	case "fail":
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `{"result":null,"error":{"code":-32000,"message":"boom","data":{"hint":"retry later"}},"id":%s}`, id)
	case "wrongid":
		fmt.Fprint(w, `{"result":1,"error":null,"id":"someone-else"}`)
	case "garbage":
		fmt.Fprint(w, `<html>oops</html>`)
	case "malformed":
		fmt.Fprintf(w, `{"error":{"code":"x","message":"bad"},"id":%s}`, id)
	default:
		fmt.Fprintf(w, `{"result":null,"error":{"code":-32601,"message":"Method not found"},"id":%s}`, id)
	}
}

func (s *rpcServer) notified() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notifications...)
}

func newTestClient(t *testing.T, options ...Option) (*Client, *rpcServer) {
	t.Helper()
	srv := &rpcServer{}
	server := httptest.NewServer(srv)
	t.Cleanup(server.Close)
	return New(transport.NewHTTPTransport(server.URL), options...), srv
}

func TestClientRequest(t *testing.T) {
	c, _ := newTestClient(t)

	resp, err := c.Request(context.Background(), "echo", []interface{}{"Hello JSON-RPC"})
	require.NoError(t, err)
	assert.Equal(t, "Hello JSON-RPC", resp.Result())
	assert.NotNil(t, resp.ID())
}

func TestClientSequenceIDs(t *testing.T) {
	p := protocol.NewJSONRPC1(protocol.WithIDGenerator(protocol.NewSequenceGenerator("")))
	c, _ := newTestClient(t, WithProtocol(p))

	for want := int64(1); want <= 3; want++ {
		resp, err := c.Request(context.Background(), "add", []interface{}{1, 2})
		require.NoError(t, err)
		assert.Equal(t, json.Number("3"), resp.Result())
		assert.Equal(t, json.Number(fmt.Sprint(want)), resp.ID())
	}
}

func TestClientRequestWithID(t *testing.T) {
	c, _ := newTestClient(t)

	resp, err := c.RequestWithID(context.Background(), "echo", []interface{}{1}, "custom-7")
	require.NoError(t, err)
	assert.Equal(t, "custom-7", resp.ID())
}

func TestClientCallInto(t *testing.T) {
	c, _ := newTestClient(t)

	var sum int
	require.NoError(t, c.CallInto(context.Background(), "add", []interface{}{20, 22}, &sum))
	assert.Equal(t, 42, sum)

	var profile struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	require.NoError(t, c.CallInto(context.Background(), "profile", nil, &profile))
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, 36, profile.Age)

	var wrong []string
	err := c.CallInto(context.Background(), "profile", nil, &wrong)
	require.Error(t, err)
	assert.True(t, jerrors.IsInvalidResponse(err))

	assert.NoError(t, c.CallInto(context.Background(), "add", []interface{}{1, 1}, nil))
}

func TestClientRPCFault(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Request(context.Background(), "fail", nil)
	require.Error(t, err)
	assert.True(t, jerrors.IsRPCFault(err))
	assert.Equal(t, "boom", err.Error())

	fault, ok := jerrors.AsRPCFault(err)
	require.True(t, ok)
	assert.Equal(t, -32000, fault.Code)
	assert.Equal(t, map[string]interface{}{"hint": "retry later"}, fault.Data)

	_, err = c.Request(context.Background(), "nope", nil)
	fault, ok = jerrors.AsRPCFault(err)
	require.True(t, ok)
	assert.Equal(t, jerrors.CodeMethodNotFound, fault.Code)
}

func TestClientBadReplies(t *testing.T) {
	tests := []struct {
		method string
		code   int
	}{
		{"wrongid", jerrors.CodeIDMismatch},
		{"garbage", jerrors.CodeInvalidResponse},
		{"malformed", jerrors.CodeInvalidResponse},
	}

	c, _ := newTestClient(t)
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			_, err := c.Request(context.Background(), tt.method, nil)
			require.Error(t, err)
			assert.True(t, jerrors.IsInvalidResponse(err), "got %v", err)
			assert.True(t, jerrors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestClientInvalidRequest(t *testing.T) {
	c, srv := newTestClient(t)

	_, err := c.Request(context.Background(), "echo", map[string]interface{}{"named": true})
	require.Error(t, err)
	assert.True(t, jerrors.IsInvalidArgument(err))

	_, err = c.Request(context.Background(), "", nil)
	assert.True(t, jerrors.IsInvalidArgument(err))

	_, err = c.Call(context.Background(), nil)
	assert.True(t, jerrors.IsInvalidArgument(err))

	assert.Equal(t, int32(0), srv.requests.Load(), "invalid requests never reach the wire")
}

func TestClientNotify(t *testing.T) {
	c, srv := newTestClient(t)

	require.NoError(t, c.Notify(context.Background(), "log", []interface{}{"started"}))
	assert.Equal(t, []string{"log"}, srv.notified())

	reply, err := c.Call(context.Background(), protocol.NewNotification("log", nil))
	require.NoError(t, err)
	assert.False(t, reply.HasResponse())
}

func TestClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	c := New(transport.NewHTTPTransport(endpoint))
	_, err := c.Request(context.Background(), "echo", []interface{}{1})
	require.Error(t, err)
	assert.True(t, jerrors.IsTransportFailure(err))

	got, ok := jerrors.EndpointOf(err)
	require.True(t, ok)
	assert.Equal(t, endpoint, got)
}

func TestClientLogsWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.DebugLevel, Output: &buf})
	c, _ := newTestClient(t, WithLogger(logger))

	_, err := c.RequestWithID(context.Background(), "echo", []interface{}{"x"}, "req-42")
	require.NoError(t, err)
	_, err = c.Request(context.Background(), "fail", nil)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-42"`)
	assert.Contains(t, out, `"method":"echo"`)
	assert.Contains(t, out, "Call completed")
	assert.Contains(t, out, "Call failed")
	assert.Contains(t, out, `"error_category":"remote"`)
}

func TestClientErrorContext(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.DebugLevel, Output: &buf})
	down := New(transport.NewHTTPTransport(endpoint), WithLogger(logger))
	up, _ := newTestClient(t)

	tests := []struct {
		name      string
		call      func() error
		requestID string
		method    string
		endpoint  string
		operation string
		check     func(t *testing.T, err error)
	}{
		{
			name: "transport failure",
			call: func() error {
				_, err := down.RequestWithID(context.Background(), "echo", []interface{}{1}, 7)
				return err
			},
			requestID: "7",
			method:    "echo",
			endpoint:  endpoint,
			operation: "call",
			check: func(t *testing.T, err error) {
				assert.True(t, jerrors.IsTransportFailure(err))
				assert.Error(t, errors.Unwrap(err), "cause is kept")
			},
		},
		{
			name: "remote fault",
			call: func() error {
				_, err := up.RequestWithID(context.Background(), "fail", nil, "f-1")
				return err
			},
			requestID: "f-1",
			method:    "fail",
			endpoint:  up.Transport().Endpoint(),
			operation: "call",
			check: func(t *testing.T, err error) {
				fault, ok := jerrors.AsRPCFault(err)
				require.True(t, ok)
				assert.Equal(t, -32000, fault.Code)
			},
		},
		{
			name: "notification failure",
			call: func() error {
				return down.Notify(context.Background(), "log", nil)
			},
			method:    "log",
			endpoint:  endpoint,
			operation: "notify",
			check: func(t *testing.T, err error) {
				assert.True(t, jerrors.IsTransportFailure(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			tt.check(t, err)

			jerr, ok := jerrors.AsJosserError(err)
			require.True(t, ok)
			ctx := jerr.Context()
			require.NotNil(t, ctx)
			assert.Equal(t, tt.requestID, ctx.RequestID)
			assert.Equal(t, tt.method, ctx.Method)
			assert.Equal(t, tt.endpoint, ctx.Endpoint)
			assert.Equal(t, "client", ctx.Component)
			assert.Equal(t, tt.operation, ctx.Operation)
			assert.False(t, ctx.Timestamp.IsZero())
		})
	}

	out := buf.String()
	assert.Contains(t, out, `"request_id":"7"`)
	assert.Contains(t, out, `"endpoint":"`+endpoint+`"`)
	assert.Contains(t, out, `"operation":"notify"`)
}

func TestClientMetricsAndTracing(t *testing.T) {
	metrics, err := observability.NewMetricsProvider(observability.MetricsConfig{Namespace: "test"})
	require.NoError(t, err)

	exporter := tracetest.NewInMemoryExporter()
	tracer, err := observability.NewTracingProvider(observability.TracingConfig{Exporter: exporter})
	require.NoError(t, err)
	defer tracer.Shutdown(context.Background())

	c, _ := newTestClient(t, WithMetrics(metrics), WithTracing(tracer))

	_, err = c.Request(context.Background(), "echo", []interface{}{1})
	require.NoError(t, err)
	_, err = c.Request(context.Background(), "fail", nil)
	require.Error(t, err)
	require.NoError(t, c.Notify(context.Background(), "log", nil))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `test_call_total{method="echo",status="success"} 1`)
	assert.Contains(t, body, `test_call_total{method="fail",status="remote"} 1`)
	assert.Contains(t, body, `test_notification_total{method="log",status="success"} 1`)
	assert.Contains(t, body, `test_error_total{category="remote",method="fail"} 1`)

	assert.Contains(t, body, "test_calls_in_flight 0")

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "echo", spans[0].Name)
	assert.Equal(t, "fail", spans[1].Name)
	assert.Equal(t, "log", spans[2].Name)
}

func TestClientConcurrentRequests(t *testing.T) {
	c, srv := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := 0; i < 50; i++ {
		i := i
		g.Go(func() error {
			resp, err := c.Request(ctx, "echo", []interface{}{i})
			if err != nil {
				return err
			}
			if resp.Result() != json.Number(fmt.Sprint(i)) {
				return fmt.Errorf("call %d got %v", i, resp.Result())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(50), srv.requests.Load())
}

// loopback answers CBOR encoded requests in process.
type loopback struct {
	codec endec.Endec
}

func (l *loopback) Send(ctx context.Context, payload []byte) ([]byte, error) {
	var req struct {
		Method string        `cbor:"method"`
		Params []interface{} `cbor:"params"`
		ID     interface{}   `cbor:"id"`
	}
	if err := l.codec.DecodeInto(payload, &req); err != nil {
		return nil, err
	}
	return l.codec.Encode(map[string]interface{}{
		"result": req.Params,
		"error":  nil,
		"id":     req.ID,
	})
}

func (l *loopback) Endpoint() string { return "loopback" }

func TestClientCBOR(t *testing.T) {
	codec, err := endec.NewCBOR()
	require.NoError(t, err)

	c := New(&loopback{codec: codec}, WithEndec(codec))
	resp, err := c.Request(context.Background(), "echo", []interface{}{"a", 1, true})
	require.NoError(t, err)

	result, ok := resp.Result().([]interface{})
	require.True(t, ok, "got %T", resp.Result())
	require.Len(t, result, 3)
	assert.Equal(t, "a", result[0])
	assert.EqualValues(t, 1, result[1])
	assert.Equal(t, true, result[2])
	assert.NoError(t, c.Close())
}
