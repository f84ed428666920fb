package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	jerrors "github.com/C3rb/Josser/pkg/errors"
)

// DefaultContentType labels payloads when no codec-specific type is set.
const DefaultContentType = "application/json"

// DefaultMaxResponseBytes caps the size of a reply body.
const DefaultMaxResponseBytes = 32 << 20

const defaultHTTPTimeout = 30 * time.Second

// HTTPTransport implements Transport with one HTTP POST per exchange.
//
// The reply body is returned for any HTTP status: JSON-RPC services commonly
// send error objects with 4xx/5xx codes. Only an error status with an empty
// body is a transport failure.
type HTTPTransport struct {
	endpoint         string
	client           *http.Client
	timeout          time.Duration
	maxResponseBytes int64
	contentType      string
	headers          map[string]string
	mu               sync.RWMutex
}

// HTTPOption configures an HTTPTransport
type HTTPOption func(*HTTPTransport)

// WithHTTPClient sets the client used for requests
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithTimeout sets the timeout of the default client. A client passed to
// WithHTTPClient keeps its own timeout.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(t *HTTPTransport) {
		t.timeout = timeout
	}
}

// WithMaxResponseBytes caps the size of a reply body
func WithMaxResponseBytes(n int64) HTTPOption {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.maxResponseBytes = n
		}
	}
}

// WithContentType sets the Content-Type of outgoing payloads
func WithContentType(contentType string) HTTPOption {
	return func(t *HTTPTransport) {
		if contentType != "" {
			t.contentType = contentType
		}
	}
}

// WithHeaders adds headers sent with every request
func WithHeaders(headers map[string]string) HTTPOption {
	return func(t *HTTPTransport) {
		for k, v := range headers {
			t.headers[k] = v
		}
	}
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(endpoint string, options ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		endpoint:         endpoint,
		timeout:          defaultHTTPTimeout,
		maxResponseBytes: DefaultMaxResponseBytes,
		contentType:      DefaultContentType,
		headers:          make(map[string]string),
	}
	for _, opt := range options {
		opt(t)
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: t.timeout}
	}
	return t
}

func newHTTPTransportFromConfig(config TransportConfig) *HTTPTransport {
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: config.Connection.Timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				MaxIdleConns:    config.Connection.MaxIdleConns,
				IdleConnTimeout: config.Connection.IdleConnTimeout,
			},
		}
	}
	return NewHTTPTransport(config.Endpoint,
		WithHTTPClient(client),
		WithMaxResponseBytes(config.Connection.ReadLimit),
		WithContentType(config.ContentType),
		WithHeaders(config.Connection.Headers),
	)
}

// SetHeader sets a HTTP header for all requests
func (t *HTTPTransport) SetHeader(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.headers[key] = value
}

// Endpoint implements Transport
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// Send implements Transport
func (t *HTTPTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	resp, err := t.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxResponseBytes+1))
	if err != nil {
		return nil, jerrors.TransportFailure(t.endpoint,
			fmt.Sprintf("JSON-RPC http response from %q could not be read.", t.endpoint), err)
	}
	if int64(len(body)) > t.maxResponseBytes {
		return nil, jerrors.TransportFailure(t.endpoint,
			fmt.Sprintf("JSON-RPC http response from %q exceeds %d bytes.", t.endpoint, t.maxResponseBytes), nil)
	}

	if len(body) == 0 && resp.StatusCode >= http.StatusBadRequest {
		return nil, jerrors.TransportFailure(t.endpoint,
			fmt.Sprintf("JSON-RPC http request to %q failed with status %d.", t.endpoint, resp.StatusCode), nil)
	}
	return body, nil
}

// Notify implements Notifier. The reply body, if any, is discarded.
func (t *HTTPTransport) Notify(ctx context.Context, payload []byte) error {
	resp, err := t.post(ctx, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, t.maxResponseBytes))
	if resp.StatusCode >= http.StatusBadRequest {
		return jerrors.TransportFailure(t.endpoint,
			fmt.Sprintf("JSON-RPC http notification to %q failed with status %d.", t.endpoint, resp.StatusCode), nil)
	}
	return nil
}

func (t *HTTPTransport) post(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, jerrors.TransportFailure(t.endpoint, "JSON-RPC http request could not be built.", err)
	}

	req.Header.Set("Content-Type", t.contentType)
	req.Header.Set("Accept", t.contentType)
	t.mu.RLock()
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	t.mu.RUnlock()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, jerrors.ConnectionFailed("http", t.endpoint, err)
	}
	return resp, nil
}
