package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	jerrors "github.com/C3rb/Josser/pkg/errors"
)

// WebSocketTransport implements Transport over a single WebSocket connection.
// Each exchange writes one frame and reads one frame; exchanges are
// serialized, so replies cannot be interleaved. The connection is dialed on
// first use and redialed after a failure.
type WebSocketTransport struct {
	endpoint  string
	headers   http.Header
	client    *http.Client
	readLimit int64
	msgType   websocket.MessageType

	mu   sync.Mutex
	conn *websocket.Conn
}

// WebSocketOption configures a WebSocketTransport
type WebSocketOption func(*WebSocketTransport)

// WithWebSocketHeaders adds headers sent with the opening handshake
func WithWebSocketHeaders(headers map[string]string) WebSocketOption {
	return func(t *WebSocketTransport) {
		for k, v := range headers {
			t.headers.Set(k, v)
		}
	}
}

// WithReadLimit caps the size of a reply frame
func WithReadLimit(n int64) WebSocketOption {
	return func(t *WebSocketTransport) {
		if n > 0 {
			t.readLimit = n
		}
	}
}

// WithBinaryFrames sends payloads as binary frames, as binary codecs need.
func WithBinaryFrames() WebSocketOption {
	return func(t *WebSocketTransport) {
		t.msgType = websocket.MessageBinary
	}
}

// WithHandshakeClient sets the HTTP client used for the opening handshake
func WithHandshakeClient(client *http.Client) WebSocketOption {
	return func(t *WebSocketTransport) {
		t.client = client
	}
}

// NewWebSocketTransport creates a new WebSocket transport
func NewWebSocketTransport(endpoint string, options ...WebSocketOption) *WebSocketTransport {
	t := &WebSocketTransport{
		endpoint:  endpoint,
		headers:   make(http.Header),
		readLimit: 1 << 20,
		msgType:   websocket.MessageText,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func newWebSocketTransportFromConfig(config TransportConfig) *WebSocketTransport {
	opts := []WebSocketOption{
		WithWebSocketHeaders(config.Connection.Headers),
		WithReadLimit(config.Connection.ReadLimit),
	}
	if config.ContentType != "" && config.ContentType != DefaultContentType {
		opts = append(opts, WithBinaryFrames())
	}
	if config.HTTPClient != nil {
		opts = append(opts, WithHandshakeClient(config.HTTPClient))
	}
	return NewWebSocketTransport(config.Endpoint, opts...)
}

// Endpoint implements Transport
func (t *WebSocketTransport) Endpoint() string {
	return t.endpoint
}

// Send implements Transport
func (t *WebSocketTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, err := t.connectLocked(ctx)
	if err != nil {
		return nil, err
	}

	if err := conn.Write(ctx, t.msgType, payload); err != nil {
		t.dropLocked()
		return nil, jerrors.TransportFailure(t.endpoint,
			fmt.Sprintf("JSON-RPC websocket write to %q failed.", t.endpoint), err)
	}

	_, reply, err := conn.Read(ctx)
	if err != nil {
		t.dropLocked()
		return nil, jerrors.TransportFailure(t.endpoint,
			fmt.Sprintf("JSON-RPC websocket read from %q failed.", t.endpoint), err)
	}
	return reply, nil
}

// Notify implements Notifier: the frame is written and no reply is read.
func (t *WebSocketTransport) Notify(ctx context.Context, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, err := t.connectLocked(ctx)
	if err != nil {
		return err
	}

	if err := conn.Write(ctx, t.msgType, payload); err != nil {
		t.dropLocked()
		return jerrors.TransportFailure(t.endpoint,
			fmt.Sprintf("JSON-RPC websocket write to %q failed.", t.endpoint), err)
	}
	return nil
}

// Close closes the connection, if any. The transport may be used again
// afterwards; it redials on the next exchange.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close(websocket.StatusNormalClosure, "closing")
	t.conn = nil
	return err
}

func (t *WebSocketTransport) connectLocked(ctx context.Context) (*websocket.Conn, error) {
	if t.conn != nil {
		return t.conn, nil
	}

	conn, _, err := websocket.Dial(ctx, t.endpoint, &websocket.DialOptions{
		HTTPClient: t.client,
		HTTPHeader: t.headers.Clone(),
	})
	if err != nil {
		return nil, jerrors.ConnectionFailed("websocket", t.endpoint, err)
	}
	conn.SetReadLimit(t.readLimit)
	t.conn = conn
	return conn, nil
}

func (t *WebSocketTransport) dropLocked() {
	if t.conn != nil {
		_ = t.conn.CloseNow()
		t.conn = nil
	}
}
