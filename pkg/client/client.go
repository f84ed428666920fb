package client

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/C3rb/Josser/pkg/endec"
	jerrors "github.com/C3rb/Josser/pkg/errors"
	"github.com/C3rb/Josser/pkg/logging"
	"github.com/C3rb/Josser/pkg/observability"
	"github.com/C3rb/Josser/pkg/protocol"
	"github.com/C3rb/Josser/pkg/transport"
)

// Client runs JSON-RPC exchanges over a transport: it builds the wire
// structure, encodes it, sends it and turns the reply back into a Response.
// A Client is safe for concurrent use when its transport is.
type Client struct {
	transport transport.Transport
	protocol  protocol.Protocol
	endec     endec.Endec
	logger    logging.Logger
	metrics   observability.MetricsProvider
	tracer    *observability.TracingProvider
}

// Option configures a Client.
type Option func(*Client)

// WithProtocol sets the protocol version. JSON-RPC 1.0 is the default.
func WithProtocol(p protocol.Protocol) Option {
	return func(c *Client) {
		if p != nil {
			c.protocol = p
		}
	}
}

// WithEndec sets the codec. JSON is the default.
func WithEndec(e endec.Endec) Option {
	return func(c *Client) {
		if e != nil {
			c.endec = e
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records call metrics
func WithMetrics(metrics observability.MetricsProvider) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithTracing records a client span per call
func WithTracing(tracer *observability.TracingProvider) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// New creates a client on top of t.
func New(t transport.Transport, options ...Option) *Client {
	c := &Client{
		transport: t,
		protocol:  protocol.NewJSONRPC1(),
		endec:     endec.NewJSON(),
		logger:    logging.NewNop(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Protocol returns the protocol the client speaks
func (c *Client) Protocol() protocol.Protocol {
	return c.protocol
}

// Transport returns the underlying transport
func (c *Client) Transport() transport.Transport {
	return c.transport
}

// Close releases the transport
func (c *Client) Close() error {
	return transport.Close(c.transport)
}

// Call performs one exchange. A notification is sent without waiting for a
// reply and yields NoReply. Otherwise the reply is decoded, validated and
// checked to carry the request's id.
func (c *Client) Call(ctx context.Context, req *protocol.Request) (protocol.Reply, error) {
	if req == nil {
		return protocol.NoReply(), jerrors.InvalidArgument("Request must not be nil.")
	}

	method := req.Method()
	notification := c.protocol.IsNotification(req)
	if !notification && logging.RequestIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRequestID(ctx, fmt.Sprint(req.ID()))
	}
	callLogger := c.logger.WithFields(
		logging.String("method", method),
		logging.Bool("notification", notification),
	)
	logger := callLogger.WithContext(ctx).WithFields(logging.String("component", "client"))

	var span trace.Span
	if c.tracer != nil {
		ctx, span = c.tracer.StartCallSpan(ctx, method, req.ID())
	}
	if c.metrics != nil && !notification {
		c.metrics.RecordInFlight(1)
		defer c.metrics.RecordInFlight(-1)
	}

	logger.Debug("Calling remote method")
	start := time.Now()
	reply, err := c.exchange(ctx, req)
	duration := time.Since(start)

	c.recordMetrics(ctx, method, notification, err, duration)
	if span != nil {
		observability.EndSpan(span, err)
	}

	if err != nil {
		failLogger := logger
		if jerr, ok := err.(jerrors.JosserError); ok {
			err = c.withErrorContext(ctx, jerr, method, notification)
			// request_id and component come from the error context
			failLogger = callLogger
		}
		failLogger.WithError(err).Warn("Call failed", logging.Duration("duration", duration))
		return protocol.NoReply(), err
	}
	logger.Debug("Call completed", logging.Duration("duration", duration))
	return reply, nil
}

// withErrorContext records where a failed call happened on jerr.
func (c *Client) withErrorContext(ctx context.Context, jerr jerrors.JosserError, method string, notification bool) jerrors.JosserError {
	errCtx := &jerrors.Context{
		RequestID: logging.RequestIDFromContext(ctx),
		Method:    method,
		Endpoint:  c.transport.Endpoint(),
		Timestamp: time.Now(),
		Component: "client",
		Operation: "call",
	}
	if notification {
		errCtx.Operation = "notify"
	}
	if prev := jerr.Context(); prev != nil && !prev.Timestamp.IsZero() {
		errCtx.Timestamp = prev.Timestamp
	}
	return jerr.WithContext(errCtx)
}

func (c *Client) exchange(ctx context.Context, req *protocol.Request) (protocol.Reply, error) {
	dto, err := c.protocol.RequestDTO(req)
	if err != nil {
		return protocol.NoReply(), err
	}
	payload, err := c.endec.Encode(dto)
	if err != nil {
		return protocol.NoReply(), err
	}

	if c.protocol.IsNotification(req) {
		if err := transport.SendNotification(ctx, c.transport, payload); err != nil {
			return protocol.NoReply(), err
		}
		return protocol.NoReply(), nil
	}

	raw, err := c.transport.Send(ctx, payload)
	if err != nil {
		return protocol.NoReply(), err
	}

	decoded, err := c.endec.Decode(raw)
	if err != nil {
		return protocol.NoReply(), jerrors.WrapError(err, jerrors.CodeInvalidResponse,
			"Reply could not be decoded.", jerrors.CategoryProtocol, jerrors.SeverityError).
			WithDetail(err.Error())
	}

	resp, err := c.protocol.CreateResponse(decoded)
	if err != nil {
		return protocol.NoReply(), err
	}
	if !c.protocol.Match(req, resp) {
		return protocol.NoReply(), jerrors.IDMismatch(req.ID(), resp.ID())
	}
	return protocol.ReplyWith(resp), nil
}

func (c *Client) recordMetrics(ctx context.Context, method string, notification bool, err error, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	status := observability.StatusOf(err)
	if notification {
		c.metrics.RecordNotification(ctx, method, status, duration)
	} else {
		c.metrics.RecordCall(ctx, method, status, duration)
	}
	if err != nil {
		c.metrics.RecordError(ctx, status, method)
	}
}

// Request calls method with a generated id and returns the Response.
func (c *Client) Request(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	return c.RequestWithID(ctx, method, params, nil)
}

// RequestWithID calls method with the given id. A nil id is generated.
func (c *Client) RequestWithID(ctx context.Context, method string, params, id interface{}) (*protocol.Response, error) {
	reply, err := c.Call(ctx, c.protocol.CreateRequest(method, params, id))
	if err != nil {
		return nil, err
	}
	resp, ok := reply.Response()
	if !ok {
		return nil, jerrors.InvalidResponse("No reply received for %q.", method)
	}
	return resp, nil
}

// Notify sends a notification.
func (c *Client) Notify(ctx context.Context, method string, params interface{}) error {
	_, err := c.Call(ctx, c.protocol.CreateNotification(method, params))
	return err
}

// CallInto calls method and decodes the result into out. A nil out discards
// the result.
func (c *Client) CallInto(ctx context.Context, method string, params interface{}, out interface{}) error {
	resp, err := c.Request(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	data, err := c.endec.Encode(resp.Result())
	if err != nil {
		return err
	}
	if err := c.endec.DecodeInto(data, out); err != nil {
		return jerrors.WrapError(err, jerrors.CodeInvalidResponse,
			fmt.Sprintf("Result of %q does not fit %T.", method, out), jerrors.CategoryProtocol, jerrors.SeverityError).
			WithDetail(err.Error())
	}
	return nil
}
