package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/C3rb/Josser/pkg/transport"
)

// MiddlewareConfig configures the observability transport middleware. Either
// provider may be nil.
type MiddlewareConfig struct {
	Tracer  *TracingProvider
	Metrics MetricsProvider

	// CapturePayloads records payload bytes as span attributes
	CapturePayloads bool
}

// TransportMiddleware records a Prometheus observation and an OpenTelemetry
// span for every transport exchange.
type TransportMiddleware struct {
	config MiddlewareConfig
}

// NewTransportMiddleware creates the observability transport middleware
func NewTransportMiddleware(config MiddlewareConfig) transport.Middleware {
	return &TransportMiddleware{config: config}
}

// Wrap implements the transport.Middleware interface
func (m *TransportMiddleware) Wrap(next transport.Transport) transport.Transport {
	return &observabilityTransport{Base: transport.Base{Next: next}, config: m.config}
}

type observabilityTransport struct {
	transport.Base
	config MiddlewareConfig
}

func (ot *observabilityTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	ctx, span := ot.startSpan(ctx, "send", payload)

	start := time.Now()
	reply, err := ot.Base.Send(ctx, payload)
	duration := time.Since(start)

	if ot.config.Metrics != nil {
		ot.config.Metrics.RecordTransportSend(ctx, "send", StatusOf(err), duration, len(payload), len(reply))
	}
	if span != nil {
		span.SetAttributes(attribute.Int("transport.response_bytes", len(reply)))
		if ot.config.CapturePayloads && err == nil {
			span.SetAttributes(attribute.String("transport.response_payload", string(reply)))
		}
		EndSpan(span, err)
	}
	return reply, err
}

func (ot *observabilityTransport) Notify(ctx context.Context, payload []byte) error {
	ctx, span := ot.startSpan(ctx, "notify", payload)

	start := time.Now()
	err := ot.Base.Notify(ctx, payload)
	duration := time.Since(start)

	if ot.config.Metrics != nil {
		ot.config.Metrics.RecordTransportSend(ctx, "notify", StatusOf(err), duration, len(payload), 0)
	}
	if span != nil {
		EndSpan(span, err)
	}
	return err
}

func (ot *observabilityTransport) startSpan(ctx context.Context, kind string, payload []byte) (context.Context, trace.Span) {
	if ot.config.Tracer == nil {
		return ctx, nil
	}

	attrs := []attribute.KeyValue{
		AttrTransportKind.String(kind),
		AttrTransportTarget.String(ot.Endpoint()),
		attribute.Int("transport.request_bytes", len(payload)),
	}
	if ot.config.CapturePayloads {
		attrs = append(attrs, attribute.String("transport.request_payload", string(payload)))
	}

	return ot.config.Tracer.StartSpan(ctx, "transport."+kind,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}
