// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for JSON-RPC clients.
//
// PrometheusMetricsProvider keeps its collectors in its own registry and can
// serve them over HTTP. TracingProvider creates client spans for calls and
// exports them through OTLP (gRPC or HTTP) or a caller supplied exporter.
// NewTransportMiddleware plugs both into a transport middleware chain:
//
//	metrics, _ := observability.NewMetricsProvider(observability.MetricsConfig{})
//	tracer, _ := observability.NewTracingProvider(observability.TracingConfig{
//		ExporterType: observability.ExporterTypeOTLPGRPC,
//		Endpoint:     "localhost:4317",
//		Insecure:     true,
//	})
//	config.Middleware = append(config.Middleware,
//		observability.NewTransportMiddleware(observability.MiddlewareConfig{
//			Tracer:  tracer,
//			Metrics: metrics,
//		}))
package observability
