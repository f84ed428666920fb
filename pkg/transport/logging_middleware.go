package transport

import (
	"context"
	"time"

	"github.com/C3rb/Josser/pkg/logging"
)

// LoggingMiddleware logs every exchange with its payload sizes and duration.
type LoggingMiddleware struct {
	logger logging.Logger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger logging.Logger) Middleware {
	return &LoggingMiddleware{logger: logger.WithFields(logging.String("component", "transport"))}
}

// Wrap implements the Middleware interface
func (lm *LoggingMiddleware) Wrap(transport Transport) Transport {
	return &loggingTransport{Base: Base{Next: transport}, logger: lm.logger}
}

type loggingTransport struct {
	Base
	logger logging.Logger
}

func (lt *loggingTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	logger := lt.logger.WithContext(ctx).WithFields(logging.String("endpoint", lt.Endpoint()))
	logger.Debug("Sending payload", logging.Int("request_bytes", len(payload)))

	start := time.Now()
	reply, err := lt.Base.Send(ctx, payload)
	duration := time.Since(start)

	if err != nil {
		logger.WithError(err).Warn("Send failed", logging.Duration("duration", duration))
		return nil, err
	}
	logger.Debug("Reply received",
		logging.Int("response_bytes", len(reply)),
		logging.Duration("duration", duration),
	)
	return reply, nil
}

func (lt *loggingTransport) Notify(ctx context.Context, payload []byte) error {
	logger := lt.logger.WithContext(ctx).WithFields(logging.String("endpoint", lt.Endpoint()))
	logger.Debug("Sending notification payload", logging.Int("request_bytes", len(payload)))

	start := time.Now()
	err := lt.Base.Notify(ctx, payload)
	if err != nil {
		logger.WithError(err).Warn("Notification failed", logging.Duration("duration", time.Since(start)))
	}
	return err
}
