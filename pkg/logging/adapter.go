package logging

import (
	"bytes"
	"log"
)

// StdAdapter adapts the structured logger to io.Writer so it can back a
// standard library *log.Logger, such as http.Server.ErrorLog.
type StdAdapter struct {
	logger Logger
	level  Level
}

// NewStdAdapter creates an adapter that logs every written line at level.
func NewStdAdapter(logger Logger, level Level) *StdAdapter {
	return &StdAdapter{logger: logger, level: level}
}

// Write logs p as one message.
func (a *StdAdapter) Write(p []byte) (int, error) {
	msg := string(bytes.TrimRight(p, "\r\n"))

	switch a.level {
	case DebugLevel:
		a.logger.Debug(msg)
	case WarnLevel:
		a.logger.Warn(msg)
	case ErrorLevel, FatalLevel:
		a.logger.Error(msg)
	default:
		a.logger.Info(msg)
	}
	return len(p), nil
}

// NewStdLogger returns a *log.Logger writing through logger.
func NewStdLogger(logger Logger, level Level) *log.Logger {
	return log.New(NewStdAdapter(logger, level), "", 0)
}
