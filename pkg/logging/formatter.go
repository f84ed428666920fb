package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Format selects how log entries are rendered.
type Format string

const (
	// FormatJSON writes one JSON object per entry.
	FormatJSON Format = "json"
	// FormatConsole writes human-readable, optionally colored lines.
	FormatConsole Format = "console"
)

// ParseFormat parses a format name. The empty string means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatConsole, "text":
		return FormatConsole, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q", s)
	}
}

// TimestampFormat is used by console output.
const TimestampFormat = "2006-01-02 15:04:05.000"

func newWriter(format Format, out io.Writer, noColor bool) io.Writer {
	if format != FormatConsole {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: TimestampFormat,
		FormatLevel: func(i interface{}) string {
			if s, ok := i.(string); ok {
				return fmt.Sprintf("[%s]", strings.ToUpper(s))
			}
			return "[???]"
		},
	}
}
