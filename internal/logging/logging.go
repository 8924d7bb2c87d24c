// Package logging builds the process-wide structured logger, grounded on
// the lineage repo's internal/shared/monitoring.NewLogger: JSON output by
// default, an optional pretty console writer, RFC3339 timestamps, and
// caller info for debugging.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger from level and format strings (as loaded by
// internal/config). An unrecognized level falls back to info; an
// unrecognized format falls back to JSON.
func New(level, format string) zerolog.Logger {
	var output io.Writer = os.Stdout

	zerolog.SetGlobalLevel(parseLevel(level))

	if format == "pretty" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Str("service", "kxgossipd").
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
