// Package logger provides the leveled, key-value logging interface the
// engines, the API layer, and the CLI log through. Grounded on the
// teacher's internal/logger/logger.go for the interface shape (leveled
// Debug/Info/Warn/Error calls taking alternating key/value pairs), backed
// by github.com/rs/zerolog instead of the standard library's log.Logger —
// the structured-logging library the pack's web3guy0-polybot wires up in
// cmd/main.go (zerolog.ConsoleWriter + zerolog.SetGlobalLevel driven by a
// config flag rather than a bare DEBUG env var).
package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger defines the logging interface
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// zerologLogger adapts a zerolog.Logger to Logger, fanning each call's
// trailing key/value pairs out as structured fields instead of the
// teacher's flat "key=value"-joined string.
type zerologLogger struct {
	log zerolog.Logger
}

// New builds a Logger that writes leveled, structured events to stderr
// through zerolog's console writer, filtered at levelStr ("debug", "info",
// "warn"/"warning", "error"; anything else maps to info).
func New(levelStr string) Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05.000"}
	base := zerolog.New(writer).Level(parseLevel(levelStr)).With().Timestamp().Logger()
	return &zerologLogger{log: base}
}

// withFields attaches alternating key/value pairs to event as structured
// fields, dropping a trailing key with no paired value.
func withFields(event *zerolog.Event, keysAndValues ...interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		event = event.Interface(key, keysAndValues[i+1])
	}
	return event
}

func (l *zerologLogger) Debug(msg string, keysAndValues ...interface{}) {
	withFields(l.log.Debug(), keysAndValues...).Msg(msg)
}

func (l *zerologLogger) Info(msg string, keysAndValues ...interface{}) {
	withFields(l.log.Info(), keysAndValues...).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, keysAndValues ...interface{}) {
	withFields(l.log.Warn(), keysAndValues...).Msg(msg)
}

func (l *zerologLogger) Error(msg string, keysAndValues ...interface{}) {
	withFields(l.log.Error(), keysAndValues...).Msg(msg)
}

// parseLevel converts a config log-level string to a zerolog.Level.
func parseLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
