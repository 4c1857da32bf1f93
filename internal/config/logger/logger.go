//go:generate mockgen -source=logger.go -destination=logger_mock.go -package=logger
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"pidwatch/internal/config"
)

// Logger configuration constants
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
	FatalLevel = "fatal"
	PanicLevel = "panic"
	TraceLevel = "trace"

	ConsoleFormat = "console"
	JSONFormat    = "json"

	TimeFormat = "02.01.2006 15:04:05"
)

// Logger interface for application logging
type Logger interface {
	Debug() Event
	Info() Event
	Warn() Event
	Error() Event
	WithComponent(name string) Logger
}

// Event is a single log entry under construction
type Event interface {
	Str(key, val string) Event
	Int(key string, val int) Event
	Float64(key string, val float64) Event
	Dur(key string, val time.Duration) Event
	Err(err error) Event
	Msg(msg string)
	Msgf(format string, v ...interface{})
}

// AppLogger represents a logger implementation using zerolog
type AppLogger struct {
	log zerolog.Logger
}

// NewLogger creates a new logger instance
func NewLogger(cfg *config.Config) Logger {
	return NewLoggerWithOutput(cfg, nil)
}

// NewLoggerWithOutput creates a new logger instance with a custom output writer
func NewLoggerWithOutput(cfg *config.Config, customOutput io.Writer) Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339

	var (
		level  zerolog.Level
		output io.Writer
	)

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = InfoLevel
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = ConsoleFormat
	}

	level = getLogLevel(cfg.Logging.Level)

	if customOutput != nil {
		output = customOutput
	} else {
		switch cfg.Logging.Format {
		case JSONFormat:
			output = os.Stdout
		default:
			output = newConsoleWriter()
		}
	}

	logger := zerolog.
		New(output).
		Level(level).
		With().
		Timestamp().
		Str("version", config.Version).
		Logger()

	return &AppLogger{log: logger}
}

// Debug returns a debug level Event for logging debug messages
func (l *AppLogger) Debug() Event {
	return &zerologEvent{e: l.log.Debug()}
}

// Info returns an info level Event for logging informational messages
func (l *AppLogger) Info() Event {
	return &zerologEvent{e: l.log.Info()}
}

// Warn returns a warn level Event for logging warning messages
func (l *AppLogger) Warn() Event {
	return &zerologEvent{e: l.log.Warn()}
}

// Error returns an error level Event for logging error messages
func (l *AppLogger) Error() Event {
	return &zerologEvent{e: l.log.Error()}
}

// WithComponent creates a new logger with a component name for contextual logging
func (l *AppLogger) WithComponent(name string) Logger {
	return &AppLogger{
		log: l.log.With().Str("component", name).Logger(),
	}
}

// zerologEvent adapts *zerolog.Event to the Event interface
type zerologEvent struct {
	e *zerolog.Event
}

func (z *zerologEvent) Str(key, val string) Event {
	z.e = z.e.Str(key, val)
	return z
}

func (z *zerologEvent) Int(key string, val int) Event {
	z.e = z.e.Int(key, val)
	return z
}

func (z *zerologEvent) Float64(key string, val float64) Event {
	z.e = z.e.Float64(key, val)
	return z
}

func (z *zerologEvent) Dur(key string, val time.Duration) Event {
	z.e = z.e.Dur(key, val)
	return z
}

func (z *zerologEvent) Err(err error) Event {
	z.e = z.e.Err(err)
	return z
}

func (z *zerologEvent) Msg(msg string) {
	z.e.Msg(msg)
}

func (z *zerologEvent) Msgf(format string, v ...interface{}) {
	z.e.Msgf(format, v...)
}

// NoopEvent discards everything, used where a logger mock has to hand back an event
type NoopEvent struct{}

func (n *NoopEvent) Str(string, string) Event { return n }
func (n *NoopEvent) Int(string, int) Event { return n }
func (n *NoopEvent) Float64(string, float64) Event { return n }
func (n *NoopEvent) Dur(string, time.Duration) Event { return n }
func (n *NoopEvent) Err(error) Event { return n }
func (n *NoopEvent) Msg(string) {}
func (n *NoopEvent) Msgf(string, ...interface{}) {}

// newConsoleWriter creates a console writer with component formatting
func newConsoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: TimeFormat,
		FormatFieldName: func(i interface{}) string {
			if s, ok := i.(string); ok && s == "component" {
				return ""
			}

			return fmt.Sprintf("%s=", i)
		},
		FormatPrepare: func(m map[string]interface{}) error {
			if component, ok := m["component"].(string); ok {
				m["component"] = fmt.Sprintf("[%s]", component)
			}

			return nil
		},
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			"component",
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		},
	}
}

// getLogLevel converts string level to zerolog.Level
func getLogLevel(level string) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	case PanicLevel:
		return zerolog.PanicLevel
	case TraceLevel:
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}
