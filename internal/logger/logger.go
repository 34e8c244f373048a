// Package logger provides the structured logging facade used across the engine.
package logger

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// LogLevel is the minimum level a logger emits.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field is a single structured key/value pair.
type Field = slog.Attr

// Logger is the logging interface injected into every component.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Options controls the output format of NewSlogLoggerWithOptions.
type Options struct {
	JSON     bool
	Location *time.Location
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger creates a text logger writing to w. A nil location keeps
// timestamps in UTC.
func NewSlogLogger(w io.Writer, level LogLevel, loc *time.Location) Logger {
	return NewSlogLoggerWithOptions(w, level, Options{Location: loc})
}

// NewSlogLoggerWithOptions creates a logger with explicit format options.
func NewSlogLoggerWithOptions(w io.Writer, level LogLevel, opts Options) Logger {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	handlerOpts := &slog.HandlerOptions{
		Level: level.slogLevel(),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.TimeValue(a.Value.Time().In(loc))
			}
			return a
		},
	}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return &slogLogger{l: slog.New(handler)}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return NewSlogLogger(io.Discard, LogLevelError, nil)
}

// ParseLevel maps a config string to a LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch LogLevel(s) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return LogLevel(s)
	default:
		return LogLevelInfo
	}
}

func (lv LogLevel) slogLevel() slog.Level {
	switch lv {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *slogLogger) log(level slog.Level, msg string, fields []Field) {
	s.l.LogAttrs(context.Background(), level, msg, fields...)
}

func (s *slogLogger) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields) }
func (s *slogLogger) Info(msg string, fields ...Field) { s.log(slog.LevelInfo, msg, fields) }
func (s *slogLogger) Warn(msg string, fields ...Field) { s.log(slog.LevelWarn, msg, fields) }
func (s *slogLogger) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields) }

func (s *slogLogger) With(fields ...Field) Logger {
	args := make([]any, len(fields))
	for i := range fields {
		args[i] = fields[i]
	}
	return &slogLogger{l: s.l.With(args...)}
}

// Field constructors.

func String(key, value string) Field { return slog.String(key, value) }
func Int(key string, value int) Field { return slog.Int(key, value) }
func Int64(key string, value int64) Field { return slog.Int64(key, value) }
func Uint64(key string, value uint64) Field { return slog.Uint64(key, value) }
func Bool(key string, value bool) Field { return slog.Bool(key, value) }
func Time(key string, value time.Time) Field { return slog.Time(key, value) }
func Duration(key string, d time.Duration) Field { return slog.Duration(key, d) }
func Any(key string, value any) Field { return slog.Any(key, value) }

// Error attaches err under the "error" key. A nil error is rendered as "<nil>".
func Error(err error) Field {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}
