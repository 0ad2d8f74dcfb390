// Package logging provides the relay's component logger. Output is structured
// JSON (or console text) written through zerolog; callers attach fields as a
// map so call sites stay independent of the backing library.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// zerologLevels maps levels to zerolog levels for filtering.
var zerologLevels = map[Level]zerolog.Level{
	LevelDebug: zerolog.DebugLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelError: zerolog.ErrorLevel,
}

// ParseLevel converts a config or env string to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// sink is shared by a logger and every logger derived from it. The zerolog
// logger is built once per configuration and swapped atomically by the setters.
type sink struct {
	mu       sync.Mutex
	output   io.Writer
	minLevel Level
	pretty   bool

	base atomic.Pointer[zerolog.Logger]
}

func newSink(w io.Writer, level Level) *sink {
	s := &sink{output: w, minLevel: level}
	s.rebuild()
	return s
}

// rebuild must be called with mu held.
func (s *sink) rebuild() {
	var w io.Writer = zerolog.SyncWriter(s.output)
	if s.pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).Level(zerologLevels[s.minLevel]).With().Timestamp().Logger()
	s.base.Store(&zl)
}

// derived is a logger's context fields applied to one sink build.
type derived struct {
	base *zerolog.Logger
	zl   zerolog.Logger
}

// Logger provides structured logging for relay components.
type Logger struct {
	sink      *sink
	component string
	traceID   string

	cached atomic.Pointer[derived]
}

// New creates a new Logger writing JSON lines to stdout at INFO.
func New() *Logger {
	return &Logger{sink: newSink(os.Stdout, LevelInfo)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{sink: newSink(io.Discard, LevelInfo)}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		sink:      l.sink,
		component: component,
		traceID:   l.traceID,
	}
}

// WithTraceID returns a new logger with the given trace ID.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{
		sink:      l.sink,
		component: l.component,
		traceID:   traceID,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	l.sink.minLevel = level
	l.sink.rebuild()
	l.sink.mu.Unlock()
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	l.sink.output = w
	l.sink.rebuild()
	l.sink.mu.Unlock()
}

// SetPretty switches to human-readable console output.
func (l *Logger) SetPretty(pretty bool) {
	l.sink.mu.Lock()
	l.sink.pretty = pretty
	l.sink.rebuild()
	l.sink.mu.Unlock()
}

// logger returns the sink's current logger with this logger's component and
// trace ID attached. The result is cached until the sink is reconfigured.
func (l *Logger) logger() *zerolog.Logger {
	base := l.sink.base.Load()
	if d := l.cached.Load(); d != nil && d.base == base {
		return &d.zl
	}

	ctx := base.With()
	if l.component != "" {
		ctx = ctx.Str("component", l.component)
	}
	if l.traceID != "" {
		ctx = ctx.Str("trace_id", l.traceID)
	}
	d := &derived{base: base, zl: ctx.Logger()}
	l.cached.Store(d)
	return &d.zl
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// log writes one entry.
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	event := l.logger().WithLevel(zerologLevels[level])
	if event == nil {
		return
	}
	if len(fields) > 0 && fields[0] != nil {
		event = event.Fields(fields[0])
	}
	event.Msg(msg)
}
