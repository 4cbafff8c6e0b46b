// Package logger provides a simple logging interface for ddmatrix components.
// It allows packages to log debug, info, warn, and error messages without
// being coupled to a specific logging implementation. The default backend is
// zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Config controls the zerolog backend.
type Config struct {
	Level      string `mapstructure:"level"`
	Debug      bool   `mapstructure:"debug"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

var (
	baseMu sync.RWMutex
	base   = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// logFile is the file opened by Init, closed when the backend is replaced.
// Guarded by baseMu.
var logFile *os.File

// Init configures the shared zerolog backend. Output is "stderr" (default),
// "stdout", or a file path to append to. Human-readable console output is
// used when the destination is a terminal, JSON lines otherwise.
// DDMATRIX_DEBUG forces debug level.
func Init(cfg Config) error {
	level := zerolog.InfoLevel
	if cfg.Debug || os.Getenv("DDMATRIX_DEBUG") != "" {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	out := os.Stderr
	var file *os.File
	switch cfg.Output {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", cfg.Output, err)
		}
		out, file = f, f
	}

	timeFormat := time.RFC3339
	if cfg.TimeFormat != "" {
		timeFormat = cfg.TimeFormat
	}
	zerolog.TimeFieldFormat = timeFormat

	var w io.Writer = out
	if term.IsTerminal(int(out.Fd())) {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	swapBackend(zerolog.New(w).Level(level).With().Timestamp().Logger(), file)
	return nil
}

// SetBackend replaces the shared zerolog logger. Loggers created before the
// call pick up the new backend on their next message. A log file opened by
// Init is closed.
func SetBackend(l zerolog.Logger) {
	swapBackend(l, nil)
}

// Close closes the log file opened by Init, if any, and sends further
// messages to stderr.
func Close() {
	swapBackend(zerolog.New(os.Stderr).With().Timestamp().Logger(), nil)
}

func swapBackend(l zerolog.Logger, file *os.File) {
	baseMu.Lock()
	prev := logFile
	base, logFile = l, file
	baseMu.Unlock()

	if prev != nil && prev != file {
		_ = prev.Close()
	}
}

func backend() *zerolog.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	l := base
	return &l
}

// componentLogger implements Logger on top of the shared zerolog backend.
type componentLogger struct {
	component string
}

// New creates a logger that tags every message with the given component
// (e.g., "net" or "poll").
func New(component string) Logger {
	return &componentLogger{component: component}
}

func (l *componentLogger) event(e *zerolog.Event, format string, args []interface{}) {
	if l.component != "" {
		e = e.Str("component", l.component)
	}
	e.Msgf(format, args...)
}

func (l *componentLogger) Debug(format string, args ...interface{}) {
	l.event(backend().Debug(), format, args)
}

func (l *componentLogger) Info(format string, args ...interface{}) {
	l.event(backend().Info(), format, args)
}

func (l *componentLogger) Warn(format string, args ...interface{}) {
	l.event(backend().Warn(), format, args)
}

func (l *componentLogger) Error(format string, args ...interface{}) {
	l.event(backend().Error(), format, args)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args) }

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Contains returns true if any captured message contains substr.
func (l *BufferLogger) Contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}
