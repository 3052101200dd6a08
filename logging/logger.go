package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the minimal logging interface used throughout DataWise.
// Arguments follow slog's alternating key/value convention.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoOpLogger discards all messages. It is the default for every component so
// logging never becomes a hidden requirement.
type NoOpLogger struct{}

// Debug implements Logger.
func (NoOpLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NoOpLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NoOpLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NoOpLogger) Error(string, ...any) {}

// SlogAdapter wraps *slog.Logger to satisfy Logger.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter creates a Logger from an existing *slog.Logger.
func NewSlogAdapter(l *slog.Logger) Logger { return &SlogAdapter{Logger: l} }

// NewDefaultSlogLogger creates a Logger backed by slog.Default().
func NewDefaultSlogLogger() Logger { return NewSlogAdapter(slog.Default()) }

// Config controls construction of a structured logger.
type Config struct {
	Level     slog.Level
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns a JSON info-level configuration writing to stdout.
func DefaultConfig() *Config {
	return &Config{Level: slog.LevelInfo, Format: "json", Output: os.Stdout}
}

// New builds a Logger from cfg (or DefaultConfig when nil).
func New(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return NewSlogAdapter(slog.New(handler))
}

// ConversationLogger decorates a Logger with fixed contextual attributes
// (component, session) appended to every record. Cheap to copy; derive one
// per run with WithSession.
type ConversationLogger struct {
	base      Logger
	component string
	sessionID string
}

// NewConversationLogger wraps base with a component label.
func NewConversationLogger(base Logger, component string) *ConversationLogger {
	if base == nil {
		base = NoOpLogger{}
	}
	return &ConversationLogger{base: base, component: component}
}

// WithSession returns a copy bound to a session id.
func (l *ConversationLogger) WithSession(sessionID string) *ConversationLogger {
	c := *l
	c.sessionID = sessionID
	return &c
}

func (l *ConversationLogger) attrs(args []any) []any {
	out := make([]any, 0, len(args)+4)
	out = append(out, args...)
	if l.component != "" {
		out = append(out, "component", l.component)
	}
	if l.sessionID != "" {
		out = append(out, "session_id", l.sessionID)
	}
	return out
}

// Debug implements Logger.
func (l *ConversationLogger) Debug(msg string, args ...any) { l.base.Debug(msg, l.attrs(args)...) }

// Info implements Logger.
func (l *ConversationLogger) Info(msg string, args ...any) { l.base.Info(msg, l.attrs(args)...) }

// Warn implements Logger.
func (l *ConversationLogger) Warn(msg string, args ...any) { l.base.Warn(msg, l.attrs(args)...) }

// Error implements Logger.
func (l *ConversationLogger) Error(msg string, args ...any) { l.base.Error(msg, l.attrs(args)...) }
