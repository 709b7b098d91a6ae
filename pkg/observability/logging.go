package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Logger is a structured logger for snaplist components
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to stdout.
func NewLogger(component string, level slog.Level) *Logger {
	return NewLoggerTo(os.Stdout, component, level)
}

// NewLoggerTo creates a JSON logger writing to w.
func NewLoggerTo(w io.Writer, component string, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With(
		slog.String("component", component),
		slog.String("system", "snaplist"),
	)
	return &Logger{Logger: logger}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithContext returns a logger carrying the active trace and span ids.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if l == nil {
		return Discard()
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return l
	}
	return &Logger{
		Logger: l.Logger.With(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		),
	}
}

// WithSession returns a logger with session-specific fields
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("session_id", sessionID))}
}

// WithOperation returns a logger tagged with a control-surface operation.
func (l *Logger) WithOperation(op string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("operation", op))}
}

// WithComponent returns a logger for a sub-component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("subcomponent", component))}
}

// SessionCreated logs a browser session launch.
func (l *Logger) SessionCreated(sessionID string, replaced bool) {
	l.Info("session created",
		slog.String("session_id", sessionID),
		slog.Bool("replaced", replaced),
	)
}

// SessionClosed logs a browser session teardown.
func (l *Logger) SessionClosed(sessionID, reason string) {
	l.Info("session closed",
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
	)
}

// PhaseFailed logs a failed submission phase.
func (l *Logger) PhaseFailed(phase string, err error) {
	l.Warn("submission phase failed",
		slog.String("phase", phase),
		slog.String("error", err.Error()),
	)
}
