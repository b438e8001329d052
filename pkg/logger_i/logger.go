package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/akolanti/CyberScholar/internal/config"
)

// Logger resolves slog.Default at write time, so package level loggers built before Init still follow it
type Logger struct {
	section string
	args    []any
}

func Init() {
	InitWriter(os.Stdout)
}

// InitWriter is Init with another sink, the mcp binary keeps stdout for the protocol
func InitWriter(w io.Writer) {
	options := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}

	var handler slog.Handler
	if config.IS_PROD {
		options.Level = config.LOG_LEVEL_PROD
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	slog.SetDefault(slog.New(handler))
}

func NewLogger(section string) *Logger {
	return &Logger{section: section}
}

func (l *Logger) inner() *slog.Logger {
	return slog.Default().With("component", l.section).With(l.args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if !slog.Default().Enabled(context.Background(), level) {
		return
	}
	l.inner().Log(context.Background(), level, msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		section: l.section,
		args:    append(slices.Clip(l.args), args...),
	}
}

// ForRequest scopes the logger to the trace and owner carried by ctx, when present
func (l *Logger) ForRequest(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	scoped := l
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok && trace != "" {
		scoped = scoped.With("traceId", trace)
	}
	if owner, ok := ctx.Value(config.OWNER_ID_KEY).(string); ok && owner != "" {
		scoped = scoped.With("ownerId", owner)
	}
	return scoped
}
