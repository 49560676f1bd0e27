package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config mirrors the logging section of the application config: a console
// sink and a rotated file sink, independently enabled/leveled.
type Config struct {
	ConsoleEnabled bool   `mapstructure:"console_enabled"`
	ConsoleLevel   string `mapstructure:"console_level"`
	FileEnabled    bool   `mapstructure:"file_enabled"`
	FileLevel      string `mapstructure:"file_level"`
	Format         string `mapstructure:"format"`
	File           string `mapstructure:"file"`
	MaxSize        int    `mapstructure:"max_size_mb"`
	MaxBackups     int    `mapstructure:"max_backups"`
	MaxAge         int    `mapstructure:"max_age_days"`
	Compress       bool   `mapstructure:"compress"`
}

// New builds a fanout *slog.Logger from cfg: console and/or rotated file
// sinks, each independently leveled, falling back to a discarded sink if
// neither is enabled.
func New(cfg Config) *slog.Logger {
	var handlers []slog.Handler

	if cfg.ConsoleEnabled {
		opts := &slog.HandlerOptions{Level: parseLevel(cfg.ConsoleLevel)}
		handlers = append(handlers, newHandler(os.Stdout, cfg.Format, opts))
	}

	if cfg.FileEnabled && cfg.File != "" {
		opts := &slog.HandlerOptions{Level: parseLevel(cfg.FileLevel)}
		writer := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		handlers = append(handlers, newHandler(writer, cfg.Format, opts))
	}

	if len(handlers) == 0 {
		handlers = append(handlers, slog.NewTextHandler(io.Discard, nil))
	}

	return slog.New(NewFanoutHandler(handlers...))
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FanoutHandler broadcasts records to multiple handlers.
type FanoutHandler struct {
	handlers []slog.Handler
}

// NewFanoutHandler creates a new FanoutHandler with the given handlers.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{handlers: handlers}
}

// Enabled returns true if any of the handlers are enabled.
func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle calls Handle on all underlying handlers.
func (h *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// WithGroup returns a new FanoutHandler with the group applied to all handlers.
func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return NewFanoutHandler(handlers...)
}

// WithAttrs returns a new FanoutHandler with the attributes applied to all handlers.
func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return NewFanoutHandler(handlers...)
}
