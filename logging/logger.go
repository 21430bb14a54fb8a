// Package logging configures log/slog for the dermacare API: human readable text on the
// console, JSON lines in a weekly rotating file, and package-level helpers used across
// the codebase.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Options controls logger construction
type Options struct {
	Dir            string
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
}

type LoggingService struct {
	Logger *slog.Logger
	writer *RotatingWriter
}

var DefaultLoggingService *LoggingService

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// InitLogger initializes the global logger at info level with default retention.
// An empty logDir logs to the console only.
func InitLogger(logDir string) {
	InitLoggerWithOptions(Options{Dir: logDir, Level: "info", RetentionWeeks: 4, MaxFileSize: 100 * 1024 * 1024})
}

// InitLoggerWithOptions initializes the global logger and makes it the slog default
func InitLoggerWithOptions(opts Options) {
	if DefaultLoggingService != nil && DefaultLoggingService.writer != nil {
		_ = DefaultLoggingService.writer.Close()
	}

	logger, writer := SetupLogger(opts)
	DefaultLoggingService = &LoggingService{
		Logger: logger,
		writer: writer,
	}
	slog.SetDefault(logger)
}

// Close releases the rotating log file of the global logger
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.writer == nil {
		return nil
	}
	return DefaultLoggingService.writer.Close()
}

// SetupLogger builds a logger writing text to stdout and, when a directory is given,
// JSON to a rotating file. A file setup failure degrades to console only.
func SetupLogger(opts Options) (*slog.Logger, *RotatingWriter) {
	level := ParseLevel(opts.Level)

	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	if opts.Dir == "" {
		return slog.New(consoleHandler), nil
	}

	writer, err := NewRotatingWriter(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if err != nil {
		consoleLogger := slog.New(consoleHandler)
		consoleLogger.Error("Failed to initialize rotating logger", "error", err)
		return consoleLogger, nil
	}
	writer.startCleanup()

	fileHandler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}), writer
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}

// Package-level functions for direct access

func current() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		// Fallback to console logger if not initialized
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return DefaultLoggingService.Logger
}

func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}
