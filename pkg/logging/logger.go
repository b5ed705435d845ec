// Package logging provides structured run logging for ledgerdeploy.
//
// Every deployment run writes leveled, timestamped status lines to two
// destinations at once:
//
//   - Console: colorized, human-readable output on stderr (tint handler)
//   - Run log artifact: an append-only JSON-lines file that survives the
//     run and lets a reader reconstruct the full decision trail, including
//     warnings on runs that ultimately succeeded
//
// # Architecture
//
// The logger is built on the standard library slog package with a fan-out
// handler so console and file can use different formats:
//
//	┌──────────────────────────────────────────────────────────┐
//	│                        Logger                            │
//	│  ┌──────────────┐  ┌──────────────┐  ┌───────────────┐  │
//	│  │   console    │  │ run log file │  │  LogExporter  │  │
//	│  │  (tint/text) │  │ (JSON lines) │  │  (optional)   │  │
//	│  └──────────────┘  └──────────────┘  └───────────────┘  │
//	└──────────────────────────────────────────────────────────┘
//
// # Levels
//
// In addition to the usual Debug/Info/Warn/Error, a Success level exists
// so the run log can carry an explicit per-stage SUCCESS line. Success
// ranks between Info and Warn: enabling Info also enables Success.
//
// # Basic Usage
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogFile: "deploy.log",
//	    Service: "deploy",
//	})
//	defer logger.Close()
//
//	logger.Info("applying manifest", "file", "mongo-secret.yaml")
//	logger.Success("stage completed", "stage", "apply")
//
// # Thread Safety
//
// Logger is safe for concurrent use. The underlying slog handlers are
// thread-safe and mutable state is protected by a mutex.
//
// # Security Considerations
//
// The package does not redact anything. Callers must not log secret
// material; log presence, not values.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// =============================================================================
// Log Levels
// =============================================================================

// Level represents log severity.
//
// Ordering: Debug < Info < Success < Warn < Error. Setting a minimum
// level filters out everything below it.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelSuccess marks a pipeline stage that completed cleanly.
	// It exists so the persisted run log carries explicit SUCCESS lines.
	LevelSuccess

	// LevelWarn is for recoverable issues the run survives
	// (missing optional manifest, readiness timeout, advisory probe failure).
	LevelWarn

	// LevelError is for operation failures.
	LevelError
)

// slogLevelSuccess is the custom slog level backing LevelSuccess.
// slog.LevelInfo is 0 and slog.LevelWarn is 4; Success sits between.
const slogLevelSuccess = slog.Level(2)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelSuccess:
		return "SUCCESS"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel converts our Level to slog.Level.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelSuccess:
		return slogLevelSuccess
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// renameLevel maps the custom Success slog level to its display name.
// Installed as ReplaceAttr on every handler so both the console and the
// JSON artifact print "SUCCESS" instead of "INFO+2".
func renameLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == slogLevelSuccess {
			a.Value = slog.StringValue("SUCCESS")
		}
	}
	return a
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures Logger behavior.
//
// A zero-value Config creates a logger that writes Info+ messages to
// stderr in text format with no file artifact.
type Config struct {
	// Level sets the minimum log level. Default: LevelInfo.
	Level Level

	// LogFile enables the persisted run log artifact at the given path.
	//
	// The file is opened in append mode and created (with its parent
	// directory) if absent. Entries are always JSON regardless of the
	// console format. Supports ~ expansion.
	//
	// Default: "" (no artifact).
	LogFile string

	// Service identifies the component generating logs. It is attached
	// to every entry as the "service" attribute. Default: "".
	Service string

	// NoColor disables ANSI colors on the console handler.
	// Colors are also disabled automatically when stderr is not a TTY.
	NoColor bool

	// Quiet disables console output entirely. The run log file and the
	// exporter still receive entries.
	Quiet bool

	// Exporter is an optional extension point for shipping log entries
	// to an external system. Entries are delivered asynchronously and
	// export failures never disrupt the run. Default: nil.
	Exporter LogExporter
}

// =============================================================================
// Export Extension Point
// =============================================================================

// LogExporter receives log entries for delivery to an external system
// (object storage, a log aggregator, an OTLP collector).
//
// Implementations should buffer internally; Export is called once per
// entry and must not block the deployment pipeline. Flush is called
// during shutdown and should drain the buffer. Close releases resources
// after Flush.
type LogExporter interface {
	// Export sends one entry. Errors are logged-and-dropped by the Logger.
	Export(ctx context.Context, entry LogEntry) error

	// Flush drains buffered entries. Called during graceful shutdown.
	Flush(ctx context.Context) error

	// Close releases resources. Called after Flush.
	Close() error
}

// LogEntry is the structured form handed to LogExporter implementations.
type LogEntry struct {
	// Timestamp when the log was generated.
	Timestamp time.Time

	// Level of the entry.
	Level Level

	// Message is the primary log message.
	Message string

	// Service identifies the component (from Config.Service).
	Service string

	// Attrs contains the key-value attributes of the entry.
	Attrs map[string]any
}

// =============================================================================
// Logger
// =============================================================================

// Logger provides structured logging with fan-out to console, run log
// artifact, and optional exporter.
//
// Always call Close() on loggers with a LogFile or Exporter configured,
// so the artifact is synced and the exporter drained.
type Logger struct {
	// slog is the underlying structured logger.
	slog *slog.Logger

	// config stores the configuration for reference.
	config Config

	// file is the run log artifact handle (nil when disabled).
	file *os.File

	// exporter is the optional log exporter.
	exporter LogExporter

	// mu protects file and exporter during Close.
	mu sync.Mutex
}

// New creates a Logger from the given configuration.
//
// Destinations are assembled from config: a console handler on stderr
// (unless Quiet), a JSON file handler (if LogFile is set), and the
// exporter hook (if Exporter is set). The file handler failing to open
// is deliberately non-fatal — a deployment must not abort because its
// log artifact is unwritable — but the condition is reported on stderr.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{
		Level:       config.Level.toSlogLevel(),
		ReplaceAttr: renameLevel,
	}

	var handlers []slog.Handler
	if !config.Quiet {
		handlers = append(handlers, tint.NewHandler(os.Stderr, &tint.Options{
			Level:       config.Level.toSlogLevel(),
			ReplaceAttr: renameLevel,
			TimeFormat:  time.TimeOnly,
			NoColor:     config.NoColor || !isatty.IsTerminal(os.Stderr.Fd()),
		}))
	}

	logger := &Logger{
		config:   config,
		exporter: config.Exporter,
	}

	if config.LogFile != "" {
		logPath := expandPath(config.LogFile)
		if err := os.MkdirAll(filepath.Dir(logPath), 0750); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot create log directory for %s: %v\n", logPath, err)
		} else {
			file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: cannot open run log %s: %v\n", logPath, err)
			} else {
				logger.file = file
				handlers = append(handlers, slog.NewJSONHandler(file, opts))
			}
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", config.Service),
		})
	}

	logger.slog = slog.New(handler)
	return logger
}

// Default returns a logger with default settings: Info level, console
// only, service "ledgerdeploy".
func Default() *Logger {
	return New(Config{
		Level:   LevelInfo,
		Service: "ledgerdeploy",
	})
}

// Debug logs a message at Debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, msg, args...)
}

// Info logs a message at Info level.
func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, msg, args...)
}

// Success logs a message at Success level.
//
// Use once per pipeline stage that completes cleanly, so the persisted
// run log carries an auditable SUCCESS line for each stage.
func (l *Logger) Success(msg string, args ...any) {
	l.log(LevelSuccess, msg, args...)
}

// Warn logs a message at Warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, msg, args...)
}

// Error logs a message at Error level.
func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, msg, args...)
}

// With returns a new Logger carrying additional attributes.
//
// The returned logger shares the parent's file handle and exporter;
// Close should only be called on the root logger.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:     l.slog.With(args...),
		config:   l.config,
		file:     l.file,
		exporter: l.exporter,
	}
}

// Slog returns the underlying slog.Logger for callers that need direct
// slog features.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// LogFilePath returns the resolved path of the run log artifact, or ""
// when file logging is disabled.
func (l *Logger) LogFilePath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close flushes the exporter and syncs and closes the run log artifact.
// Returns the first error encountered.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error

	if l.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.exporter.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush exporter: %w", err))
		}
		if err := l.exporter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close exporter: %w", err))
		}
	}

	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync run log: %w", err))
		}
		if err := l.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close run log: %w", err))
		}
		l.file = nil
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// log writes to all destinations.
func (l *Logger) log(level Level, msg string, args ...any) {
	l.slog.Log(context.Background(), level.toSlogLevel(), msg, args...)

	if l.exporter != nil && level >= l.config.Level {
		entry := LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Message:   msg,
			Service:   l.config.Service,
			Attrs:     argsToMap(args),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = l.exporter.Export(ctx, entry)
		}()
	}
}

// =============================================================================
// Multi-Handler (Internal)
// =============================================================================

// multiHandler fans out log records to multiple slog handlers, letting
// console and file use different formats.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled returns true if any handler is enabled for the level.
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to all enabled handlers.
func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs returns a new handler with additional attributes.
func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

// WithGroup returns a new handler with a group name.
func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// =============================================================================
// Helper Functions
// =============================================================================

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// argsToMap converts slog-style key-value args to a map for LogEntry.Attrs.
func argsToMap(args []any) map[string]any {
	result := make(map[string]any)
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			result[key] = args[i+1]
		}
	}
	return result
}

// =============================================================================
// Built-in Exporters
// =============================================================================

// NopExporter discards all entries. Useful when export is disabled.
type NopExporter struct{}

// Export discards the entry.
func (e *NopExporter) Export(ctx context.Context, entry LogEntry) error { return nil }

// Flush is a no-op.
func (e *NopExporter) Flush(ctx context.Context) error { return nil }

// Close is a no-op.
func (e *NopExporter) Close() error { return nil }

var _ LogExporter = (*NopExporter)(nil)

// BufferedExporter collects entries in memory.
//
// Useful in tests to verify log output:
//
//	exporter := logging.NewBufferedExporter()
//	logger := logging.New(logging.Config{Exporter: exporter})
//	logger.Info("test message")
//	entries := exporter.Entries()
type BufferedExporter struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewBufferedExporter creates a new BufferedExporter.
func NewBufferedExporter() *BufferedExporter {
	return &BufferedExporter{
		entries: make([]LogEntry, 0, 100),
	}
}

// Export adds the entry to the buffer.
func (e *BufferedExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	return nil
}

// Flush is a no-op (entries are already in memory).
func (e *BufferedExporter) Flush(ctx context.Context) error { return nil }

// Close is a no-op.
func (e *BufferedExporter) Close() error { return nil }

// Entries returns a copy of all collected entries.
func (e *BufferedExporter) Entries() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]LogEntry, len(e.entries))
	copy(result, e.entries)
	return result
}

var _ LogExporter = (*BufferedExporter)(nil)
