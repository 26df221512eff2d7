// Package logging provides config-driven categorized file-based logging for htnadmin.
// Logs are written to <dir>/YYYY-MM-DD_<category>.log with one file per category.
// Logging is controlled by logging.debug_mode in config.yaml - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config loading
	CategorySession  Category = "session"  // Login, MFA, logout, 401 handling
	CategoryAPI      Category = "api"      // Outgoing admin API calls
	CategoryCallList Category = "calllist" // Call list workflow
	CategoryViews    Category = "views"    // List views and pollers
	CategoryStore    Category = "store"    // Local SQLite store
	CategoryExport   Category = "export"   // CSV export and archiving
	CategoryEvents   Category = "events"   // Action event publishing
	CategoryUI       Category = "ui"       // TUI dashboard
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryBoot, CategorySession, CategoryAPI, CategoryCallList,
	CategoryViews, CategoryStore, CategoryExport, CategoryEvents, CategoryUI,
}

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type Options struct {
	Dir        string
	DebugMode  bool
	Level      string
	JSONFormat bool
	Categories map[string]bool
}

// Logger wraps a zap sugared logger bound to one category and file
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	opts      Options
	optsMu    sync.RWMutex
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	nop       = zap.NewNop().Sugar()
)

// Initialize sets up the logging directory.
// Should be called once at startup, and again whenever config changes.
func Initialize(o Options) error {
	CloseAll()

	optsMu.Lock()
	opts = o
	optsMu.Unlock()
	level.SetLevel(parseLevel(o.Level))

	// Only create logs directory if debug mode is enabled
	if !o.DebugMode {
		return nil
	}
	if o.Dir == "" {
		return fmt.Errorf("logs directory required")
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== htnadmin logging initialized ===")
	boot.Info("Logs directory: %s", o.Dir)
	boot.Info("Log level: %s", level.Level())
	if len(o.Categories) > 0 {
		enabled := 0
		for cat, on := range o.Categories {
			if on {
				enabled++
			}
			boot.Debug("Category '%s': %v", cat, on)
		}
		boot.Info("Enabled categories: %d/%d", enabled, len(o.Categories))
	} else {
		boot.Info("All categories enabled (no category filter)")
	}
	return nil
}

// SetLevel changes the level of every open logger.
func SetLevel(l string) {
	level.SetLevel(parseLevel(l))
}

func parseLevel(l string) zapcore.Level {
	switch strings.ToLower(l) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()

	if !opts.DebugMode || opts.Dir == "" {
		return false
	}
	if opts.Categories == nil {
		return true // All enabled by default in debug mode
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: nop}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	optsMu.RLock()
	dir, jsonFormat := opts.Dir, opts.JSONFormat
	optsMu.RUnlock()

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category, sugar: nop}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if jsonFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(file), level)

	l := &Logger{
		category: category,
		file:     file,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a child logger carrying structured key/value fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		_ = l.sugar.Sync()
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// Session logs to the session category
func Session(format string, args ...interface{}) {
	Get(CategorySession).Info(format, args...)
}

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debug(format, args...)
}

// SessionWarn logs warning to the session category
func SessionWarn(format string, args ...interface{}) {
	Get(CategorySession).Warn(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// CallList logs to the calllist category
func CallList(format string, args ...interface{}) {
	Get(CategoryCallList).Info(format, args...)
}

// CallListWarn logs warning to the calllist category
func CallListWarn(format string, args ...interface{}) {
	Get(CategoryCallList).Warn(format, args...)
}

// Views logs to the views category
func Views(format string, args ...interface{}) {
	Get(CategoryViews).Info(format, args...)
}

// ViewsDebug logs debug to the views category
func ViewsDebug(format string, args ...interface{}) {
	Get(CategoryViews).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreError logs error to the store category
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// Export logs to the export category
func Export(format string, args ...interface{}) {
	Get(CategoryExport).Info(format, args...)
}

// Events logs to the events category
func Events(format string, args ...interface{}) {
	Get(CategoryEvents).Info(format, args...)
}

// EventsError logs error to the events category
func EventsError(format string, args ...interface{}) {
	Get(CategoryEvents).Error(format, args...)
}

// UI logs debug to the ui category. The TUI is chatty, so it stays at debug.
func UI(format string, args ...interface{}) {
	Get(CategoryUI).Debug(format, args...)
}

// =============================================================================
// REQUEST ID TRACING
// =============================================================================

// WithRequestID creates a request-scoped logger keyed by a correlation ID
func WithRequestID(category Category, requestID string) *Logger {
	return Get(category).With("req", requestID)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
