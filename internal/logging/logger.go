// Package logging provides config-driven categorized file-based logging
// for PowerPilot. Logs are written to .powerpilot/logs/ with separate
// files per category. Logging is controlled by the logging section of
// the config - when debug mode is off, no files are written.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup and wiring
	CategoryRegistry   Category = "registry"   // Taxonomy registration and validation
	CategoryCapability Category = "capability" // Probing and tier cache
	CategoryPlatform   Category = "platform"   // OS bridge calls
	CategoryHandlers   Category = "handlers"   // Handler execution
	CategoryEngine     Category = "engine"     // Batch coordination
	CategoryHistory    Category = "history"    // Outcome recording
	CategoryPermission Category = "permission" // Grant watcher
	CategoryServer     Category = "server"     // HTTP ingest surface
)

// Options controls logger behavior. Supplied by the config layer at
// startup so this package never parses config files itself.
type Options struct {
	DebugMode  bool
	Level      string // debug/info/warn/error
	JSONFormat bool
	Categories map[string]bool // nil means all enabled
}

// StructuredLogEntry is the JSON form of one log line.
type StructuredLogEntry struct {
	Timestamp int64          `json:"ts"` // Unix milliseconds
	Category  string         `json:"cat"`
	Level     string         `json:"lvl"`
	Message   string         `json:"msg"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	opts      Options
	optsMu    sync.RWMutex
	logLevel  int
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory. Should be called once at
// startup with the workspace path and the loaded logging options.
func Initialize(workspace string, o Options) error {
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}

	optsMu.Lock()
	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	optsMu.Unlock()

	if !o.DebugMode {
		return nil // Silent no-op in production mode
	}

	logsDir = filepath.Join(workspace, ".powerpilot", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== PowerPilot logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", o.Level)
	return nil
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()

	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. Returns a
// no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation a matter of deleting old files.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{
		Timestamp: time.Now().UnixMilli(),
		Category:  string(l.category),
		Level:     level,
		Message:   msg,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

func (l *Logger) emit(level int, tag, msg string) {
	if l.logger == nil || logLevel > level {
		return
	}
	optsMu.RLock()
	jsonFormat := opts.JSONFormat
	optsMu.RUnlock()
	if jsonFormat {
		l.logJSON(tag, msg)
	} else {
		l.logger.Printf("[%s] %s", tag, msg)
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.emit(LevelDebug, "DEBUG", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.emit(LevelInfo, "INFO", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.emit(LevelWarn, "WARN", fmt.Sprintf(format, args...))
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.emit(LevelError, "ERROR", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first.
// These are no-ops if the category is disabled.
// =============================================================================

// Boot logs to the boot category.
func Boot(format string, args ...any) { Get(CategoryBoot).Info(format, args...) }

// BootDebug logs debug to the boot category.
func BootDebug(format string, args ...any) { Get(CategoryBoot).Debug(format, args...) }

// BootError logs error to the boot category.
func BootError(format string, args ...any) { Get(CategoryBoot).Error(format, args...) }

// Registry logs to the registry category.
func Registry(format string, args ...any) { Get(CategoryRegistry).Info(format, args...) }

// RegistryDebug logs debug to the registry category.
func RegistryDebug(format string, args ...any) { Get(CategoryRegistry).Debug(format, args...) }

// Capability logs to the capability category.
func Capability(format string, args ...any) { Get(CategoryCapability).Info(format, args...) }

// CapabilityDebug logs debug to the capability category.
func CapabilityDebug(format string, args ...any) { Get(CategoryCapability).Debug(format, args...) }

// CapabilityWarn logs warning to the capability category.
func CapabilityWarn(format string, args ...any) { Get(CategoryCapability).Warn(format, args...) }

// Platform logs to the platform category.
func Platform(format string, args ...any) { Get(CategoryPlatform).Info(format, args...) }

// PlatformDebug logs debug to the platform category.
func PlatformDebug(format string, args ...any) { Get(CategoryPlatform).Debug(format, args...) }

// PlatformWarn logs warning to the platform category.
func PlatformWarn(format string, args ...any) { Get(CategoryPlatform).Warn(format, args...) }

// Handlers logs to the handlers category.
func Handlers(format string, args ...any) { Get(CategoryHandlers).Info(format, args...) }

// HandlersDebug logs debug to the handlers category.
func HandlersDebug(format string, args ...any) { Get(CategoryHandlers).Debug(format, args...) }

// Engine logs to the engine category.
func Engine(format string, args ...any) { Get(CategoryEngine).Info(format, args...) }

// EngineDebug logs debug to the engine category.
func EngineDebug(format string, args ...any) { Get(CategoryEngine).Debug(format, args...) }

// EngineWarn logs warning to the engine category.
func EngineWarn(format string, args ...any) { Get(CategoryEngine).Warn(format, args...) }

// EngineError logs error to the engine category.
func EngineError(format string, args ...any) { Get(CategoryEngine).Error(format, args...) }

// History logs to the history category.
func History(format string, args ...any) { Get(CategoryHistory).Info(format, args...) }

// HistoryDebug logs debug to the history category.
func HistoryDebug(format string, args ...any) { Get(CategoryHistory).Debug(format, args...) }

// HistoryError logs error to the history category.
func HistoryError(format string, args ...any) { Get(CategoryHistory).Error(format, args...) }

// Permission logs to the permission category.
func Permission(format string, args ...any) { Get(CategoryPermission).Info(format, args...) }

// PermissionDebug logs debug to the permission category.
func PermissionDebug(format string, args ...any) { Get(CategoryPermission).Debug(format, args...) }

// PermissionWarn logs warning to the permission category.
func PermissionWarn(format string, args ...any) { Get(CategoryPermission).Warn(format, args...) }

// Server logs to the server category.
func Server(format string, args ...any) { Get(CategoryServer).Info(format, args...) }

// ServerDebug logs debug to the server category.
func ServerDebug(format string, args ...any) { Get(CategoryServer).Debug(format, args...) }

// ServerError logs error to the server category.
func ServerError(format string, args ...any) { Get(CategoryServer).Error(format, args...) }

// =============================================================================
// TIMING HELPERS - For performance logging.
// =============================================================================

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
