package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// Logger provides leveled logging with verbose mode support.
// Debug messages are only emitted in verbose mode.
type Logger struct {
	mu      sync.RWMutex
	verbose bool
	base    *log.Logger
}

var (
	loggerInstance *Logger
	once           sync.Once
)

func newBaseLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           log.InfoLevel,
		Formatter:       log.TextFormatter,
		ReportTimestamp: false,
		Prefix:          "todoed",
	})
}

// GetLogger returns the singleton logger instance.
func GetLogger() *Logger {
	once.Do(func() {
		loggerInstance = &Logger{
			base: newBaseLogger(os.Stderr),
		}
	})
	return loggerInstance
}

// SetVerboseMode sets the verbose mode globally.
func SetVerboseMode(verbose bool) {
	GetLogger().SetVerbose(verbose)
}

// SetVerbose sets the verbose mode for this logger instance.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = verbose
	if verbose {
		l.base.SetLevel(log.DebugLevel)
		l.base.SetReportTimestamp(true)
		l.base.SetTimeFormat("15:04:05")
	} else {
		l.base.SetLevel(log.InfoLevel)
		l.base.SetReportTimestamp(false)
	}
}

// IsVerbose returns whether verbose mode is enabled.
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// SetOutput redirects all log output to w.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.base.SetOutput(w)
}

// Configure applies level and format names from configuration.
// Unknown names fall back to info and text.
func (l *Logger) Configure(level, format string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lvl, err := log.ParseLevel(level); err == nil && level != "" {
		l.base.SetLevel(lvl)
		l.verbose = lvl <= log.DebugLevel
	}

	switch format {
	case "json":
		l.base.SetFormatter(log.JSONFormatter)
	case "logfmt":
		l.base.SetFormatter(log.LogfmtFormatter)
	default:
		l.base.SetFormatter(log.TextFormatter)
	}
}

// With returns a structured logger carrying the given key/value pairs.
func (l *Logger) With(keyvals ...interface{}) *log.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.base.With(keyvals...)
}

// formatMessage formats a message with optional printf-style arguments.
func formatMessage(msgOrFormat string, args ...interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(msgOrFormat, args...)
	}
	return msgOrFormat
}

// Debug logs a debug message (only shown when verbose=true).
// Can be used with a simple message or printf-style format string with args.
func (l *Logger) Debug(msgOrFormat string, args ...interface{}) {
	if !l.IsVerbose() {
		return
	}
	l.base.Debug(formatMessage(msgOrFormat, args...))
}

// Info logs an info message.
func (l *Logger) Info(msgOrFormat string, args ...interface{}) {
	l.base.Info(formatMessage(msgOrFormat, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(msgOrFormat string, args ...interface{}) {
	l.base.Warn(formatMessage(msgOrFormat, args...))
}

// Error logs an error message.
func (l *Logger) Error(msgOrFormat string, args ...interface{}) {
	l.base.Error(formatMessage(msgOrFormat, args...))
}

// Debugf is a convenience function that logs a debug message using the global logger.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

// Infof is a convenience function that logs an info message using the global logger.
func Infof(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

// Warnf is a convenience function that logs a warning message using the global logger.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

// Errorf is a convenience function that logs an error message using the global logger.
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

// LogFile is a log destination that the editor writes to while the
// terminal is owned by the UI.
type LogFile struct {
	file     *os.File
	filePath string
}

// OpenLogFile opens path for appending and points the global logger at it.
// On failure the logger is pointed at io.Discard and the error is returned.
func OpenLogFile(path string) (*LogFile, error) {
	lf := &LogFile{filePath: path}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		GetLogger().SetOutput(io.Discard)
		return lf, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		GetLogger().SetOutput(io.Discard)
		return lf, err
	}

	lf.file = file
	GetLogger().SetOutput(file)
	return lf, nil
}

// Path returns the log file path.
func (lf *LogFile) Path() string {
	return lf.filePath
}

// Close closes the log file and restores logging to stderr.
func (lf *LogFile) Close() {
	GetLogger().SetOutput(os.Stderr)
	if lf.file != nil {
		_ = lf.file.Close()
		lf.file = nil
	}
}
