// Package logging is the process-wide diagnostic log for wikiwatch.
//
// The TUI owns the terminal, so log lines go to a dated file under the data
// directory. Every helper is a no-op until Init or SetOutput is called.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	logger  *log.Logger
	logFile *os.File
)

// ParseLevel maps a config string onto a log level. Unknown values fall back
// to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Init opens <dataDir>/logs/wikiwatch-YYYY-MM-DD.log and installs it as the
// global logger.
func Init(dataDir, level string) error {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("wikiwatch-%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	SetOutput(f, level)

	mu.Lock()
	logFile = f
	mu.Unlock()
	return nil
}

// SetOutput installs a logger writing to w. Used by Init and by tests.
func SetOutput(w io.Writer, level string) {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           ParseLevel(level),
	})

	mu.Lock()
	logger = l
	mu.Unlock()
}

// Close closes the log file and uninstalls the logger.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logger = nil
}

func current() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Info(msg, keyvals...)
	}
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Debug(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	if l := current(); l != nil {
		l.Error(msg, keyvals...)
	}
}

// WithPrefix returns a logger tagged with a component name. Before Init it
// returns a logger that discards everything, so callers never nil-check.
func WithPrefix(prefix string) *log.Logger {
	if l := current(); l != nil {
		return l.WithPrefix(prefix)
	}
	return log.NewWithOptions(io.Discard, log.Options{Prefix: prefix})
}
