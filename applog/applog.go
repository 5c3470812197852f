// Package applog provides general-purpose application logging.
//
// Logs are written to ~/.floatwords/logs/app.log with timestamps.
// Covers: app start/stop, provider transitions, settings changes,
// cache hits/misses and general events.
//
// Until Init is called every message is discarded, so packages can log
// freely from tests without touching the user's home directory.
package applog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	logFile *os.File
	logger  = log.NewWithOptions(io.Discard, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		Level:           log.InfoLevel,
	})
)

// Init opens (or creates) app.log inside dir. When debug is set the
// logger also records Debug messages.
func Init(dir string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "app.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logger.SetOutput(f)
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return nil
}

// Debug logs a debug message with optional key/value pairs.
func Debug(msg string, keyvals ...interface{}) {
	logger.Debug(msg, keyvals...)
}

// Info logs a general info message.
func Info(msg string, keyvals ...interface{}) {
	logger.Info(msg, keyvals...)
}

// Warn logs a recoverable problem.
func Warn(msg string, keyvals ...interface{}) {
	logger.Warn(msg, keyvals...)
}

// Error logs an error message.
func Error(msg string, keyvals ...interface{}) {
	logger.Error(msg, keyvals...)
}

// Event logs a structured event with a category prefix
// ("provider", "settings", "spawn", ...).
func Event(category string, msg string, keyvals ...interface{}) {
	logger.WithPrefix(category).Info(msg, keyvals...)
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logger.SetOutput(io.Discard)
		logFile.Close()
		logFile = nil
	}
}
