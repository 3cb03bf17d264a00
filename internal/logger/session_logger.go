// Package logger provides a session file logger for trading activity.
// Each trading session writes to its own dated file under the log
// directory so live runs can be audited after the fact.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogLevel tags each log entry with its kind.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelTrade LogLevel = "TRADE"
	LogLevelRisk  LogLevel = "RISK"
)

// Logger writes timestamped, leveled entries for one trading session.
// Safe for concurrent use.
type Logger struct {
	session string
	file    *os.File
	logger  *log.Logger
	mu      sync.Mutex
}

// New creates a session logger writing to logs/<session>_<date>.log.
func New(session string) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", session, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(logDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &Logger{
		session: session,
		file:    file,
		logger:  log.New(file, "", 0),
	}
	l.Log(LogLevelInfo, "session %s started", session)
	return l, nil
}

// NewWriter creates a logger over an arbitrary writer, used by tests and
// by callers that want console output instead of a session file.
func NewWriter(session string, w io.Writer) *Logger {
	return &Logger{
		session: session,
		logger:  log.New(w, "", 0),
	}
}

// Log writes one formatted entry at the given level.
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("[%s] [%s] %s",
		time.Now().Format("2006-01-02 15:04:05"), level, fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.Log(LogLevelWarn, format, args...)
}

// Error logs an error.
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs an order or fill event.
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Risk logs a risk decision. Validation rejections are expected events,
// logged here rather than as errors.
func (l *Logger) Risk(format string, args ...interface{}) {
	l.Log(LogLevelRisk, format, args...)
}

// Close flushes and closes the underlying session file.
func (l *Logger) Close() error {
	l.Log(LogLevelInfo, "session %s ended", l.session)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
