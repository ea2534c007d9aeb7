package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelAlert LogLevel = "ALERT"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
	LogLevelAlert: 3,
}

// Logger writes leveled, key-value structured entries to a daily file and
// optionally mirrors them to stderr.
type Logger struct {
	mu       sync.Mutex
	logFile  *os.File
	logger   *log.Logger
	minLevel LogLevel
	logDir   string
	name     string
}

// New creates a logger writing to logs/<name>_<date>.log. Entries below
// minLevel are dropped.
func New(name string, minLevel LogLevel) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", name, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		logFile:  file,
		logger:   log.New(io.MultiWriter(file, os.Stderr), "", 0),
		minLevel: minLevel,
		logDir:   logDir,
		name:     name,
	}
	l.Info("session started", "name", name)
	return l, nil
}

// NewDiscard returns a logger that drops everything; used in tests.
func NewDiscard() *Logger {
	return &Logger{
		logger:   log.New(io.Discard, "", 0),
		minLevel: LogLevelAlert,
	}
}

// Log writes one entry with alternating key-value context fields.
func (l *Logger) Log(level LogLevel, message string, kv ...any) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", time.Now().Format("2006-01-02 15:04:05"), level, message)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	l.logger.Println(b.String())
}

// Debug logs a debug message
func (l *Logger) Debug(message string, kv ...any) {
	l.Log(LogLevelDebug, message, kv...)
}

// Info logs an info message
func (l *Logger) Info(message string, kv ...any) {
	l.Log(LogLevelInfo, message, kv...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, kv ...any) {
	l.Log(LogLevelWarn, message, kv...)
}

// Error logs an error message
func (l *Logger) Error(message string, kv ...any) {
	l.Log(LogLevelError, message, kv...)
}

// Alert logs an emitted alert event so the daily file doubles as an audit
// trail alongside the JSONL history.
func (l *Logger) Alert(message string, kv ...any) {
	l.Log(LogLevelAlert, message, kv...)
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		l.logger.Printf("[%s] [%s] session ended", time.Now().Format("2006-01-02 15:04:05"), LogLevelInfo)
		return l.logFile.Close()
	}
	return nil
}

// Path returns the current log file path.
func (l *Logger) Path() string {
	timestamp := time.Now().Format("2006-01-02")
	return filepath.Join(l.logDir, fmt.Sprintf("%s_%s.log", l.name, timestamp))
}
