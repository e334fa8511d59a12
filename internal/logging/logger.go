package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type LogLevel string

const (
	DEBUG LogLevel = "debug"
	INFO  LogLevel = "info"
	WARN  LogLevel = "warn"
	ERROR LogLevel = "error"
)

var levelRank = map[LogLevel]int{
	DEBUG: 0,
	INFO:  1,
	WARN:  2,
	ERROR: 3,
}

type LogEntry struct {
	Timestamp     time.Time              `json:"timestamp"`
	Level         LogLevel               `json:"level"`
	Message       string                 `json:"message"`
	Source        string                 `json:"source,omitempty"`
	CorrelationID string                 `json:"correlationId,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

// Logger appends JSON lines to a per-day file under logDir and echoes a
// short form to the console writer.
type Logger struct {
	mu       sync.Mutex
	logDir   string
	day      string
	file     *os.File
	console  io.Writer
	minLevel LogLevel
}

var (
	globalLogger *Logger
	globalMu     sync.Mutex
)

// New creates a logger writing under logDir. An empty logDir disables the
// file sink.
func New(logDir string, minLevel LogLevel, console io.Writer) (*Logger, error) {
	if _, ok := levelRank[minLevel]; !ok {
		minLevel = INFO
	}
	l := &Logger{
		logDir:   logDir,
		console:  console,
		minLevel: minLevel,
	}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return l, nil
}

// InitializeLogger installs the process-wide logger used by the package
// level helpers.
func InitializeLogger(logDir string, minLevel string) error {
	l, err := New(logDir, LogLevel(minLevel), os.Stderr)
	if err != nil {
		return err
	}
	globalMu.Lock()
	old := globalLogger
	globalLogger = l
	globalMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

func GetLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = &Logger{console: os.Stderr, minLevel: INFO}
	}
	return globalLogger
}

// openLogFile rotates to today's file when the date changes. Caller holds l.mu.
func (l *Logger) openLogFile(now time.Time) error {
	today := now.Format("2006-01-02")
	if l.file != nil && l.day == today {
		return nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	filename := filepath.Join(l.logDir, fmt.Sprintf("%s.jsonl", today))
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.day = today
	return nil
}

func (l *Logger) enabled(level LogLevel) bool {
	return levelRank[level] >= levelRank[l.minLevel]
}

func (l *Logger) Log(ctx context.Context, level LogLevel, message string, source string, data map[string]interface{}) {
	if !l.enabled(level) {
		return
	}

	entry := LogEntry{
		Timestamp:     time.Now(),
		Level:         level,
		Message:       message,
		Source:        source,
		CorrelationID: CorrelationID(ctx),
		Data:          data,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.console != nil {
		fmt.Fprintf(l.console, "[%s] %-5s %s: %s\n", entry.Timestamp.Format("15:04:05"), level, source, message)
	}

	if l.logDir == "" {
		return
	}
	if err := l.openLogFile(entry.Timestamp); err != nil {
		if l.console != nil {
			fmt.Fprintf(l.console, "Warning: failed to open log file: %v\n", err)
		}
		return
	}
	if jsonData, err := json.Marshal(entry); err == nil {
		l.file.Write(append(jsonData, '\n'))
	}
}

func (l *Logger) Debug(message string, source string, data map[string]interface{}) {
	l.Log(context.Background(), DEBUG, message, source, data)
}

func (l *Logger) Info(message string, source string, data map[string]interface{}) {
	l.Log(context.Background(), INFO, message, source, data)
}

func (l *Logger) Warn(message string, source string, data map[string]interface{}) {
	l.Log(context.Background(), WARN, message, source, data)
}

func (l *Logger) Error(message string, source string, data map[string]interface{}) {
	l.Log(context.Background(), ERROR, message, source, data)
}

// GetLogPath returns the file entries for the given day are written to.
func (l *Logger) GetLogPath(day time.Time) string {
	return filepath.Join(l.logDir, fmt.Sprintf("%s.jsonl", day.Format("2006-01-02")))
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Global convenience functions
func Debug(message string, source string, data map[string]interface{}) {
	GetLogger().Debug(message, source, data)
}

func Info(message string, source string, data map[string]interface{}) {
	GetLogger().Info(message, source, data)
}

func Warn(message string, source string, data map[string]interface{}) {
	GetLogger().Warn(message, source, data)
}

func Error(message string, source string, data map[string]interface{}) {
	GetLogger().Error(message, source, data)
}

// Request-scoped variants attach the correlation id carried by ctx.

func InfoCtx(ctx context.Context, message string, source string, data map[string]interface{}) {
	GetLogger().Log(ctx, INFO, message, source, data)
}

func WarnCtx(ctx context.Context, message string, source string, data map[string]interface{}) {
	GetLogger().Log(ctx, WARN, message, source, data)
}

func ErrorCtx(ctx context.Context, message string, source string, data map[string]interface{}) {
	GetLogger().Log(ctx, ERROR, message, source, data)
}
