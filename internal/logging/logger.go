// Package logging provides structured logging with rotating file and console output.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents logging levels
type LogLevel string

// Log levels
const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// LogEntry is one remembered log line
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Component string `json:"component"`
	Message   string `json:"message"`
	Data      string `json:"data,omitempty"`
}

// Logger wraps zerolog with rotating file output and log history
type Logger struct {
	zlog    zerolog.Logger
	file    *lumberjack.Logger
	logPath string
	mu      sync.RWMutex
	history []LogEntry
	maxHist int
}

// Config holds logger configuration
type Config struct {
	LogDir     string   // Directory for log files; empty disables file output
	Level      LogLevel // Minimum log level (default: info)
	MaxHistory int      // Max entries to keep in memory (default: 1000)
	Console    bool     // Also log to console
	MaxSizeMB  int      // Rotate after this many megabytes
	MaxBackups int      // Rotated files to keep
	MaxAgeDays int      // Days to keep rotated files

	// Output overrides the console writer; used by tests.
	Output io.Writer
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		LogDir:     filepath.Join(home, ".faceable", "logs"),
		Level:      LevelInfo,
		MaxHistory: 1000,
		Console:    true,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level LogLevel) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a new Logger
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var (
		writers []io.Writer
		file    *lumberjack.Logger
		logPath string
	)

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		logPath = filepath.Join(cfg.LogDir, "faceable.log")
		file = &lumberjack.Logger{
			Filename:   logPath,
			LocalTime:  true,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		writers = append(writers, file)
	}

	switch {
	case cfg.Output != nil:
		writers = append(writers, cfg.Output)
	case cfg.Console:
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	maxHist := cfg.MaxHistory
	if maxHist <= 0 {
		maxHist = 1000
	}

	logger := &Logger{
		file:    file,
		logPath: logPath,
		history: make([]LogEntry, 0, maxHist),
		maxHist: maxHist,
	}
	// Every line, including those from Component and Zerolog loggers, is
	// also kept in history.
	writers = append(writers, historyWriter{logger})

	logger.zlog = zerolog.New(io.MultiWriter(writers...)).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("app", "faceable").
		Logger()

	logger.Debug("logging", "Logger initialized", map[string]interface{}{
		"logFile": logPath,
		"level":   string(cfg.Level),
	})

	return logger, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{
		zlog:    zerolog.Nop(),
		maxHist: 1,
	}
}

func (l *Logger) addToHistory(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, entry)
	if len(l.history) > l.maxHist {
		l.history = l.history[len(l.history)-l.maxHist:]
	}
}

// GetHistory returns up to limit of the most recent entries; limit <= 0 means all
func (l *Logger) GetHistory(limit int) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.history) {
		limit = len(l.history)
	}

	result := make([]LogEntry, limit)
	copy(result, l.history[len(l.history)-limit:])
	return result
}

// GetLogPath returns the current log file path, empty without file output
func (l *Logger) GetLogPath() string {
	return l.logPath
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// formatData renders data as sorted key=value pairs for the history
func formatData(data map[string]interface{}) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, ", ")
}

func (l *Logger) log(event *zerolog.Event, component, msg string, err error, data map[string]interface{}) {
	if event == nil {
		return
	}
	event = event.Str("component", component)
	if err != nil {
		event = event.Err(err)
	}
	for k, v := range data {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// historyWriter turns each JSON log line into a LogEntry.
type historyWriter struct {
	l *Logger
}

func (w historyWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(p, &fields); err != nil {
		// History is best effort; the line already reached the other writers.
		return len(p), nil
	}

	entry := LogEntry{Timestamp: time.Now().Format("15:04:05.000")}
	entry.Level, _ = fields[zerolog.LevelFieldName].(string)
	entry.Message, _ = fields[zerolog.MessageFieldName].(string)
	entry.Component, _ = fields["component"].(string)
	for _, k := range []string{zerolog.LevelFieldName, zerolog.MessageFieldName, zerolog.TimestampFieldName, "component", "app"} {
		delete(fields, k)
	}
	entry.Data = formatData(fields)

	w.l.addToHistory(entry)
	return len(p), nil
}

// Debug logs a debug message
func (l *Logger) Debug(component, msg string, data map[string]interface{}) {
	l.log(l.zlog.Debug(), component, msg, nil, data)
}

// Info logs an info message
func (l *Logger) Info(component, msg string, data map[string]interface{}) {
	l.log(l.zlog.Info(), component, msg, nil, data)
}

// Warn logs a warning message
func (l *Logger) Warn(component, msg string, data map[string]interface{}) {
	l.log(l.zlog.Warn(), component, msg, nil, data)
}

// Error logs an error message
func (l *Logger) Error(component, msg string, err error, data map[string]interface{}) {
	l.log(l.zlog.Error(), component, msg, err, data)
}

// Component returns a zerolog.Logger with the component field set
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

// Zerolog returns the underlying zerolog.Logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}
