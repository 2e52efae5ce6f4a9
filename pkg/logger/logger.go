package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Category represents a log category
type Category string

const (
	CategoryRecord    Category = "record"
	CategorySearch    Category = "search"
	CategoryFace      Category = "face"
	CategoryAPI       Category = "api"
	CategoryDB        Category = "db"
	CategoryWebSocket Category = "websocket"
	CategoryWorker    Category = "worker"
	CategoryScheduler Category = "scheduler"
	CategoryStartup   Category = "startup"
)

var allCategories = []Category{
	CategoryRecord, CategorySearch, CategoryFace, CategoryAPI, CategoryDB,
	CategoryWebSocket, CategoryWorker, CategoryScheduler, CategoryStartup,
}

// Level represents log level
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	Category  Category               `json:"category"`
	Action    string                 `json:"action"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Duration  string                 `json:"duration,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Logger writes one JSON file per category per day
type Logger struct {
	mu      sync.Mutex
	logDir  string
	writers map[Category]*os.File
	console bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the default logger
func Init(logDir string, console bool) error {
	var err error
	once.Do(func() {
		defaultLogger, err = NewLogger(logDir, console)
	})
	return err
}

// NewLogger creates a new logger
func NewLogger(logDir string, console bool) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &Logger{
		logDir:  logDir,
		writers: make(map[Category]*os.File),
		console: console,
	}, nil
}

// getWriter returns or creates today's file writer for the category
func (l *Logger) getWriter(category Category) (io.Writer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	filename := fmt.Sprintf("%s_%s.log", category, time.Now().Format("2006-01-02"))

	if writer, exists := l.writers[category]; exists {
		if info, err := writer.Stat(); err == nil && info.Name() == filename {
			return writer, nil
		}
		writer.Close()
	}

	file, err := os.OpenFile(filepath.Join(l.logDir, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l.writers[category] = file
	return file, nil
}

// Log writes a log entry
func (l *Logger) Log(entry LogEntry) {
	entry.Timestamp = time.Now()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Printf("Error marshaling log entry: %v\n", err)
		return
	}

	writer, err := l.getWriter(entry.Category)
	if err != nil {
		fmt.Printf("Error getting log writer: %v\n", err)
	} else {
		fmt.Fprintln(writer, string(jsonData))
	}

	if l.console {
		l.printToConsole(entry)
	}
}

// printToConsole prints formatted log to console
func (l *Logger) printToConsole(entry LogEntry) {
	levelColors := map[Level]string{
		LevelDebug: "\033[36m",
		LevelInfo:  "\033[32m",
		LevelWarn:  "\033[33m",
		LevelError: "\033[31m",
	}
	reset := "\033[0m"

	fmt.Printf("%s[%s]%s [%s] [%s] %s: %s",
		levelColors[entry.Level],
		entry.Level,
		reset,
		entry.Timestamp.Format("15:04:05.000"),
		entry.Category,
		entry.Action,
		entry.Message,
	)

	if entry.Duration != "" {
		fmt.Printf(" (duration: %s)", entry.Duration)
	}
	if entry.Error != "" {
		fmt.Printf(" ERROR: %s", entry.Error)
	}
	fmt.Println()

	if len(entry.Data) > 0 {
		dataJSON, _ := json.MarshalIndent(entry.Data, "    ", "  ")
		fmt.Printf("    Data: %s\n", string(dataJSON))
	}
}

// Close closes all file writers
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, writer := range l.writers {
		writer.Close()
	}
	l.writers = make(map[Category]*os.File)
}

// Default returns the default logger
func Default() *Logger {
	if defaultLogger == nil {
		Init("logs", true)
	}
	return defaultLogger
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Record logs record lifecycle events
func Record(action, message string, data map[string]interface{}) {
	Info(CategoryRecord, action, message, data)
}

// RecordError logs record lifecycle errors
func RecordError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryRecord, action, message, err, data)
}

// Search logs search events
func Search(action, message string, data map[string]interface{}) {
	Info(CategorySearch, action, message, data)
}

// SearchError logs search errors
func SearchError(action, message string, err error, data map[string]interface{}) {
	Error(CategorySearch, action, message, err, data)
}

// Face logs face analysis operations
func Face(action, message string, data map[string]interface{}) {
	Info(CategoryFace, action, message, data)
}

// FaceError logs face analysis errors
func FaceError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryFace, action, message, err, data)
}

// DB logs database operations
func DB(action, message string, data map[string]interface{}) {
	Debug(CategoryDB, action, message, data)
}

// API logs API request/response events
func API(action, message string, data map[string]interface{}) {
	Info(CategoryAPI, action, message, data)
}

// WebSocket logs WebSocket related events
func WebSocket(action, message string, data map[string]interface{}) {
	Info(CategoryWebSocket, action, message, data)
}

// WebSocketError logs WebSocket errors
func WebSocketError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryWebSocket, action, message, err, data)
}

// Worker logs background worker events
func Worker(action, message string, data map[string]interface{}) {
	Info(CategoryWorker, action, message, data)
}

// WorkerError logs background worker errors
func WorkerError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryWorker, action, message, err, data)
}

// Scheduler logs scheduler events
func Scheduler(action, message string, data map[string]interface{}) {
	Info(CategoryScheduler, action, message, data)
}

// SchedulerWarn logs scheduler warnings
func SchedulerWarn(action, message string, data map[string]interface{}) {
	Warn(CategoryScheduler, action, message, data)
}

// SchedulerError logs scheduler errors
func SchedulerError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryScheduler, action, message, err, data)
}

// Startup logs startup/initialization events
func Startup(action, message string, data map[string]interface{}) {
	Info(CategoryStartup, action, message, data)
}

// StartupError logs startup errors
func StartupError(action, message string, err error, data map[string]interface{}) {
	Error(CategoryStartup, action, message, err, data)
}

// StartupWarn logs startup warnings
func StartupWarn(action, message string, data map[string]interface{}) {
	Warn(CategoryStartup, action, message, data)
}

// Info logs info level message
func Info(category Category, action, message string, data map[string]interface{}) {
	Default().Log(LogEntry{
		Level:    LevelInfo,
		Category: category,
		Action:   action,
		Message:  message,
		Data:     data,
	})
}

// Error logs error level message
func Error(category Category, action, message string, err error, data map[string]interface{}) {
	Default().Log(LogEntry{
		Level:    LevelError,
		Category: category,
		Action:   action,
		Message:  message,
		Error:    errString(err),
		Data:     data,
	})
}

// Debug logs debug level message
func Debug(category Category, action, message string, data map[string]interface{}) {
	Default().Log(LogEntry{
		Level:    LevelDebug,
		Category: category,
		Action:   action,
		Message:  message,
		Data:     data,
	})
}

// Warn logs warning level message
func Warn(category Category, action, message string, data map[string]interface{}) {
	Default().Log(LogEntry{
		Level:    LevelWarn,
		Category: category,
		Action:   action,
		Message:  message,
		Data:     data,
	})
}

// ReadLogsOptions options for reading logs
type ReadLogsOptions struct {
	Category Category // Filter by category (empty = all)
	Level    Level    // Filter by level (empty = all)
	Lines    int      // Number of lines to return (default 100)
	Search   string   // Search in message/action/error
}

// ReadLogs reads today's log entries from the default logger
func ReadLogs(opts ReadLogsOptions) ([]LogEntry, error) {
	return Default().ReadLogs(opts)
}

// ReadLogs reads today's log entries, newest first
func (l *Logger) ReadLogs(opts ReadLogsOptions) ([]LogEntry, error) {
	if opts.Lines <= 0 {
		opts.Lines = 100
	}
	if opts.Lines > 1000 {
		opts.Lines = 1000
	}

	today := time.Now().Format("2006-01-02")

	categories := allCategories
	if opts.Category != "" {
		categories = []Category{opts.Category}
	}

	search := strings.ToLower(opts.Search)
	var entries []LogEntry

	for _, cat := range categories {
		data, err := os.ReadFile(filepath.Join(l.logDir, fmt.Sprintf("%s_%s.log", cat, today)))
		if err != nil {
			continue
		}

		for _, line := range strings.Split(string(data), "\n") {
			if line == "" {
				continue
			}

			var entry LogEntry
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				continue
			}

			if opts.Level != "" && entry.Level != opts.Level {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(entry.Message), search) &&
				!strings.Contains(strings.ToLower(entry.Action), search) &&
				!strings.Contains(strings.ToLower(entry.Error), search) {
				continue
			}

			entries = append(entries, entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if len(entries) > opts.Lines {
		entries = entries[:opts.Lines]
	}

	return entries, nil
}

// ListLogFiles returns the .log files in the default logger's directory
func ListLogFiles() ([]string, error) {
	return Default().ListLogFiles()
}

// ListLogFiles returns list of log files in the log directory
func (l *Logger) ListLogFiles() ([]string, error) {
	var files []string

	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".log" {
			files = append(files, entry.Name())
		}
	}

	return files, nil
}
