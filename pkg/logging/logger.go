package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Category represents the subsystem generating the log
type Category string

const (
	CategorySession   Category = "session"
	CategoryTransport Category = "transport"
	CategoryAgent     Category = "agent"
	CategoryIngest    Category = "ingest"
	CategoryCodegen   Category = "codegen"
	CategoryStorage   Category = "storage"
	CategoryServer    Category = "server"
)

// Entry represents a structured log entry
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  Category       `json:"category"`
	EventType string         `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// Logger writes structured entries to per-recording and error logs
type Logger struct {
	baseDir     string
	recordFiles map[string]*os.File
	errorFile   *os.File
	mu          sync.Mutex
	minLevel    Level
}

// NewLogger creates a new structured logger rooted at baseDir
func NewLogger(baseDir string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "recordings"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	errorFile, err := os.OpenFile(
		filepath.Join(baseDir, "errors.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0644,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open error log: %w", err)
	}

	return &Logger{
		baseDir:     baseDir,
		recordFiles: make(map[string]*os.File),
		errorFile:   errorFile,
		minLevel:    LevelInfo,
	}, nil
}

// SetMinLevel sets the minimum log level
func (l *Logger) SetMinLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// Log writes an entry to the appropriate destinations
func (l *Logger) Log(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if !l.shouldLog(entry.Level) {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	data = append(data, '\n')

	// Entries carrying a session ID land in that recording's log
	if entry.SessionID != "" {
		file, err := l.recordingFile(entry.SessionID)
		if err != nil {
			return err
		}
		if _, err := file.Write(data); err != nil {
			return fmt.Errorf("failed to write recording log: %w", err)
		}
	}

	if entry.Level == LevelError && l.errorFile != nil {
		if _, err := l.errorFile.Write(data); err != nil {
			return fmt.Errorf("failed to write error log: %w", err)
		}
	}

	return nil
}

// recordingFile opens (or reuses) the per-recording log file. Caller holds mu.
func (l *Logger) recordingFile(sessionID string) (*os.File, error) {
	if f, ok := l.recordFiles[sessionID]; ok {
		return f, nil
	}
	f, err := os.OpenFile(
		filepath.Join(l.baseDir, "recordings", sessionID+".jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0644,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording log: %w", err)
	}
	l.recordFiles[sessionID] = f
	return f, nil
}

// shouldLog checks if the entry should be logged based on level
func (l *Logger) shouldLog(level Level) bool {
	levels := map[Level]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
	}
	return levels[level] >= levels[l.minLevel]
}

// Debug logs a debug entry
func (l *Logger) Debug(category Category, eventType, sessionID, message string, details map[string]any) error {
	return l.Log(Entry{Level: LevelDebug, Category: category, EventType: eventType, SessionID: sessionID, Message: message, Details: details})
}

// Info logs an info entry
func (l *Logger) Info(category Category, eventType, sessionID, message string, details map[string]any) error {
	return l.Log(Entry{Level: LevelInfo, Category: category, EventType: eventType, SessionID: sessionID, Message: message, Details: details})
}

// Warn logs a warning entry
func (l *Logger) Warn(category Category, eventType, sessionID, message string, details map[string]any) error {
	return l.Log(Entry{Level: LevelWarn, Category: category, EventType: eventType, SessionID: sessionID, Message: message, Details: details})
}

// Error logs an error entry
func (l *Logger) Error(category Category, eventType, sessionID, message string, details map[string]any) error {
	return l.Log(Entry{Level: LevelError, Category: category, EventType: eventType, SessionID: sessionID, Message: message, Details: details})
}

// Close closes all log files
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, f := range l.recordFiles {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	l.recordFiles = make(map[string]*os.File)
	if l.errorFile != nil {
		if err := l.errorFile.Close(); err != nil {
			errs = append(errs, err)
		}
		l.errorFile = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing log files: %v", errs)
	}
	return nil
}
