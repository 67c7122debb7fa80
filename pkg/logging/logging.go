// pkg/logging/logging.go - timestamped structured logging for wpkg/core.
//
// The manifest parser, source registry, resolver, and ARP correlation engine
// all call the package-level facade (Debug/Info/Warn/Error) instead of
// threading a logger through every function signature. Output goes to a
// timestamped directory so a session's events.jsonl and core.log can be
// shipped to external monitoring tooling without additional parsing.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/wpkg/core/pkg/config"
)

// LogLevel represents the severity of the log message.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (ll LogLevel) String() string {
	switch ll {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// LogEntry is a single structured log record, written as one JSON line.
type LogEntry struct {
	Time       int64                  `json:"time"`
	Timestamp  string                 `json:"timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component"`
	PID        int64                  `json:"pid"`
	Hostname   string                 `json:"hostname"`
	SessionID  string                 `json:"session_id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Logger is the singleton logging sink. Use the package-level functions
// (Debug, Info, Warn, Error) in normal call sites.
type Logger struct {
	mu        sync.Mutex
	logger    *log.Logger
	logLevel  LogLevel
	logFile   *os.File
	jsonFile  *os.File
	logDir    string
	hostname  string
	sessionID string
	component string
	console   bool
}

var (
	instance *Logger
	once     sync.Once
)

// Init initializes the singleton Logger from a Configuration. Safe to call
// more than once; only the first call takes effect.
func Init(cfg *config.Configuration) error {
	var initErr error
	once.Do(func() {
		instance, initErr = newLogger(cfg)
	})
	return initErr
}

func generateSessionID() string {
	return fmt.Sprintf("wpkg-%d", time.Now().Unix())
}

func newLogger(cfg *config.Configuration) (*Logger, error) {
	baseDir := filepath.Join(`C:\ProgramData\wpkg`, "logs")
	if cfg != nil && cfg.LogPath != "" {
		baseDir = cfg.LogPath
	}

	sessionStart := time.Now()
	logDir := filepath.Join(baseDir, sessionStart.Format("2006-01-02-150405"))
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", logDir, err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	level := LevelInfo
	if cfg != nil {
		switch cfg.LogLevel {
		case "DEBUG":
			level = LevelDebug
		case "WARN":
			level = LevelWarn
		case "ERROR":
			level = LevelError
		}
	}

	l := &Logger{
		logLevel:  level,
		logDir:    logDir,
		hostname:  hostname,
		sessionID: generateSessionID(),
		component: "wpkg-core",
		console:   true,
	}

	var err error
	l.logFile, err = os.OpenFile(filepath.Join(logDir, "core.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening main log file: %w", err)
	}
	l.jsonFile, err = os.OpenFile(filepath.Join(logDir, "events.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening json log file: %w", err)
	}

	if l.console {
		l.logger = log.New(io.MultiWriter(os.Stdout, l.logFile), "", 0)
	} else {
		l.logger = log.New(l.logFile, "", 0)
	}

	return l, nil
}

// CloseLogger flushes and closes the underlying log files.
func CloseLogger() {
	if instance == nil {
		return
	}
	instance.mu.Lock()
	defer instance.mu.Unlock()
	if instance.logFile != nil {
		instance.logFile.Close()
		instance.logFile = nil
	}
	if instance.jsonFile != nil {
		instance.jsonFile.Close()
		instance.jsonFile = nil
	}
}

func (l *Logger) logMessage(level LogLevel, message string, keyValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level > l.logLevel {
		return
	}

	properties := make(map[string]interface{}, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		properties[fmt.Sprintf("%v", keyValues[i])] = keyValues[i+1]
	}

	now := time.Now()
	entry := LogEntry{
		Time:       now.Unix(),
		Timestamp:  now.Format(time.RFC3339),
		Level:      level.String(),
		Message:    message,
		Component:  l.component,
		PID:        int64(os.Getpid()),
		Hostname:   l.hostname,
		SessionID:  l.sessionID,
		Properties: properties,
	}

	line := fmt.Sprintf("[%s] %-5s %s", entry.Timestamp, entry.Level, entry.Message)
	for k, v := range properties {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	if l.logger != nil {
		l.logger.Println(line)
	} else {
		fmt.Println(line)
	}

	if l.jsonFile != nil {
		if data, err := json.Marshal(entry); err == nil {
			l.jsonFile.Write(append(data, '\n'))
		}
	}
}

func ensureInstance() {
	if instance == nil {
		instance, _ = newLogger(nil)
		if instance == nil {
			instance = &Logger{logLevel: LevelInfo, hostname: "unknown", sessionID: generateSessionID(), component: "wpkg-core"}
		}
	}
}

// Debug logs at LevelDebug with structured key/value pairs.
func Debug(message string, keyValues ...interface{}) {
	ensureInstance()
	instance.logMessage(LevelDebug, message, keyValues...)
}

// Info logs at LevelInfo with structured key/value pairs.
func Info(message string, keyValues ...interface{}) {
	ensureInstance()
	instance.logMessage(LevelInfo, message, keyValues...)
}

// Warn logs at LevelWarn with structured key/value pairs.
func Warn(message string, keyValues ...interface{}) {
	ensureInstance()
	instance.logMessage(LevelWarn, message, keyValues...)
}

// Error logs at LevelError with structured key/value pairs.
func Error(message string, keyValues ...interface{}) {
	ensureInstance()
	instance.logMessage(LevelError, message, keyValues...)
}

// GetSessionID returns the current logging session identifier.
func GetSessionID() string {
	ensureInstance()
	return instance.sessionID
}

// GoroutineCount is used by diagnostics to report current concurrency,
// mirroring the teacher's use of runtime stats in structured log entries.
func GoroutineCount() int {
	return runtime.NumGoroutine()
}
