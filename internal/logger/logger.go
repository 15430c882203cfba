package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel constants
const (
	LogLevelError = "error"
	LogLevelWarn  = "warn"
	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
	LogLevelTrace = "trace"
)

var levelOrder = []string{LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug, LogLevelTrace}

// LoggingConfig represents the logging section of the bridge configuration
type LoggingConfig struct {
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	MaxSize int    `yaml:"max_size"`
	MaxAge  int    `yaml:"max_age"`
}

// GlobalLogging is consulted by the package-level helpers
var GlobalLogging *LoggingConfig

var outputMu sync.Mutex

// Logger wraps the standard logger with a verbosity level
type Logger struct {
	*log.Logger
	level  string
	closer io.Closer
}

// NewLogger creates a logger for the given configuration and makes it the global one.
// The standard logger output is redirected to the configured file so the
// package-level helpers follow it too.
func NewLogger(config *LoggingConfig) *Logger {
	level := normalizeLevel(config.Level)
	config.Level = level

	var output io.Writer = os.Stdout
	var closer io.Closer
	if config.File != "" {
		// #nosec G304 - path comes from the operator's configuration file
		file, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			log.Printf("Failed to open log file %s: %v", config.File, err)
		} else {
			output = file
			closer = file
		}
	}

	outputMu.Lock()
	log.SetOutput(output)
	GlobalLogging = config
	outputMu.Unlock()

	return &Logger{
		Logger: log.New(output, "", log.LstdFlags|log.Lshortfile),
		level:  level,
		closer: closer,
	}
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Level returns the active level
func (l *Logger) Level() string {
	return l.level
}

func normalizeLevel(level string) string {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "":
		return LogLevelInfo
	case "warning":
		return LogLevelWarn
	}
	return level
}

// IsValidLevel reports whether level is one of the known levels
func IsValidLevel(level string) bool {
	level = normalizeLevel(level)
	for _, l := range levelOrder {
		if l == level {
			return true
		}
	}
	return false
}

// shouldLog checks if a message should be logged based on current level
func shouldLog(currentLevel, messageLevel string) bool {
	currentIndex, messageIndex := -1, -1
	for i, level := range levelOrder {
		if level == currentLevel {
			currentIndex = i
		}
		if level == messageLevel {
			messageIndex = i
		}
	}

	// Unknown levels let everything through
	if currentIndex == -1 || messageIndex == -1 {
		return true
	}
	return messageIndex <= currentIndex
}

func globalAllows(messageLevel string) bool {
	return GlobalLogging != nil && shouldLog(normalizeLevel(GlobalLogging.Level), messageLevel)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	if shouldLog(l.level, LogLevelError) {
		l.Printf("❌ "+format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	if shouldLog(l.level, LogLevelWarn) {
		l.Printf("⚠️ "+format, args...)
	}
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	if shouldLog(l.level, LogLevelInfo) {
		l.Printf("ℹ️ "+format, args...)
	}
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	if shouldLog(l.level, LogLevelDebug) {
		l.Printf("🔧 "+format, args...)
	}
}

// LogStartup logs messages that are visible regardless of the level
func LogStartup(format string, args ...interface{}) {
	log.Printf("🔧 "+format, args...)
}

func LogError(format string, args ...interface{}) {
	if globalAllows(LogLevelError) {
		log.Printf("❌ "+format, args...)
	}
}

func LogWarn(format string, args ...interface{}) {
	if globalAllows(LogLevelWarn) {
		log.Printf("⚠️ "+format, args...)
	}
}

func LogInfo(format string, args ...interface{}) {
	if globalAllows(LogLevelInfo) {
		log.Printf("ℹ️ "+format, args...)
	}
}

func LogDebug(format string, args ...interface{}) {
	if globalAllows(LogLevelDebug) {
		log.Printf("🔧 "+format, args...)
	}
}

func LogTrace(format string, args ...interface{}) {
	if globalAllows(LogLevelTrace) {
		log.Printf("🔍 "+format, args...)
	}
}

// IsDebugEnabled checks if debug logging is enabled
func IsDebugEnabled() bool {
	return globalAllows(LogLevelDebug)
}

// IsTraceEnabled checks if trace logging is enabled
func IsTraceEnabled() bool {
	return globalAllows(LogLevelTrace)
}
