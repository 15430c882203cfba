package logger

import (
	"fmt"
	"sync"
)

// ILogger is the logging dependency handed to components that are tested in isolation
type ILogger interface {
	LogInfo(format string, args ...interface{})
	LogWarn(format string, args ...interface{})
	LogError(format string, args ...interface{})
	LogDebug(format string, args ...interface{})
}

// StandardLogger forwards to the package-level helpers
type StandardLogger struct{}

// NewStandardLogger creates a logger that uses the global configuration
func NewStandardLogger() ILogger {
	return &StandardLogger{}
}

func (l *StandardLogger) LogInfo(format string, args ...interface{}) {
	LogInfo(format, args...)
}

func (l *StandardLogger) LogWarn(format string, args ...interface{}) {
	LogWarn(format, args...)
}

func (l *StandardLogger) LogError(format string, args ...interface{}) {
	LogError(format, args...)
}

func (l *StandardLogger) LogDebug(format string, args ...interface{}) {
	LogDebug(format, args...)
}

// MockLogger records formatted messages for assertions in tests
type MockLogger struct {
	mu            sync.Mutex
	InfoMessages  []string
	WarnMessages  []string
	ErrorMessages []string
	DebugMessages []string
}

// NewMockLogger creates an empty mock logger
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (l *MockLogger) LogInfo(format string, args ...interface{}) {
	l.record(&l.InfoMessages, format, args)
}

func (l *MockLogger) LogWarn(format string, args ...interface{}) {
	l.record(&l.WarnMessages, format, args)
}

func (l *MockLogger) LogError(format string, args ...interface{}) {
	l.record(&l.ErrorMessages, format, args)
}

func (l *MockLogger) LogDebug(format string, args ...interface{}) {
	l.record(&l.DebugMessages, format, args)
}

func (l *MockLogger) record(dst *[]string, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
}

// Reset clears all recorded messages
func (l *MockLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.InfoMessages = nil
	l.WarnMessages = nil
	l.ErrorMessages = nil
	l.DebugMessages = nil
}

// Count returns how many messages of each kind were recorded
func (l *MockLogger) Count() (info, warn, errs, debug int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.InfoMessages), len(l.WarnMessages), len(l.ErrorMessages), len(l.DebugMessages)
}

// HasErrorMessage checks if an error message was logged
func (l *MockLogger) HasErrorMessage() bool {
	_, _, errs, _ := l.Count()
	return errs > 0
}

// HasInfoMessage checks if an info message was logged
func (l *MockLogger) HasInfoMessage() bool {
	info, _, _, _ := l.Count()
	return info > 0
}
