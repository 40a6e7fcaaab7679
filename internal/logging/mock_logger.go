package logging

import (
	"fmt"
	"strings"
	"sync"
)

// MockLogger records messages for assertions in tests.
type MockLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
	level    LogLevel
}

// LogMessage is one recorded call.
type LogMessage struct {
	Level   LogLevel
	Message string
	Args    []any
}

// NewMockLogger records everything down to debug.
func NewMockLogger() *MockLogger {
	return &MockLogger{level: LogLevelDebug}
}

func (m *MockLogger) record(level LogLevel, msg string, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.level >= level {
		m.Messages = append(m.Messages, LogMessage{Level: level, Message: msg, Args: args})
	}
}

func (m *MockLogger) Debug(msg string, args ...any) { m.record(LogLevelDebug, msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.record(LogLevelInfo, msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.record(LogLevelWarn, msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.record(LogLevelError, msg, args) }

func (m *MockLogger) SetLevel(level LogLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
}

// GetMessages returns a copy of the recorded messages.
func (m *MockLogger) GetMessages() []LogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogMessage{}, m.Messages...)
}

// HasMessage reports whether msg was logged at level.
func (m *MockLogger) HasMessage(level LogLevel, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lm := range m.Messages {
		if lm.Level == level && lm.Message == msg {
			return true
		}
	}
	return false
}

func (m *MockLogger) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sb strings.Builder
	for _, lm := range m.Messages {
		fmt.Fprintf(&sb, "[%s] %s %v\n", lm.Level, lm.Message, lm.Args)
	}
	return sb.String()
}
