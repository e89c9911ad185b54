// Package testutil holds test doubles shared across packages.
package testutil

import (
	"sync"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
)

// LogMessage is one captured entry. Fields include those inherited through
// With.
type LogMessage struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the value logged under key.
func (lm LogMessage) Field(key string) (interface{}, bool) {
	for _, f := range lm.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

type journal struct {
	mu      sync.Mutex
	entries []LogMessage
}

func (j *journal) add(m LogMessage) {
	j.mu.Lock()
	j.entries = append(j.entries, m)
	j.mu.Unlock()
}

func (j *journal) count(match func(LogMessage) bool) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, m := range j.entries {
		if match(m) {
			n++
		}
	}
	return n
}

// MockLogger is a logging.Logger that records entries in memory. Loggers
// derived with With or Named write to the same record as their parent.
type MockLogger struct {
	j      *journal
	name   string
	fields []logging.Field
}

func NewMockLogger() *MockLogger {
	return &MockLogger{j: &journal{}}
}

func (m *MockLogger) record(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(m.fields)+len(fields))
	all = append(append(all, m.fields...), fields...)
	m.j.add(LogMessage{Level: level, Logger: m.name, Message: msg, Fields: all})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.record("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.record("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.record("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.record("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.record("fatal", msg, fields) }

func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	inherited := make([]logging.Field, 0, len(m.fields)+len(fields))
	inherited = append(append(inherited, m.fields...), fields...)
	return &MockLogger{j: m.j, name: m.name, fields: inherited}
}

func (m *MockLogger) Named(name string) logging.Logger {
	if m.name != "" {
		name = m.name + "." + name
	}
	return &MockLogger{j: m.j, name: name, fields: m.fields}
}

// GetMessages returns a snapshot of every entry so far.
func (m *MockLogger) GetMessages() []LogMessage {
	m.j.mu.Lock()
	defer m.j.mu.Unlock()
	return append([]LogMessage(nil), m.j.entries...)
}

func (m *MockLogger) Clear() {
	m.j.mu.Lock()
	m.j.entries = nil
	m.j.mu.Unlock()
}

// HasMessage reports whether msg was logged at level.
func (m *MockLogger) HasMessage(level, msg string) bool {
	return m.j.count(func(e LogMessage) bool { return e.Level == level && e.Message == msg }) > 0
}

func (m *MockLogger) CountLevel(level string) int {
	return m.j.count(func(e LogMessage) bool { return e.Level == level })
}

//Personal.AI order the ending
