package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures log messages for assertions in tests.
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	zerolog  *zerolog.Logger
	fields   map[string]interface{}
}

// LogMessage is one captured log entry.
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates a logger that records messages in memory.
func NewTestLogger() *TestLogger {
	nop := zerolog.Nop()
	return &TestLogger{
		zerolog: &nop,
		fields:  make(map[string]interface{}),
	}
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.messages = append(l.messages, LogMessage{Level: level, Message: msg, Fields: merged})
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

// WithField returns a logger that records into the same capture buffer
// with the field bound.
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	cp := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		cp[k] = v
	}
	cp[key] = value
	return &boundTestLogger{parent: l, fields: cp}
}

// WithError attaches an error field.
func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// GetZerolog returns a no-op zerolog instance.
func (l *TestLogger) GetZerolog() *zerolog.Logger {
	return l.zerolog
}

// Messages returns a copy of the captured messages.
func (l *TestLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasMessage reports whether a message with the given level and text was
// captured.
func (l *TestLogger) HasMessage(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m.Level == level && m.Message == msg {
			return true
		}
	}
	return false
}

// boundTestLogger forwards to a parent TestLogger with extra fields bound.
type boundTestLogger struct {
	parent *TestLogger
	fields map[string]interface{}
}

func (b *boundTestLogger) merge(fields map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(b.fields)+len(fields))
	for k, v := range b.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func (b *boundTestLogger) Debug(msg string) { b.parent.log("DEBUG", msg, b.fields) }
func (b *boundTestLogger) Info(msg string)  { b.parent.log("INFO", msg, b.fields) }
func (b *boundTestLogger) Warn(msg string)  { b.parent.log("WARN", msg, b.fields) }
func (b *boundTestLogger) Error(msg string) { b.parent.log("ERROR", msg, b.fields) }

func (b *boundTestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	b.parent.log("DEBUG", msg, b.merge(fields))
}

func (b *boundTestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	b.parent.log("INFO", msg, b.merge(fields))
}

func (b *boundTestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	b.parent.log("WARN", msg, b.merge(fields))
}

func (b *boundTestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	b.parent.log("ERROR", msg, b.merge(fields))
}

func (b *boundTestLogger) WithField(key string, value interface{}) Logger {
	cp := make(map[string]interface{}, len(b.fields)+1)
	for k, v := range b.fields {
		cp[k] = v
	}
	cp[key] = value
	return &boundTestLogger{parent: b.parent, fields: cp}
}

func (b *boundTestLogger) WithError(err error) Logger {
	if err == nil {
		return b
	}
	return b.WithField("error", err.Error())
}

func (b *boundTestLogger) GetZerolog() *zerolog.Logger {
	return b.parent.zerolog
}
