package domain

import (
	"strings"
	"time"
)

// LogLevel classifies a console line
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarn    LogLevel = "warn"
	LogLevelError   LogLevel = "error"
	LogLevelCommand LogLevel = "command"
)

// ParseLogLevel converts a string to LogLevel, defaulting to info
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "command", "cmd":
		return LogLevelCommand
	default:
		return LogLevelInfo
	}
}

// Tag returns the bracketed prefix used when a line is rendered as text
func (l LogLevel) Tag() string {
	switch l {
	case LogLevelWarn:
		return "[WARN]"
	case LogLevelError:
		return "[ERROR]"
	case LogLevelCommand:
		return "[COMMAND] >"
	default:
		return "[INFO]"
	}
}

// LogLine is a single console line, either received from the remote process
// or echoed locally for an operator command
type LogLine struct {
	Timestamp time.Time `json:"timestamp" plist:"timestamp"`
	Level     LogLevel  `json:"level" plist:"level"`
	Text      string    `json:"text" plist:"text"`
}

// NewLogLine creates a line stamped with the given time
func NewLogLine(at time.Time, level LogLevel, text string) LogLine {
	return LogLine{Timestamp: at, Level: level, Text: text}
}

// String renders the line the way the console shows it
func (l LogLine) String() string {
	return "[" + l.Timestamp.Format("15:04:05") + "] " + l.Level.Tag() + " " + l.Text
}
