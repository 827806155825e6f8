package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/vburojevic/rcw/internal/domain"
)

// SchemaVersion is bumped whenever an ndjson type changes incompatibly
const SchemaVersion = 1

// LineOutput is one console line in ndjson form
type LineOutput struct {
	Type          string          `json:"type"` // line
	SchemaVersion int             `json:"schemaVersion"`
	Target        string          `json:"target,omitempty"`
	Session       int             `json:"session,omitempty"`
	Timestamp     string          `json:"timestamp"`
	Level         domain.LogLevel `json:"level"`
	Text          string          `json:"text"`
}

// ReadyOutput is written once an attach has been set up
type ReadyOutput struct {
	Type          string `json:"type"` // ready
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	Server        string `json:"server"`
	Target        string `json:"target,omitempty"`
	AutoScroll    bool   `json:"auto_scroll"`
}

// ErrorOutput is a machine readable failure
type ErrorOutput struct {
	Type          string `json:"type"` // error
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// InfoOutput is a non-error notice, such as a completed export
type InfoOutput struct {
	Type          string `json:"type"` // info
	SchemaVersion int    `json:"schemaVersion"`
	Message       string `json:"message"`
	Path          string `json:"path,omitempty"`
}

// NDJSONWriter writes one JSON object per line. It is safe for concurrent use.
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNDJSONWriter creates a writer on w
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

// Write encodes any value as one line
func (w *NDJSONWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(v)
}

// WriteLine writes a console line
func (w *NDJSONWriter) WriteLine(target string, session int, line domain.LogLine) error {
	return w.Write(&LineOutput{
		Type:          "line",
		SchemaVersion: SchemaVersion,
		Target:        target,
		Session:       session,
		Timestamp:     line.Timestamp.UTC().Format(time.RFC3339Nano),
		Level:         line.Level,
		Text:          line.Text,
	})
}

// WriteReady announces that the attach loop is running
func (w *NDJSONWriter) WriteReady(timestamp, server, target string, autoScroll bool) error {
	return w.Write(&ReadyOutput{
		Type:          "ready",
		SchemaVersion: SchemaVersion,
		Timestamp:     timestamp,
		Server:        server,
		Target:        target,
		AutoScroll:    autoScroll,
	})
}

// WriteStatus writes a connection status change
func (w *NDJSONWriter) WriteStatus(ev *domain.StatusEvent) error {
	ev.Type = "status"
	ev.SchemaVersion = SchemaVersion
	return w.Write(ev)
}

// WriteSessionStart writes a session_start event
func (w *NDJSONWriter) WriteSessionStart(ev *domain.SessionStart) error {
	return w.Write(ev)
}

// WriteSessionEnd writes a session_end event
func (w *NDJSONWriter) WriteSessionEnd(ev *domain.SessionEnd) error {
	return w.Write(ev)
}

// WriteError writes an error with an optional hint
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	out := &ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		out.Hint = hint[0]
	}
	return w.Write(out)
}

// WriteInfo writes an informational notice
func (w *NDJSONWriter) WriteInfo(message, path string) error {
	return w.Write(&InfoOutput{Type: "info", SchemaVersion: SchemaVersion, Message: message, Path: path})
}
