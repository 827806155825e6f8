// Package logsink is the ordered, append-only consumer of console lines.
//
// A Sink keeps every line it is given, in arrival order, and fans each one
// out to the attached views. It never drops, reorders or deduplicates.
package logsink

import (
	"sync"
	"time"

	"github.com/vburojevic/rcw/internal/domain"
)

// View renders lines appended to a Sink. Views are called with the sink
// locked, in append order, and must not call back into the sink.
type View interface {
	Render(line domain.LogLine)
	ScrollToBottom()
}

// Clearer is implemented by views that discard their history on Clear
type Clearer interface {
	Cleared()
}

// Sink is safe for concurrent use
type Sink struct {
	mu         sync.Mutex
	lines      []domain.LogLine
	autoScroll bool
	views      []View
}

// New creates a sink with the given auto-scroll setting
func New(autoScroll bool) *Sink {
	return &Sink{autoScroll: autoScroll}
}

// Attach adds a view. Lines already in the sink are not replayed.
func (s *Sink) Attach(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, v)
}

// Append records a line and renders it on every view
func (s *Sink) Append(line domain.LogLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
	for _, v := range s.views {
		v.Render(line)
		if s.autoScroll {
			v.ScrollToBottom()
		}
	}
}

// Lines returns a copy of the buffered lines
func (s *Sink) Lines() []domain.LogLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LogLine(nil), s.lines...)
}

// Len returns the number of buffered lines
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// AutoScroll reports whether appends follow the newest line
func (s *Sink) AutoScroll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoScroll
}

// SetAutoScroll changes the setting. Turning it on jumps to the newest line.
func (s *Sink) SetAutoScroll(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAutoScrollLocked(on)
}

// ToggleAutoScroll flips the setting and returns the new value
func (s *Sink) ToggleAutoScroll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setAutoScrollLocked(!s.autoScroll)
	return s.autoScroll
}

func (s *Sink) setAutoScrollLocked(on bool) {
	s.autoScroll = on
	if !on {
		return
	}
	for _, v := range s.views {
		v.ScrollToBottom()
	}
}

// Clear discards the buffered history. Connection state is untouched.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	for _, v := range s.views {
		if c, ok := v.(Clearer); ok {
			c.Cleared()
		}
	}
}

// Export renders the buffer as text with the export header
func (s *Sink) Export(target string, at time.Time) []byte {
	b, _ := Encode(FormatText, target, at, s.Lines())
	return b
}

// ExportAs renders the buffer in the given format
func (s *Sink) ExportAs(format Format, target string, at time.Time) ([]byte, error) {
	return Encode(format, target, at, s.Lines())
}
