package session

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/rcw/internal/console"
	"github.com/vburojevic/rcw/internal/domain"
)

// Tracker numbers each period a console stays open and counts its lines
type Tracker struct {
	mu             sync.Mutex
	clock          clock.Clock
	currentSession int
	sessionID      string
	target         string
	sessionStart   time.Time
	lineCount      int
	commandCount   int
	errorCount     int
	warnCount      int
	open           bool
}

// SessionChange contains events emitted when a session opens or ends
type SessionChange struct {
	EndSession   *domain.SessionEnd
	StartSession *domain.SessionStart
}

// NewTracker creates a new session tracker
func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{clock: clk}
}

// Observe processes a manager transition and returns a SessionChange when a
// session opened or ended
func (t *Tracker) Observe(tr console.Transition) *SessionChange {
	t.mu.Lock()
	defer t.mu.Unlock()

	var change SessionChange
	if t.open && (tr.To.Phase != console.PhaseOpen || tr.To.SessionID != t.sessionID) {
		change.EndSession = t.endLocked(endReason(tr.To))
	}

	if tr.To.Phase == console.PhaseOpen && !t.open {
		t.currentSession++
		t.open = true
		t.sessionID = tr.To.SessionID
		t.target = tr.To.Target
		t.sessionStart = t.clock.Now()
		t.lineCount = 0
		t.commandCount = 0
		t.errorCount = 0
		t.warnCount = 0
		// the Connecting state before Open carries the failed attempts
		change.StartSession = domain.NewSessionStart(t.currentSession, t.sessionID, t.target, tr.From.Attempt, t.sessionStart)
	}

	if change.EndSession == nil && change.StartSession == nil {
		return nil
	}
	return &change
}

func endReason(s console.State) string {
	switch s.Phase {
	case console.PhaseClosed:
		return s.Reason.String()
	case console.PhaseReconnecting:
		return "dropped"
	case console.PhaseConnecting:
		return "reconnect"
	default:
		return "switched"
	}
}

func (t *Tracker) endLocked(reason string) *domain.SessionEnd {
	t.open = false
	return domain.NewSessionEnd(t.currentSession, t.target, reason, t.summaryLocked())
}

func (t *Tracker) summaryLocked() domain.SessionSummary {
	return domain.SessionSummary{
		TotalLines:      t.lineCount,
		Commands:        t.commandCount,
		Errors:          t.errorCount,
		Warnings:        t.warnCount,
		DurationSeconds: int(t.clock.Since(t.sessionStart).Seconds()),
	}
}

// CheckLine counts a line against the open session
func (t *Tracker) CheckLine(line domain.LogLine) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return
	}
	t.lineCount++
	switch line.Level {
	case domain.LogLevelCommand:
		t.commandCount++
	case domain.LogLevelError:
		t.errorCount++
	case domain.LogLevelWarn:
		t.warnCount++
	}
}

// Render lets the tracker be attached to a logsink.Sink
func (t *Tracker) Render(line domain.LogLine) { t.CheckLine(line) }

// ScrollToBottom is a no-op
func (t *Tracker) ScrollToBottom() {}

// CurrentSession returns the current session number
func (t *Tracker) CurrentSession() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentSession
}

// FinalSummary returns the end event for a session still open when the
// stream stops, or nil
func (t *Tracker) FinalSummary(reason string) *domain.SessionEnd {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return nil
	}
	return t.endLocked(reason)
}

// Stats returns current session statistics
func (t *Tracker) Stats() (session, lines, commands, errors, warnings int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentSession, t.lineCount, t.commandCount, t.errorCount, t.warnCount
}
