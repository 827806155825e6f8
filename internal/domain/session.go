package domain

import "time"

// SessionStart is emitted when a console session reaches the open state
type SessionStart struct {
	Type          string `json:"type"`               // "session_start"
	SchemaVersion int    `json:"schemaVersion"`      // 1
	Alert         string `json:"alert,omitempty"`    // "RECONNECTED" when the session recovered from a drop
	Session       int    `json:"session"`            // Session number (1, 2, 3...)
	SessionID     string `json:"session_id"`         // Manager session id
	Target        string `json:"target"`             // Remote process name
	Attempts      int    `json:"attempts,omitempty"` // Reconnect attempts it took to open
	Timestamp     string `json:"timestamp"`          // ISO8601 timestamp
}

// SessionEnd is emitted when an open console session closes
type SessionEnd struct {
	Type          string         `json:"type"`          // "session_end"
	SchemaVersion int            `json:"schemaVersion"` // 1
	Session       int            `json:"session"`       // Session number that ended
	Target        string         `json:"target"`
	Reason        string         `json:"reason"` // manual, dropped, exhausted, credential
	Summary       SessionSummary `json:"summary"`
}

// SessionSummary contains statistics about a completed session
type SessionSummary struct {
	TotalLines      int `json:"total_lines"`
	Commands        int `json:"commands"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	DurationSeconds int `json:"duration_seconds"`
}

// NewSessionStart creates a new SessionStart event
func NewSessionStart(session int, sessionID, target string, attempts int, at time.Time) *SessionStart {
	s := &SessionStart{
		Type:          "session_start",
		SchemaVersion: 1,
		Session:       session,
		SessionID:     sessionID,
		Target:        target,
		Attempts:      attempts,
		Timestamp:     at.UTC().Format(time.RFC3339),
	}
	if session > 1 {
		s.Alert = "RECONNECTED"
	}
	return s
}

// NewSessionEnd creates a new SessionEnd event
func NewSessionEnd(session int, target, reason string, summary SessionSummary) *SessionEnd {
	return &SessionEnd{
		Type:          "session_end",
		SchemaVersion: 1,
		Session:       session,
		Target:        target,
		Reason:        reason,
		Summary:       summary,
	}
}
