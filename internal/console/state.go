package console

import (
	"fmt"
	"time"
)

// Phase is the coarse connection state of a session
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseOpen
	PhaseReconnecting
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseOpen:
		return "open"
	case PhaseReconnecting:
		return "reconnecting"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// CloseReason says why a session reached PhaseClosed
type CloseReason int

const (
	ReasonNone CloseReason = iota
	// ReasonManual: the operator disconnected
	ReasonManual
	// ReasonExhausted: the retry budget ran out
	ReasonExhausted
	// ReasonCredential: the credential disappeared or was revoked
	ReasonCredential
)

func (r CloseReason) String() string {
	switch r {
	case ReasonManual:
		return "manual"
	case ReasonExhausted:
		return "exhausted"
	case ReasonCredential:
		return "credential"
	default:
		return "none"
	}
}

// State is a snapshot of the manager's session. Attempt is the number of
// consecutive failed attempts; in PhaseReconnecting it is the attempt the
// pending retry will make.
type State struct {
	Phase       Phase
	Attempt     int
	MaxAttempts int
	Reason      CloseReason
	Target      string
	SessionID   string
}

func (s State) String() string {
	switch s.Phase {
	case PhaseReconnecting:
		return fmt.Sprintf("Reconnecting(%d)", s.Attempt)
	case PhaseClosed:
		return fmt.Sprintf("Closed(%s)", s.Reason)
	default:
		return s.Phase.String()
	}
}

// Transition is delivered to observers after every state change
type Transition struct {
	From State
	To   State
	At   time.Time
}

// transitions lists the legal phase changes
var transitions = map[Phase][]Phase{
	PhaseIdle:         {PhaseConnecting},
	PhaseConnecting:   {PhaseConnecting, PhaseOpen, PhaseReconnecting, PhaseClosed},
	PhaseOpen:         {PhaseConnecting, PhaseReconnecting, PhaseClosed},
	PhaseReconnecting: {PhaseConnecting, PhaseClosed},
	PhaseClosed:       {PhaseConnecting, PhaseClosed, PhaseIdle},
}

func canTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}
