// Package status projects the console state into what the operator sees.
package status

import (
	"fmt"

	"github.com/vburojevic/rcw/internal/console"
)

// Kind is the three-way indicator shown in the status bar
type Kind int

const (
	Disconnected Kind = iota
	Connecting
	Connected
)

func (k Kind) String() string {
	switch k {
	case Connected:
		return "connected"
	case Connecting:
		return "connecting"
	default:
		return "disconnected"
	}
}

// Status is a pure function of console.State
type Status struct {
	Kind  Kind
	Label string
}

// Project maps a state to its indicator and label
func Project(s console.State) Status {
	switch s.Phase {
	case console.PhaseOpen:
		return Status{Connected, fmt.Sprintf("Connected to %s", s.Target)}
	case console.PhaseConnecting:
		if s.Attempt > 0 {
			return Status{Connecting, fmt.Sprintf("Connecting to %s (attempt %d/%d)", s.Target, s.Attempt, s.MaxAttempts)}
		}
		return Status{Connecting, fmt.Sprintf("Connecting to %s", s.Target)}
	case console.PhaseReconnecting:
		return Status{Connecting, fmt.Sprintf("Connection to %s lost, reconnecting (attempt %d/%d)", s.Target, s.Attempt, s.MaxAttempts)}
	case console.PhaseClosed:
		switch s.Reason {
		case console.ReasonExhausted:
			return Status{Disconnected, fmt.Sprintf("Gave up on %s after %d attempts", s.Target, s.Attempt)}
		case console.ReasonCredential:
			return Status{Disconnected, fmt.Sprintf("Disconnected from %s: credential rejected", s.Target)}
		default:
			return Status{Disconnected, fmt.Sprintf("Disconnected from %s by user", s.Target)}
		}
	default:
		return Status{Disconnected, "No target selected"}
	}
}
