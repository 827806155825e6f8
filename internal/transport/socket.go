// Package transport owns physical console connections.
//
// A Socket is one full-duplex connection attempt. It is opened
// asynchronously, reports its lifecycle through a Handler, and is never
// reused once closed.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// Close codes used by the console protocol (RFC 6455 section 7.4.1)
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
	CloseNoStatus  = 1005
	CloseAbnormal  = 1006
)

// ErrNotOpen is returned by Send when the socket is not in the open state
var ErrNotOpen = errors.New("socket is not open")

// EventKind identifies a socket lifecycle event
type EventKind int

const (
	EventOpened EventKind = iota
	EventMessage
	EventError
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is delivered to a Handler. Data is set for messages, Err for
// errors, Code and Reason for the terminal close.
type Event struct {
	Kind   EventKind
	Data   string
	Err    error
	Code   int
	Reason string
}

// Handler receives socket events. Every socket emits exactly one
// EventClosed and it is always the last event; an EventError never
// replaces it. Handlers must not block.
type Handler func(Event)

// Socket is an owned handle on one connection attempt
type Socket interface {
	// Send writes one text frame, or fails with ErrNotOpen.
	Send(text string) error
	// Close starts the closing handshake and returns once the terminal
	// EventClosed has been emitted. Closing twice is a no-op.
	Close(code int, reason string) error
}

// Opener creates sockets. Open returns immediately; the outcome of the
// dial is reported through the handler.
type Opener interface {
	Open(ctx context.Context, url string, handler Handler) Socket
}
