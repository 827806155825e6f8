package console

import (
	"errors"

	"github.com/vburojevic/rcw/internal/transport"
)

var (
	// ErrNoTargetSelected means no session exists
	ErrNoTargetSelected = errors.New("no target selected")
	// ErrNotConnected means the session exists but is not open
	ErrNotConnected = errors.New("console is not connected")
	// ErrTransientSend means a send failed on an open session; a reconnect was started
	ErrTransientSend = errors.New("command could not be sent, reconnecting")
	// ErrRetriesExhausted means the session gave up reconnecting
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
	// ErrCredentialRevoked means the credential source invalidated the token
	ErrCredentialRevoked = errors.New("credential revoked")
	// ErrClosed means the manager has shut down
	ErrClosed = errors.New("console manager closed")
)

// Code maps an error to the stable code used in operator notifications
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoTargetSelected):
		return "NO_TARGET"
	case errors.Is(err, ErrNotConnected), errors.Is(err, transport.ErrNotOpen):
		return "NOT_CONNECTED"
	case errors.Is(err, ErrTransientSend):
		return "SEND_FAILED"
	case errors.Is(err, ErrRetriesExhausted):
		return "RETRIES_EXHAUSTED"
	case errors.Is(err, ErrCredentialRevoked):
		return "CREDENTIAL_REVOKED"
	case errors.Is(err, transport.ErrEmptyTarget):
		return "EMPTY_TARGET"
	case errors.Is(err, transport.ErrEmptyCredential):
		return "EMPTY_CREDENTIAL"
	case errors.Is(err, ErrClosed):
		return "MANAGER_CLOSED"
	default:
		return "CONSOLE_ERROR"
	}
}
