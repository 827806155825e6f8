package transport

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrEmptyTarget means no target was selected
	ErrEmptyTarget = errors.New("target is required")
	// ErrEmptyCredential means no credential is available
	ErrEmptyCredential = errors.New("credential is required; run 'rcw login' first")
)

// LogsPath is the server route that streams a target's console
const LogsPath = "/ws/logs/"

// Endpoint is the console server location
type Endpoint struct {
	Secure bool
	Host   string
}

// ParseEndpoint derives the WebSocket endpoint from the server's HTTP base
// URL. The scheme mirrors the base URL: https yields wss, anything else ws.
func ParseEndpoint(base string) (Endpoint, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return Endpoint{}, errors.New("server URL is required")
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Host == "" {
		return Endpoint{}, fmt.Errorf("invalid server URL %q: missing host", base)
	}
	switch u.Scheme {
	case "http", "ws":
		return Endpoint{Host: u.Host}, nil
	case "https", "wss":
		return Endpoint{Secure: true, Host: u.Host}, nil
	default:
		return Endpoint{}, fmt.Errorf("invalid server URL %q: unsupported scheme %q", base, u.Scheme)
	}
}

// Scheme returns ws or wss
func (e Endpoint) Scheme() string {
	if e.Secure {
		return "wss"
	}
	return "ws"
}

// BuildURL returns the console URL for a target. Both the target and the
// credential must be non-empty; no URL is produced otherwise.
func BuildURL(e Endpoint, target, credential string) (string, error) {
	if strings.TrimSpace(target) == "" {
		return "", ErrEmptyTarget
	}
	if strings.TrimSpace(credential) == "" {
		return "", ErrEmptyCredential
	}
	if e.Host == "" {
		return "", errors.New("server host is required")
	}
	return e.Scheme() + "://" + e.Host + LogsPath + url.PathEscape(target) + "?token=" + url.QueryEscape(credential), nil
}
