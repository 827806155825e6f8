// Package api talks to the server manager's REST endpoints: login and the
// list of running console targets.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ErrUnauthorized means the credential was rejected
var ErrUnauthorized = errors.New("unauthorized")

// Client is a minimal REST client
type Client struct {
	base   string
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a client for the server at base (http[s]://host[:port])
func NewClient(base string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// Target is one running process that exposes a console
type Target struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Uptime      int64  `json:"uptime"`
	StartTime   int64  `json:"startTime"`
	Running     bool   `json:"running"`
	PlayerCount int    `json:"playerCount"`
	// MemoryUsage is a number or a placeholder string such as "N/A"
	MemoryUsage json.RawMessage `json:"memoryUsage,omitempty"`
}

// Memory renders MemoryUsage as text; empty when absent or null
func (t Target) Memory() string {
	raw := bytes.TrimSpace(t.MemoryUsage)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// UptimeDuration converts the uptime, reported in milliseconds
func (t Target) UptimeDuration() time.Duration {
	return time.Duration(t.Uptime) * time.Millisecond
}

type apiError struct {
	Error string `json:"error"`
}

// Login exchanges a username and password for a bearer token
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", bytes.NewReader(body), &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	return &res, nil
}

// RunningTargets lists running targets sorted by name
func (c *Client) RunningTargets(ctx context.Context, token string) ([]Target, error) {
	var byName map[string]Target
	if err := c.do(ctx, http.MethodGet, "/api/servers/running", token, nil, &byName); err != nil {
		return nil, err
	}
	targets := lo.MapToSlice(byName, func(name string, t Target) Target {
		if t.Name == "" {
			t.Name = name
		}
		return t
	})
	targets = lo.Filter(targets, func(t Target, _ int) bool { return t.Running })
	slices.SortFunc(targets, func(a, b Target) int { return strings.Compare(a.Name, b.Name) })
	return targets, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("api request", zap.String("method", method), zap.String("path", path))
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug("api response", zap.String("path", path), zap.Int("status", resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(data, resp.Status))
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %s", method, path, errorMessage(data, resp.Status))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: invalid response: %w", method, path, err)
	}
	return nil
}

func errorMessage(data []byte, fallback string) string {
	var e apiError
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return e.Error
	}
	return fallback
}
