package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// resumeState remembers the last target a console opened on, so a bare
// 'rcw attach' can return to it. No log history is stored.
type resumeState struct {
	Type          string `json:"type"` // "resume_state"
	SchemaVersion int    `json:"schemaVersion"`
	Target        string `json:"target"`
	Server        string `json:"server,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

func defaultResumeStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".rcw", "state")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "last_target.json"), nil
}

func loadResumeState(path string) (*resumeState, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("resume state path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var st resumeState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func saveResumeState(path string, st *resumeState) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("resume state path is required")
	}
	if st == nil {
		return errors.New("resume state is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func newResumeState(target, server string, at time.Time) *resumeState {
	return &resumeState{
		Type:          "resume_state",
		SchemaVersion: 1,
		Target:        target,
		Server:        server,
		UpdatedAt:     at.UTC().Format(time.RFC3339Nano),
	}
}

func parseRFC3339Any(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	// Try nano first (what we emit), fall back to second precision.
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// lastTarget returns the remembered target for server, or ""
func lastTarget(server string) (string, time.Time) {
	path, err := defaultResumeStatePath()
	if err != nil {
		return "", time.Time{}
	}
	st, err := loadResumeState(path)
	if err != nil || st == nil {
		return "", time.Time{}
	}
	if st.Server != "" && server != "" && st.Server != server {
		return "", time.Time{}
	}
	at, _ := parseRFC3339Any(st.UpdatedAt)
	return st.Target, at
}
