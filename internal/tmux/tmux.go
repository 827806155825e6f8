// Package tmux mirrors console lines into a detached tmux session so they
// can be followed from another terminal.
package tmux

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/GianlucaP106/gotmux/gotmux"
)

// ErrNoPaneAvailable is returned when Setup has not found a pane yet
var ErrNoPaneAvailable = errors.New("no tmux pane available")

// Config selects the tmux session used for the mirror
type Config struct {
	SessionName string
}

// commander is the subset of gotmux.Tmux used to drive the pane
type commander interface {
	Command(cmd ...string) (string, error)
}

// Manager owns the mirror session
type Manager struct {
	mu     sync.Mutex
	config Config
	tmux   commander
	ready  bool
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SessionNameFor derives a tmux session name from a target
func SessionNameFor(target string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(target, "-"), "-")
	if name == "" {
		return "rcw"
	}
	return "rcw-" + name
}

// IsInsideTmux checks if we're running inside tmux
func IsInsideTmux() bool {
	return os.Getenv("TMUX") != ""
}

// New connects to the default tmux server
func New(cfg Config) (*Manager, error) {
	t, err := gotmux.DefaultTmux()
	if err != nil {
		return nil, fmt.Errorf("tmux unavailable: %w", err)
	}
	return &Manager{config: cfg, tmux: t}, nil
}

// SessionName returns the mirror session name
func (m *Manager) SessionName() string { return m.config.SessionName }

// Setup creates the session if needed and locates its first pane
func (m *Manager) Setup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tmux.(*gotmux.Tmux)
	if !ok {
		m.ready = true
		return nil
	}

	var sess *gotmux.Session
	var err error
	if t.HasSession(m.config.SessionName) {
		sess, err = t.GetSessionByName(m.config.SessionName)
	} else {
		sess, err = t.NewSession(&gotmux.SessionOptions{Name: m.config.SessionName})
	}
	if err != nil {
		return fmt.Errorf("failed to open tmux session %s: %w", m.config.SessionName, err)
	}

	windows, err := sess.ListWindows()
	if err != nil || len(windows) == 0 {
		return fmt.Errorf("no windows in tmux session %s", m.config.SessionName)
	}
	panes, err := windows[0].ListPanes()
	if err != nil || len(panes) == 0 {
		return fmt.Errorf("no panes in tmux session %s", m.config.SessionName)
	}
	m.ready = true
	return nil
}

// AttachCommand is what the operator runs to follow the mirror
func (m *Manager) AttachCommand() string {
	return "tmux attach -t " + m.config.SessionName
}
