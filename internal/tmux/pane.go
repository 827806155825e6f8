package tmux

import (
	"fmt"
	"strings"

	"github.com/vburojevic/rcw/internal/domain"
)

func (m *Manager) paneTarget() string {
	return fmt.Sprintf("%s:0.0", m.config.SessionName)
}

// ClearPane clears the pane content and scrollback history
func (m *Manager) ClearPane() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return ErrNoPaneAvailable
	}

	if _, err := m.tmux.Command("send-keys", "-t", m.paneTarget(), "-R"); err != nil {
		return fmt.Errorf("failed to reset terminal: %w", err)
	}
	if _, err := m.tmux.Command("clear-history", "-t", m.paneTarget()); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	if _, err := m.tmux.Command("send-keys", "-t", m.paneTarget(), "clear", "Enter"); err != nil {
		return fmt.Errorf("failed to clear screen: %w", err)
	}
	return nil
}

// WriteSessionBanner marks a newly opened console session in the pane
func (m *Manager) WriteSessionBanner(start *domain.SessionStart, prev *domain.SessionSummary) error {
	prevInfo := ""
	if prev != nil {
		prevInfo = fmt.Sprintf("Previous: %d lines, %d errors | ", prev.TotalLines, prev.Errors)
	}
	banner := fmt.Sprintf(
		"══════════════════════════════════════════════════════════════\n"+
			"  SESSION %d: %s\n"+
			"  %s%s\n"+
			"══════════════════════════════════════════════════════════════",
		start.Session,
		start.Target,
		prevInfo,
		start.Timestamp,
	)
	return m.WriteLines(strings.Split(banner, "\n"))
}

// WriteLine writes a single line to the tmux pane using echo
func (m *Manager) WriteLine(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return ErrNoPaneAvailable
	}

	_, err := m.tmux.Command("send-keys", "-t", m.paneTarget(), fmt.Sprintf("echo '%s'", escapeTmuxString(line)), "Enter")
	return err
}

// WriteLines writes multiple lines in order
func (m *Manager) WriteLines(lines []string) error {
	for _, line := range lines {
		if err := m.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

// escapeTmuxString escapes special characters for tmux send-keys
func escapeTmuxString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	// close the quote, emit a double-quoted quote, reopen
	return strings.ReplaceAll(s, "'", `'"'"'`)
}

// View mirrors sink lines into the pane. The first write error disables it.
type View struct {
	manager *Manager
	onError func(error)
	failed  bool
}

// NewView creates a logsink view backed by manager
func NewView(manager *Manager, onError func(error)) *View {
	return &View{manager: manager, onError: onError}
}

func (v *View) Render(line domain.LogLine) {
	if v.failed {
		return
	}
	if err := v.manager.WriteLine(line.String()); err != nil {
		v.failed = true
		if v.onError != nil {
			v.onError(err)
		}
	}
}

// ScrollToBottom is a no-op; the pane always follows output
func (v *View) ScrollToBottom() {}

// Cleared clears the pane along with the sink
func (v *View) Cleared() {
	if v.failed {
		return
	}
	if err := v.manager.ClearPane(); err != nil && v.onError != nil {
		v.onError(err)
	}
}
