package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/rcw/internal/domain"
)

var (
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// LevelStyle returns the style used for a level's tag
func LevelStyle(level domain.LogLevel) lipgloss.Style {
	switch level {
	case domain.LogLevelWarn:
		return warnStyle
	case domain.LogLevelError:
		return errorStyle
	case domain.LogLevelCommand:
		return commandStyle
	default:
		return dimStyle
	}
}

// TextWriter writes human readable console lines
type TextWriter struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewTextWriter creates a plain text writer
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// WithColor enables level colors
func (t *TextWriter) WithColor(on bool) *TextWriter {
	t.color = on
	return t
}

// FormatLine renders a line as "[hh:mm:ss] [LEVEL] text"
func (t *TextWriter) FormatLine(line domain.LogLine) string {
	if !t.color {
		return line.String()
	}
	ts := dimStyle.Render("[" + line.Timestamp.Format("15:04:05") + "]")
	return ts + " " + LevelStyle(line.Level).Render(line.Level.Tag()) + " " + line.Text
}

// WriteLine writes one console line
func (t *TextWriter) WriteLine(line domain.LogLine) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.w, t.FormatLine(line))
	return err
}

// WriteStatus writes a status change
func (t *TextWriter) WriteStatus(label string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	msg := "-- " + label + " --"
	if t.color {
		msg = dimStyle.Render(msg)
	}
	_, err := fmt.Fprintln(t.w, msg)
	return err
}
