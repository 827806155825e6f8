// Package tui is the interactive console: a scrolling log pane, a status
// bar and a command line.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/rcw/internal/console"
	"github.com/vburojevic/rcw/internal/domain"
	"github.com/vburojevic/rcw/internal/logsink"
	"github.com/vburojevic/rcw/internal/output"
	"github.com/vburojevic/rcw/internal/status"
)

// Controller is the part of console.Manager the TUI drives
type Controller interface {
	Connect(ctx context.Context, target string) error
	Disconnect(ctx context.Context) error
	State() console.State
}

// Submitter sends operator commands
type Submitter interface {
	Submit(ctx context.Context, raw string) error
}

// Options wires the model to the console
type Options struct {
	Server     string
	Target     string
	Controller Controller
	Submitter  Submitter
	Sink       *logsink.Sink
	Bridge     *Bridge
	// Export writes the sink to path (or a default path when empty) and
	// returns where it went.
	Export func(path string) (string, error)
}

type exportedMsg struct {
	path string
	err  error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	barStyle   = lipgloss.NewStyle().Padding(0, 1)
	kindStyles = map[status.Kind]lipgloss.Style{
		status.Connected:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		status.Connecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		status.Disconnected: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	flashStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpText   = "enter send · ctrl+d disconnect · ctrl+r reconnect · ctrl+l clear · ctrl+a autoscroll · ctrl+e export · ctrl+c quit"
)

// Model is the bubbletea model
type Model struct {
	opts   Options
	queue  *queue
	vp     viewport.Model
	input  textinput.Model
	text   *output.TextWriter
	status status.Status
	flash  string
	target string
	width  int
	height int
}

// New creates the model
func New(opts Options) Model {
	if opts.Bridge == nil {
		opts.Bridge = NewBridge()
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "command, or /help"
	ti.CharLimit = 4096
	ti.Focus()

	m := Model{
		opts:   opts,
		queue:  newQueue(),
		vp:     viewport.New(80, 20),
		input:  ti,
		text:   output.NewTextWriter(nil).WithColor(true),
		target: opts.Target,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.opts.Bridge.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-5, 1)
		m.input.Width = max(msg.Width-4, 1)
		m.refresh()
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, m.opts.Bridge.wait()

	case exportedMsg:
		if msg.err != nil {
			m.flash = "export failed: " + msg.err.Error()
		} else {
			m.flash = "exported to " + msg.path
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		raw := m.input.Value()
		m.input.Reset()
		return m.run(raw)
	case "ctrl+d":
		return m.perform(console.ActionDisconnect, "")
	case "ctrl+r":
		return m.perform(console.ActionConnect, "")
	case "ctrl+l":
		return m.perform(console.ActionClear, "")
	case "ctrl+a":
		return m.perform(console.ActionAutoScroll, "")
	case "ctrl+e":
		return m.perform(console.ActionExport, "")
	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// run handles one submitted input line
func (m Model) run(raw string) (tea.Model, tea.Cmd) {
	action, arg := console.ParseAction(raw)
	if action != console.ActionCommand {
		return m.perform(action, arg)
	}
	if arg == "" {
		return m, nil
	}
	submitter := m.opts.Submitter
	return m, m.queue.push(func() {
		// failures arrive through the bridge's notifier
		_ = submitter.Submit(context.Background(), arg)
	})
}

func (m Model) perform(action console.Action, arg string) (tea.Model, tea.Cmd) {
	ctrl := m.opts.Controller
	switch action {
	case console.ActionConnect:
		target := arg
		if target == "" {
			target = m.currentTarget()
		}
		if target != "" {
			m.target = target
		}
		return m, m.queue.push(func() {
			_ = ctrl.Connect(context.Background(), target)
		})
	case console.ActionDisconnect:
		return m, m.queue.push(func() {
			_ = ctrl.Disconnect(context.Background())
		})
	case console.ActionClear:
		m.opts.Sink.Clear()
		m.refresh()
	case console.ActionAutoScroll:
		if m.opts.Sink.ToggleAutoScroll() {
			m.flash = "auto-scroll on"
		} else {
			m.flash = "auto-scroll off"
		}
		m.refresh()
	case console.ActionExport:
		if m.opts.Export == nil {
			m.flash = "export is not available"
			return m, nil
		}
		export := m.opts.Export
		return m, func() tea.Msg {
			path, err := export(arg)
			return exportedMsg{path: path, err: err}
		}
	case console.ActionStatus:
		m.flash = m.status.Label
	case console.ActionHelp:
		m.flash = console.ActionUsage
	case console.ActionQuit:
		return m, tea.Quit
	default:
		m.flash = fmt.Sprintf("unknown command /%s, try /help", arg)
	}
	return m, nil
}

func (m Model) currentTarget() string {
	if t := m.opts.Controller.State().Target; t != "" {
		return t
	}
	return m.target
}

// refresh re-reads the sink, the manager state and pending notices
func (m *Model) refresh() {
	lines := m.opts.Sink.Lines()
	rendered := make([]string, len(lines))
	for i, l := range lines {
		rendered[i] = m.text.FormatLine(l)
	}
	m.vp.SetContent(strings.Join(rendered, "\n"))
	if m.opts.Sink.AutoScroll() {
		m.vp.GotoBottom()
	}

	m.status = status.Project(m.opts.Controller.State())
	for _, n := range m.opts.Bridge.takeNotices() {
		m.flash = output.LevelStyle(levelOf(n)).Render(fmt.Sprintf("[%s] %s", n.Code, n.Message))
	}
}

func levelOf(n console.Notice) domain.LogLevel {
	if n.Level == "" {
		return domain.LogLevelError
	}
	return n.Level
}

func (m Model) View() string {
	var b strings.Builder
	title := titleStyle.Render("rcw")
	if m.opts.Server != "" {
		title += " " + flashStyle.Render(m.opts.Server)
	}
	b.WriteString(title + "\n")
	b.WriteString(m.vp.View() + "\n")

	indicator := kindStyles[m.status.Kind].Render("● " + m.status.Kind.String())
	scroll := "scroll:off"
	if m.opts.Sink.AutoScroll() {
		scroll = "scroll:on"
	}
	bar := indicator + "  " + m.status.Label + "  " + flashStyle.Render(scroll)
	if m.flash != "" {
		bar += "  " + m.flash
	}
	b.WriteString(barStyle.Render(bar) + "\n")
	b.WriteString(m.input.View() + "\n")
	b.WriteString(flashStyle.Render(helpText))
	return b.String()
}
