package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vburojevic/rcw/internal/console"
	"github.com/vburojevic/rcw/internal/domain"
)

// refreshMsg tells the model to re-read the sink and the manager state
type refreshMsg struct{}

// Bridge carries sink, notifier and observer callbacks into the bubbletea
// loop. None of its methods block, so it can be called with the sink
// locked or from the manager loop.
type Bridge struct {
	mu      sync.Mutex
	notices []console.Notice
	signal  chan struct{}
}

// NewBridge creates an idle bridge
func NewBridge() *Bridge {
	return &Bridge{signal: make(chan struct{}, 1)}
}

func (b *Bridge) poke() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Render marks the log pane dirty
func (b *Bridge) Render(domain.LogLine) { b.poke() }

// ScrollToBottom is resolved on refresh from the sink's auto-scroll flag
func (b *Bridge) ScrollToBottom() {}

// Cleared marks the log pane dirty
func (b *Bridge) Cleared() { b.poke() }

// Notify queues a notice for the status line
func (b *Bridge) Notify(n console.Notice) {
	b.mu.Lock()
	b.notices = append(b.notices, n)
	b.mu.Unlock()
	b.poke()
}

// Observe is a console.Observer that marks the status bar dirty
func (b *Bridge) Observe(console.Transition) { b.poke() }

func (b *Bridge) takeNotices() []console.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.notices
	b.notices = nil
	return n
}

func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		<-b.signal
		return refreshMsg{}
	}
}
