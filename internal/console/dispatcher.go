package console

import (
	"context"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/rcw/internal/domain"
)

// Conn is the part of the Manager the dispatcher needs
type Conn interface {
	State() State
	Send(ctx context.Context, payload string) error
}

// Dispatcher turns operator input into command frames
type Dispatcher struct {
	conn     Conn
	sink     LineSink
	notifier Notifier
	clock    clock.Clock
}

// NewDispatcher creates a dispatcher. Nil sink, notifier or clock fall back
// to no-op / wall clock implementations.
func NewDispatcher(conn Conn, sink LineSink, notifier Notifier, clk clock.Clock) *Dispatcher {
	if sink == nil {
		sink = discardSink{}
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Dispatcher{conn: conn, sink: sink, notifier: notifier, clock: clk}
}

// Submit sends one command. Blank input is ignored. Failures are reported
// once through the notifier and returned.
func (d *Dispatcher) Submit(ctx context.Context, raw string) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	switch st := d.conn.State(); st.Phase {
	case PhaseOpen:
	case PhaseIdle:
		return d.fail(ErrNoTargetSelected)
	default:
		return d.fail(ErrNotConnected)
	}

	payload, err := domain.EncodeCommand(text)
	if err != nil {
		return d.fail(err)
	}
	d.sink.Append(domain.NewLogLine(d.clock.Now(), domain.LogLevelCommand, text))
	if err := d.conn.Send(ctx, payload); err != nil {
		return d.fail(err)
	}
	return nil
}

func (d *Dispatcher) fail(err error) error {
	d.notifier.Notify(noticeFor(err))
	return err
}
