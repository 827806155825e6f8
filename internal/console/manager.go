// Package console drives one operator console session: the connection state
// machine, retries and command admission.
package console

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vburojevic/rcw/internal/credential"
	"github.com/vburojevic/rcw/internal/domain"
	"github.com/vburojevic/rcw/internal/reconnect"
	"github.com/vburojevic/rcw/internal/transport"
)

// Config holds the fixed parameters of a Manager
type Config struct {
	Endpoint transport.Endpoint
	Policy   reconnect.Policy
	// Banners appends info/warn lines to the sink when a session opens or
	// drops.
	Banners bool
}

// Option customizes a Manager
type Option func(*Manager)

// WithClock sets the clock used for retry timers and line timestamps
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the debug logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver registers a transition observer
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observers = append(m.observers, o) }
}

// WithNotifier sets where failures are reported
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// session is owned by the manager loop
type session struct {
	id         string
	target     string
	state      State
	socket     transport.Socket
	sockToken  uint64
	budget     *reconnect.Budget
	manual     bool
	retry      *clock.Timer
	retryToken uint64
}

type call struct {
	fn    func() error
	reply chan error
}

type stop struct {
	reply chan struct{}
}

type socketEvent struct {
	token uint64
	ev    transport.Event
}

type retryFired struct {
	token uint64
}

// Manager owns the console session. All session state lives on a single
// loop goroutine; public methods post requests to it and wait for the reply.
type Manager struct {
	cfg       Config
	opener    transport.Opener
	creds     credential.Source
	sink      LineSink
	clock     clock.Clock
	logger    *zap.Logger
	notifier  Notifier
	observers []Observer

	inbox     *inbox
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// loop-owned
	sess  *session
	token uint64

	mu    sync.RWMutex
	state State
}

// NewManager starts a manager in the Idle state
func NewManager(cfg Config, opener transport.Opener, creds credential.Source, sink LineSink, opts ...Option) *Manager {
	cfg.Policy = cfg.Policy.Normalize()
	if sink == nil {
		sink = discardSink{}
	}
	if creds == nil {
		creds = credential.Static("")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg,
		opener:   opener,
		creds:    creds,
		sink:     sink,
		clock:    clock.New(),
		logger:   zap.NewNop(),
		notifier: discardNotifier{},
		inbox:    newInbox(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    State{Phase: PhaseIdle, MaxAttempts: cfg.Policy.MaxAttempts},
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.run()
	return m
}

// State returns the latest published state. Safe to call from observers.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Policy returns the normalized retry policy
func (m *Manager) Policy() reconnect.Policy { return m.cfg.Policy }

// Connect attaches to target, tearing down any current session first
func (m *Manager) Connect(ctx context.Context, target string) error {
	return m.do(ctx, func() error { return m.connect(target) })
}

// Disconnect closes the session on operator request and stops retries
func (m *Manager) Disconnect(ctx context.Context) error {
	return m.do(ctx, func() error {
		m.disconnect()
		return nil
	})
}

// Switch changes the selected target. An empty target drops the session
// and returns to Idle.
func (m *Manager) Switch(ctx context.Context, target string) error {
	target = strings.TrimSpace(target)
	if target != "" {
		return m.Connect(ctx, target)
	}
	return m.do(ctx, func() error {
		m.drop()
		return nil
	})
}

// Send writes one encoded frame on the open socket
func (m *Manager) Send(ctx context.Context, payload string) error {
	return m.do(ctx, func() error { return m.send(payload) })
}

// CredentialRevoked ends the active session because the credential is no
// longer valid
func (m *Manager) CredentialRevoked(ctx context.Context) error {
	return m.do(ctx, func() error {
		m.revoke()
		return nil
	})
}

// Close tears down the session and stops the loop. It is idempotent.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		s := stop{reply: make(chan struct{})}
		if m.inbox.push(s) {
			<-m.done
		}
		m.inbox.close()
		m.cancel()
	})
	return nil
}

func (m *Manager) do(ctx context.Context, fn func() error) error {
	c := call{fn: fn, reply: make(chan error, 1)}
	if !m.inbox.push(c) {
		return ErrClosed
	}
	select {
	case err := <-c.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrClosed
	}
}

func (m *Manager) run() {
	defer close(m.done)
	for range m.inbox.ready {
		for _, item := range m.inbox.drain() {
			switch it := item.(type) {
			case call:
				it.reply <- it.fn()
			case socketEvent:
				m.onSocket(it)
			case retryFired:
				m.onRetry(it)
			case stop:
				m.disconnect()
				close(it.reply)
				return
			}
		}
	}
}

func (m *Manager) nextToken() uint64 {
	m.token++
	return m.token
}

func (m *Manager) log(sess *session) *zap.Logger {
	if sess == nil {
		return m.logger
	}
	return m.logger.With(zap.String("target", sess.target), zap.String("session_id", sess.id))
}

func (m *Manager) connect(target string) error {
	target = strings.TrimSpace(target)
	// Validate before touching the current session.
	url, err := transport.BuildURL(m.cfg.Endpoint, target, m.creds.Credential())
	if err != nil {
		m.notifier.Notify(noticeFor(err))
		return err
	}

	if old := m.sess; old != nil {
		if old.target != target {
			m.disconnect()
		} else {
			m.release(old, transport.CloseNormal, "reconnecting")
		}
	}

	sess := &session{
		id:     uuid.NewString(),
		target: target,
		budget: reconnect.NewBudget(m.cfg.Policy),
	}
	m.sess = sess
	m.log(sess).Debug("connect")
	m.open(sess, url)
	return nil
}

// dial re-reads the credential and opens a fresh socket for sess
func (m *Manager) dial(sess *session) error {
	url, err := transport.BuildURL(m.cfg.Endpoint, sess.target, m.creds.Credential())
	if err != nil {
		return err
	}
	m.open(sess, url)
	return nil
}

func (m *Manager) open(sess *session, url string) {
	tok := m.nextToken()
	sess.sockToken = tok
	m.transition(sess, State{Phase: PhaseConnecting, Attempt: sess.budget.Attempt()})
	sess.socket = m.opener.Open(m.ctx, url, func(ev transport.Event) {
		m.inbox.push(socketEvent{token: tok, ev: ev})
	})
}

// release cancels the retry timer and closes the socket. Events from the
// released socket are stale from here on.
func (m *Manager) release(sess *session, code int, reason string) {
	m.cancelRetry(sess)
	s := sess.socket
	sess.socket = nil
	sess.sockToken = 0
	if s != nil {
		if err := s.Close(code, reason); err != nil {
			m.log(sess).Debug("socket close failed", zap.Error(err))
		}
	}
}

func (m *Manager) cancelRetry(sess *session) {
	if sess.retry != nil {
		sess.retry.Stop()
		sess.retry = nil
	}
	sess.retryToken = 0
}

func (m *Manager) disconnect() {
	sess := m.sess
	if sess == nil {
		return
	}
	sess.manual = true
	m.release(sess, transport.CloseNormal, "disconnected by user")
	if sess.state.Phase == PhaseClosed {
		return
	}
	m.transition(sess, State{Phase: PhaseClosed, Reason: ReasonManual, Attempt: sess.budget.Attempt()})
	m.banner(domain.LogLevelWarn, fmt.Sprintf("Disconnected from %s", sess.target))
}

func (m *Manager) drop() {
	m.disconnect()
	if m.sess == nil {
		return
	}
	m.sess = nil
	m.publish(State{Phase: PhaseIdle, MaxAttempts: m.cfg.Policy.MaxAttempts})
}

func (m *Manager) revoke() {
	sess := m.sess
	if sess == nil || sess.state.Phase == PhaseClosed {
		return
	}
	m.release(sess, transport.CloseNormal, "credential revoked")
	m.finish(sess, ReasonCredential, ErrCredentialRevoked)
}

// finish moves sess to a terminal non-manual close and reports it
func (m *Manager) finish(sess *session, reason CloseReason, err error) {
	m.transition(sess, State{Phase: PhaseClosed, Reason: reason, Attempt: sess.budget.Attempt()})
	n := noticeFor(err)
	n.Message = fmt.Sprintf("%s: %s", sess.target, err)
	m.notifier.Notify(n)
	m.banner(domain.LogLevelError, n.Message)
}

func (m *Manager) send(payload string) error {
	sess := m.sess
	if sess == nil {
		return ErrNoTargetSelected
	}
	if sess.state.Phase != PhaseOpen || sess.socket == nil {
		return ErrNotConnected
	}
	err := sess.socket.Send(payload)
	if err == nil {
		return nil
	}
	m.log(sess).Warn("send failed, reconnecting", zap.Error(err))
	m.release(sess, transport.CloseNormal, "reconnecting")
	if derr := m.dial(sess); derr != nil {
		m.finish(sess, ReasonCredential, derr)
	}
	return fmt.Errorf("%w: %v", ErrTransientSend, err)
}

func (m *Manager) onSocket(e socketEvent) {
	sess := m.sess
	if sess == nil || e.token == 0 || e.token != sess.sockToken {
		m.logger.Debug("stale socket event", zap.Stringer("kind", e.ev.Kind))
		return
	}
	switch e.ev.Kind {
	case transport.EventOpened:
		if sess.state.Phase != PhaseConnecting {
			return
		}
		sess.budget.Reset()
		m.transition(sess, State{Phase: PhaseOpen})
		m.banner(domain.LogLevelInfo, fmt.Sprintf("Connected to console of %s", sess.target))
	case transport.EventMessage:
		m.sink.Append(domain.DecodeInbound(m.clock.Now(), e.ev.Data))
	case transport.EventError:
		m.log(sess).Debug("socket error", zap.Error(e.ev.Err))
	case transport.EventClosed:
		sess.socket = nil
		sess.sockToken = 0
		m.onClosed(sess, e.ev.Code, e.ev.Reason)
	}
}

func (m *Manager) onClosed(sess *session, code int, reason string) {
	log := m.log(sess).With(zap.Int("code", code), zap.String("reason", reason))
	if sess.manual || sess.state.Phase == PhaseClosed {
		log.Debug("socket closed after disconnect")
		return
	}
	m.banner(domain.LogLevelWarn, fmt.Sprintf("Connection to %s closed (code %d)", sess.target, code))

	delay, ok := sess.budget.Fail()
	if !ok {
		log.Debug("retry budget exhausted", zap.Int("attempt", sess.budget.Attempt()))
		m.finish(sess, ReasonExhausted, ErrRetriesExhausted)
		return
	}
	tok := m.nextToken()
	sess.retryToken = tok
	sess.retry = m.clock.AfterFunc(delay, func() {
		m.inbox.push(retryFired{token: tok})
	})
	log.Debug("retry scheduled", zap.Int("attempt", sess.budget.Attempt()), zap.Duration("delay", delay))
	m.transition(sess, State{Phase: PhaseReconnecting, Attempt: sess.budget.Attempt()})
}

func (m *Manager) onRetry(e retryFired) {
	sess := m.sess
	if sess == nil || e.token == 0 || e.token != sess.retryToken {
		m.logger.Debug("stale retry timer")
		return
	}
	sess.retry = nil
	sess.retryToken = 0
	if sess.manual || sess.state.Phase != PhaseReconnecting {
		return
	}
	if err := m.dial(sess); err != nil {
		m.finish(sess, ReasonCredential, err)
	}
}

func (m *Manager) transition(sess *session, next State) {
	next.Target = sess.target
	next.SessionID = sess.id
	next.MaxAttempts = m.cfg.Policy.MaxAttempts
	sess.state = next
	m.publish(next)
}

func (m *Manager) publish(next State) {
	m.mu.Lock()
	from := m.state
	m.state = next
	m.mu.Unlock()

	if !canTransition(from.Phase, next.Phase) {
		m.logger.Warn("unexpected transition", zap.String("from", from.String()), zap.String("to", next.String()))
	}
	m.logger.Debug("state", zap.String("from", from.String()), zap.String("to", next.String()),
		zap.String("target", next.Target), zap.Int("attempt", next.Attempt))
	tr := Transition{From: from, To: next, At: m.clock.Now()}
	for _, o := range m.observers {
		o(tr)
	}
}

func (m *Manager) banner(level domain.LogLevel, text string) {
	if !m.cfg.Banners {
		return
	}
	m.sink.Append(domain.NewLogLine(m.clock.Now(), level, text))
}
