package console

import (
	"context"
	"strings"
	"sync"

	"github.com/vburojevic/rcw/internal/transport"
)

// fakeOpener records dials and closes in one ordered log
type fakeOpener struct {
	mu      sync.Mutex
	log     []string
	sockets []*fakeSocket
}

func (o *fakeOpener) Open(_ context.Context, url string, handler transport.Handler) transport.Socket {
	target := strings.TrimPrefix(url, "ws://console.test/ws/logs/")
	if i := strings.Index(target, "?"); i >= 0 {
		target = target[:i]
	}
	s := &fakeSocket{opener: o, url: url, target: target, handler: handler}
	o.mu.Lock()
	o.log = append(o.log, "dial "+target)
	o.sockets = append(o.sockets, s)
	o.mu.Unlock()
	return s
}

func (o *fakeOpener) record(entry string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.log = append(o.log, entry)
}

func (o *fakeOpener) events() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.log...)
}

func (o *fakeOpener) dials() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sockets)
}

func (o *fakeOpener) last() *fakeSocket {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.sockets) == 0 {
		return nil
	}
	return o.sockets[len(o.sockets)-1]
}

// fakeSocket emits events synchronously through the manager's handler
type fakeSocket struct {
	opener  *fakeOpener
	url     string
	target  string
	handler transport.Handler

	mu      sync.Mutex
	open    bool
	closed  bool
	sent    []string
	sendErr error
}

func (s *fakeSocket) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	if !s.open || s.closed {
		return transport.ErrNotOpen
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSocket) Close(code int, reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.opener.record("closed " + s.target)
	s.handler(transport.Event{Kind: transport.EventClosed, Code: code, Reason: reason})
	return nil
}

// accept simulates the server completing the handshake
func (s *fakeSocket) accept() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	s.handler(transport.Event{Kind: transport.EventOpened})
}

func (s *fakeSocket) message(data string) {
	s.handler(transport.Event{Kind: transport.EventMessage, Data: data})
}

// drop simulates the peer or network ending the connection
func (s *fakeSocket) drop(code int) {
	s.mu.Lock()
	s.closed = true
	s.open = false
	s.mu.Unlock()
	s.handler(transport.Event{Kind: transport.EventError, Err: context.DeadlineExceeded})
	s.handler(transport.Event{Kind: transport.EventClosed, Code: code})
}

func (s *fakeSocket) sentFrames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func (s *fakeSocket) failSends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
}

// mutableCredential can be emptied mid-test
type mutableCredential struct {
	mu    sync.Mutex
	token string
}

func (c *mutableCredential) Credential() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *mutableCredential) set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) Notify(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) codes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	codes := make([]string, 0, len(l.notices))
	for _, n := range l.notices {
		codes = append(codes, n.Code)
	}
	return codes
}

type transitionLog struct {
	mu     sync.Mutex
	states []string
}

func (l *transitionLog) observe(tr Transition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, tr.To.Target+":"+tr.To.String())
}

func (l *transitionLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.states...)
}
