package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultCloseGrace       = 2 * time.Second
)

// WebSocketOptions tunes the WebSocket opener. Zero values use defaults.
type WebSocketOptions struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// CloseGrace bounds how long Close waits for the peer to answer the
	// close frame before the TCP connection is dropped.
	CloseGrace time.Duration
	Header     http.Header
	Logger     *zap.Logger
}

// WebSocket opens console sockets over gorilla/websocket
type WebSocket struct {
	dialer       *websocket.Dialer
	header       http.Header
	writeTimeout time.Duration
	closeGrace   time.Duration
	logger       *zap.Logger
}

// NewWebSocket creates an opener
func NewWebSocket(opts WebSocketOptions) *WebSocket {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.CloseGrace <= 0 {
		opts.CloseGrace = defaultCloseGrace
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &WebSocket{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		header:       opts.Header,
		writeTimeout: opts.WriteTimeout,
		closeGrace:   opts.CloseGrace,
		logger:       opts.Logger,
	}
}

// Open starts dialing url in the background and returns the handle at once
func (w *WebSocket) Open(ctx context.Context, url string, handler Handler) Socket {
	dialCtx, cancel := context.WithCancel(ctx)
	s := &wsSocket{
		opener:  w,
		handler: handler,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(dialCtx, url)
	return s
}

type socketState int

const (
	stateConnecting socketState = iota
	stateOpen
	stateClosing
	stateClosed
)

type wsSocket struct {
	opener  *WebSocket
	handler Handler
	cancel  context.CancelFunc
	done    chan struct{}

	mu          sync.Mutex
	state       socketState
	conn        *websocket.Conn
	localClose  bool
	localCode   int
	localReason string
}

func (s *wsSocket) run(ctx context.Context, url string) {
	defer close(s.done)
	defer s.cancel()

	conn, resp, err := s.opener.dialer.DialContext(ctx, url, s.opener.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if !s.closingLocally() {
			s.handler(Event{Kind: EventError, Err: dialError(resp, err)})
		}
		s.finish(CloseAbnormal, "dial failed")
		return
	}

	s.mu.Lock()
	if s.localClose {
		s.mu.Unlock()
		conn.Close()
		s.finish(CloseAbnormal, "")
		return
	}
	s.conn = conn
	s.state = stateOpen
	s.mu.Unlock()

	s.handler(Event{Kind: EventOpened})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			code, reason := CloseAbnormal, "connection lost"
			// gorilla reports a dropped TCP stream as a 1006 CloseError;
			// only a real close frame skips the error event
			var closeErr *websocket.CloseError
			peerClosed := errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure
			if peerClosed {
				code, reason = closeErr.Code, closeErr.Text
			} else if !s.closingLocally() {
				s.handler(Event{Kind: EventError, Err: err})
			}
			conn.Close()
			s.finish(code, reason)
			return
		}
		s.handler(Event{Kind: EventMessage, Data: string(data)})
	}
}

func (s *wsSocket) closingLocally() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localClose
}

// finish emits the single terminal close event. A locally requested close
// reports the caller's code and reason.
func (s *wsSocket) finish(code int, reason string) {
	s.mu.Lock()
	if s.localClose {
		code, reason = s.localCode, s.localReason
	}
	s.state = stateClosed
	s.mu.Unlock()
	s.handler(Event{Kind: EventClosed, Code: code, Reason: reason})
}

func (s *wsSocket) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateOpen || s.conn == nil {
		return ErrNotOpen
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opener.writeTimeout)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (s *wsSocket) Close(code int, reason string) error {
	s.mu.Lock()
	if s.localClose || s.state == stateClosed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.localClose = true
	s.localCode, s.localReason = code, reason
	conn := s.conn
	wasOpen := s.state == stateOpen
	s.state = stateClosing
	s.mu.Unlock()

	s.cancel()
	if wasOpen {
		s.handshakeClose(conn, code, reason)
	}
	<-s.done
	return nil
}

// handshakeClose sends the close frame and waits for the read loop to see
// the peer's answer, dropping the connection when the grace period runs out.
func (s *wsSocket) handshakeClose(conn *websocket.Conn, code int, reason string) {
	if code == CloseNoStatus || code == CloseAbnormal {
		code = CloseNormal
	}
	deadline := time.Now().Add(s.opener.writeTimeout)
	if err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		s.opener.logger.Debug("close frame not sent", zap.Error(err))
		conn.Close()
		return
	}
	grace := time.NewTimer(s.opener.closeGrace)
	defer grace.Stop()
	select {
	case <-s.done:
	case <-grace.C:
		s.opener.logger.Debug("close handshake timed out", zap.Duration("grace", s.opener.closeGrace))
		conn.Close()
	}
}

func dialError(resp *http.Response, err error) error {
	if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
		return fmt.Errorf("handshake rejected: %s", resp.Status)
	}
	return fmt.Errorf("dial: %w", err)
}
