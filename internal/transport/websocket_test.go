package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) count(kind EventKind) int {
	n := 0
	for _, e := range r.snapshot() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) waitFor(t *testing.T, kind EventKind) Event {
	t.Helper()
	var found Event
	require.Eventually(t, func() bool {
		for _, e := range r.snapshot() {
			if e.Kind == kind {
				found = e
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond, "waiting for %s", kind)
	return found
}

// consoleServer upgrades every request and hands the connection to fn
func consoleServer(t *testing.T, fn func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/logs/survival1?token=abc"
}

func TestWebSocketOpenMessageSend(t *testing.T) {
	received := make(chan string, 1)
	srv := consoleServer(t, func(conn *websocket.Conn) {
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"Server started"}`)))
		_, data, err := conn.ReadMessage()
		if err == nil {
			received <- string(data)
		}
		// Drain until the client closes.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	rec := &recorder{}
	sock := NewWebSocket(WebSocketOptions{CloseGrace: time.Second}).Open(context.Background(), wsURL(srv), rec.handle)

	rec.waitFor(t, EventOpened)
	msg := rec.waitFor(t, EventMessage)
	assert.Equal(t, `{"message":"Server started"}`, msg.Data)

	require.NoError(t, sock.Send(`{"command":"list"}`))
	select {
	case got := <-received:
		assert.Equal(t, `{"command":"list"}`, got)
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the command")
	}

	require.NoError(t, sock.Close(CloseNormal, "bye"))
	closed := rec.waitFor(t, EventClosed)
	assert.Equal(t, CloseNormal, closed.Code)
	assert.Equal(t, "bye", closed.Reason)
	assert.Equal(t, 0, rec.count(EventError))
}

func TestWebSocketCloseIsIdempotent(t *testing.T) {
	srv := consoleServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	rec := &recorder{}
	sock := NewWebSocket(WebSocketOptions{}).Open(context.Background(), wsURL(srv), rec.handle)
	rec.waitFor(t, EventOpened)

	require.NoError(t, sock.Close(CloseNormal, "first"))
	require.NoError(t, sock.Close(CloseGoingAway, "second"))

	events := rec.snapshot()
	require.Equal(t, 1, rec.count(EventClosed))
	last := events[len(events)-1]
	assert.Equal(t, EventClosed, last.Kind)
	assert.Equal(t, "first", last.Reason)

	assert.ErrorIs(t, sock.Send("late"), ErrNotOpen)
}

func TestWebSocketSendBeforeOpen(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		conn, err := upgrader.Upgrade(w, r, nil)
		if err == nil {
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)
	// Runs before srv.Close so the blocked handler can return.
	t.Cleanup(func() { close(release) })

	rec := &recorder{}
	sock := NewWebSocket(WebSocketOptions{}).Open(context.Background(), wsURL(srv), rec.handle)
	assert.ErrorIs(t, sock.Send("too early"), ErrNotOpen)

	// Closing while the handshake is pending cancels the dial.
	require.NoError(t, sock.Close(CloseNormal, "done"))
	assert.Equal(t, 0, rec.count(EventOpened))
	assert.Equal(t, 0, rec.count(EventError))
	require.Equal(t, 1, rec.count(EventClosed))
	closed := rec.waitFor(t, EventClosed)
	assert.Equal(t, CloseNormal, closed.Code)
	assert.Equal(t, "done", closed.Reason)
}

func TestWebSocketPeerCloseCode(t *testing.T) {
	srv := consoleServer(t, func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(CloseGoingAway, "server stopping")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_, _, _ = conn.ReadMessage()
	})

	rec := &recorder{}
	NewWebSocket(WebSocketOptions{}).Open(context.Background(), wsURL(srv), rec.handle)

	closed := rec.waitFor(t, EventClosed)
	assert.Equal(t, CloseGoingAway, closed.Code)
	assert.Equal(t, "server stopping", closed.Reason)
	assert.Equal(t, 0, rec.count(EventError))
}

func TestWebSocketAbnormalDrop(t *testing.T) {
	srv := consoleServer(t, func(conn *websocket.Conn) {
		// Drop TCP without a close frame.
		conn.UnderlyingConn().Close()
	})

	rec := &recorder{}
	NewWebSocket(WebSocketOptions{}).Open(context.Background(), wsURL(srv), rec.handle)

	closed := rec.waitFor(t, EventClosed)
	assert.Equal(t, CloseAbnormal, closed.Code)
	assert.Equal(t, "connection lost", closed.Reason)
	assert.Equal(t, 1, rec.count(EventError), "error precedes the close")

	events := rec.snapshot()
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, EventOpened, events[0].Kind)
	assert.Equal(t, EventError, events[len(events)-2].Kind)
	assert.Equal(t, EventClosed, events[len(events)-1].Kind)
}

func TestWebSocketDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	rec := &recorder{}
	NewWebSocket(WebSocketOptions{HandshakeTimeout: time.Second}).Open(context.Background(), url, rec.handle)

	closed := rec.waitFor(t, EventClosed)
	assert.Equal(t, CloseAbnormal, closed.Code)
	assert.Equal(t, 1, rec.count(EventError))
	assert.Equal(t, 0, rec.count(EventOpened))
	assert.Equal(t, 1, rec.count(EventClosed))
}
