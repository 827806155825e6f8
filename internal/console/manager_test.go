package console

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/rcw/internal/credential"
	"github.com/vburojevic/rcw/internal/domain"
	"github.com/vburojevic/rcw/internal/logsink"
	"github.com/vburojevic/rcw/internal/reconnect"
	"github.com/vburojevic/rcw/internal/transport"
)

type harness struct {
	m           *Manager
	opener      *fakeOpener
	clock       *clock.Mock
	sink        *logsink.Sink
	notices     *noticeLog
	transitions *transitionLog
}

func newHarness(t *testing.T, creds credential.Source, banners bool) *harness {
	t.Helper()
	h := &harness{
		opener:      &fakeOpener{},
		clock:       clock.NewMock(),
		sink:        logsink.New(true),
		notices:     &noticeLog{},
		transitions: &transitionLog{},
	}
	if creds == nil {
		creds = credential.Static("tok")
	}
	cfg := Config{
		Endpoint: transport.Endpoint{Host: "console.test"},
		Policy:   reconnect.Policy{MaxAttempts: 5, BaseDelay: 3 * time.Second},
		Banners:  banners,
	}
	h.m = NewManager(cfg, h.opener, creds, h.sink,
		WithClock(h.clock),
		WithNotifier(h.notices),
		WithObserver(h.transitions.observe),
	)
	t.Cleanup(func() { h.m.Close() })
	return h
}

// settle waits until every event queued so far has been processed
func (h *harness) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, h.m.do(context.Background(), func() error { return nil }))
}

func (h *harness) waitFor(t *testing.T, want string) {
	t.Helper()
	require.Eventually(t, func() bool { return h.m.State().String() == want }, time.Second, time.Millisecond,
		"state is %s, want %s", h.m.State(), want)
}

func (h *harness) connectOpen(t *testing.T, target string) *fakeSocket {
	t.Helper()
	require.NoError(t, h.m.Connect(context.Background(), target))
	s := h.opener.last()
	require.NotNil(t, s)
	s.accept()
	h.settle(t)
	require.Equal(t, PhaseOpen, h.m.State().Phase)
	return s
}

func TestManagerStartsIdle(t *testing.T) {
	h := newHarness(t, nil, false)
	st := h.m.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, 5, st.MaxAttempts)
	assert.Equal(t, 0, h.opener.dials())
}

func TestConnectOpensAndDeliversMessages(t *testing.T) {
	h := newHarness(t, nil, false)
	ctx := context.Background()

	require.NoError(t, h.m.Connect(ctx, "survival1"))
	assert.Equal(t, PhaseConnecting, h.m.State().Phase)
	s := h.opener.last()
	assert.Equal(t, "ws://console.test/ws/logs/survival1?token=tok", s.url)

	s.accept()
	s.message(`{"message":"Server started"}`)
	h.settle(t)

	st := h.m.State()
	assert.Equal(t, PhaseOpen, st.Phase)
	assert.Equal(t, "survival1", st.Target)
	assert.NotEmpty(t, st.SessionID)

	lines := h.sink.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, domain.LogLevelInfo, lines[0].Level)
	assert.Equal(t, "Server started", lines[0].Text)
	assert.Equal(t, []string{"survival1:connecting", "survival1:open"}, h.transitions.all())
}

func TestMessagesKeepArrivalOrder(t *testing.T) {
	h := newHarness(t, nil, false)
	s := h.connectOpen(t, "survival1")

	s.message("one")
	s.message(`{"text":"two"}`)
	s.message("one")
	h.settle(t)

	texts := make([]string, 0, 3)
	for _, l := range h.sink.Lines() {
		texts = append(texts, l.Text)
	}
	assert.Equal(t, []string{"one", "two", "one"}, texts)
}

func TestAbnormalCloseSchedulesLinearRetry(t *testing.T) {
	h := newHarness(t, nil, false)
	s := h.connectOpen(t, "survival1")

	s.drop(transport.CloseAbnormal)
	h.settle(t)
	assert.Equal(t, "Reconnecting(1)", h.m.State().String())

	h.clock.Add(3*time.Second - time.Millisecond)
	h.settle(t)
	assert.Equal(t, 1, h.opener.dials())

	h.clock.Add(time.Millisecond)
	require.Eventually(t, func() bool { return h.opener.dials() == 2 }, time.Second, time.Millisecond)
	h.waitFor(t, "connecting")
	assert.Equal(t, 1, h.m.State().Attempt)
	assert.Equal(t, "survival1", h.opener.last().target)
}

func TestFiveAbnormalClosesExhaustRetries(t *testing.T) {
	h := newHarness(t, nil, false)
	require.NoError(t, h.m.Connect(context.Background(), "survival1"))

	for attempt := 1; attempt <= 4; attempt++ {
		h.opener.last().drop(transport.CloseAbnormal)
		h.settle(t)
		require.Equal(t, PhaseReconnecting, h.m.State().Phase)
		require.Equal(t, attempt, h.m.State().Attempt)

		h.clock.Add(reconnect.Delay(attempt, 3*time.Second))
		want := attempt + 1
		require.Eventually(t, func() bool { return h.opener.dials() == want }, time.Second, time.Millisecond)
		h.waitFor(t, "connecting")
	}

	h.opener.last().drop(transport.CloseAbnormal)
	h.settle(t)
	assert.Equal(t, "Closed(exhausted)", h.m.State().String())
	assert.Equal(t, []string{"RETRIES_EXHAUSTED"}, h.notices.codes())

	h.clock.Add(time.Hour)
	h.settle(t)
	assert.Equal(t, 5, h.opener.dials())
	assert.Equal(t, "Closed(exhausted)", h.m.State().String())
}

func TestOpenResetsAttemptCount(t *testing.T) {
	h := newHarness(t, nil, false)
	h.connectOpen(t, "survival1").drop(transport.CloseAbnormal)
	h.settle(t)

	h.clock.Add(3 * time.Second)
	require.Eventually(t, func() bool { return h.opener.dials() == 2 }, time.Second, time.Millisecond)
	h.opener.last().accept()
	h.settle(t)
	assert.Equal(t, PhaseOpen, h.m.State().Phase)
	assert.Equal(t, 0, h.m.State().Attempt)

	h.opener.last().drop(transport.CloseGoingAway)
	h.settle(t)
	assert.Equal(t, "Reconnecting(1)", h.m.State().String())
}

func TestDisconnectDuringReconnectingCancelsTimer(t *testing.T) {
	h := newHarness(t, nil, false)
	h.connectOpen(t, "survival1").drop(transport.CloseAbnormal)
	h.settle(t)
	require.Equal(t, "Reconnecting(1)", h.m.State().String())

	require.NoError(t, h.m.Disconnect(context.Background()))
	assert.Equal(t, "Closed(manual)", h.m.State().String())

	h.clock.Add(time.Minute)
	h.settle(t)
	assert.Never(t, func() bool { return h.opener.dials() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, "Closed(manual)", h.m.State().String())
}

func TestManualDisconnectIgnoresTheClose(t *testing.T) {
	h := newHarness(t, nil, false)
	h.connectOpen(t, "survival1")

	require.NoError(t, h.m.Disconnect(context.Background()))
	h.settle(t)
	assert.Equal(t, "Closed(manual)", h.m.State().String())
	assert.Equal(t, []string{"dial survival1", "closed survival1"}, h.opener.events())

	h.clock.Add(time.Hour)
	h.settle(t)
	assert.Equal(t, 1, h.opener.dials())
	assert.Empty(t, h.notices.codes())

	// disconnecting again changes nothing
	require.NoError(t, h.m.Disconnect(context.Background()))
	assert.Equal(t, []string{"survival1:connecting", "survival1:open", "survival1:Closed(manual)"}, h.transitions.all())
}

func TestSwitchTargetClosesOldSocketFirst(t *testing.T) {
	h := newHarness(t, nil, false)
	h.connectOpen(t, "A")

	require.NoError(t, h.m.Connect(context.Background(), "B"))
	h.settle(t)
	assert.Equal(t, []string{"dial A", "closed A", "dial B"}, h.opener.events())
	assert.Equal(t, []string{"A:connecting", "A:open", "A:Closed(manual)", "B:connecting"}, h.transitions.all())

	st := h.m.State()
	assert.Equal(t, PhaseConnecting, st.Phase)
	assert.Equal(t, "B", st.Target)

	h.opener.last().accept()
	h.settle(t)
	assert.Equal(t, PhaseOpen, h.m.State().Phase)
	assert.Equal(t, "B", h.m.State().Target)
}

func TestNewSessionGetsNewID(t *testing.T) {
	h := newHarness(t, nil, false)
	h.connectOpen(t, "A")
	first := h.m.State().SessionID
	h.connectOpen(t, "B")
	assert.NotEqual(t, first, h.m.State().SessionID)
}

func TestStaleSocketEventsAreIgnored(t *testing.T) {
	h := newHarness(t, nil, false)
	ctx := context.Background()
	require.NoError(t, h.m.Connect(ctx, "A"))
	old := h.opener.last()

	// reconnecting to the same target replaces the socket
	require.NoError(t, h.m.Connect(ctx, "A"))
	require.Equal(t, 2, h.opener.dials())

	old.accept()
	old.message("late")
	old.drop(transport.CloseAbnormal)
	h.settle(t)

	assert.Equal(t, PhaseConnecting, h.m.State().Phase)
	assert.Equal(t, 0, h.sink.Len())
}

func TestSwitchToEmptyReturnsToIdle(t *testing.T) {
	h := newHarness(t, nil, false)
	ctx := context.Background()
	h.connectOpen(t, "A")

	require.NoError(t, h.m.Switch(ctx, ""))
	assert.Equal(t, PhaseIdle, h.m.State().Phase)
	assert.Equal(t, []string{"dial A", "closed A"}, h.opener.events())
	assert.ErrorIs(t, h.m.Send(ctx, "{}"), ErrNoTargetSelected)

	require.NoError(t, h.m.Switch(ctx, "B"))
	assert.Equal(t, "B", h.m.State().Target)
}

func TestSendAdmission(t *testing.T) {
	h := newHarness(t, nil, false)
	ctx := context.Background()

	assert.ErrorIs(t, h.m.Send(ctx, "x"), ErrNoTargetSelected)

	require.NoError(t, h.m.Connect(ctx, "A"))
	assert.ErrorIs(t, h.m.Send(ctx, "x"), ErrNotConnected)

	s := h.opener.last()
	s.accept()
	h.settle(t)
	require.NoError(t, h.m.Send(ctx, `{"command":"list"}`))
	assert.Equal(t, []string{`{"command":"list"}`}, s.sentFrames())
}

func TestSendFailureStartsExplicitReconnect(t *testing.T) {
	h := newHarness(t, nil, false)
	s := h.connectOpen(t, "A")
	s.failSends(errors.New("broken pipe"))

	err := h.m.Send(context.Background(), "x")
	require.ErrorIs(t, err, ErrTransientSend)
	assert.Contains(t, err.Error(), "broken pipe")

	assert.Equal(t, []string{"dial A", "closed A", "dial A"}, h.opener.events())
	st := h.m.State()
	assert.Equal(t, PhaseConnecting, st.Phase)
	assert.Equal(t, 0, st.Attempt)
}

func TestConnectPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("empty target", func(t *testing.T) {
		h := newHarness(t, nil, false)
		require.ErrorIs(t, h.m.Connect(ctx, "  "), transport.ErrEmptyTarget)
		assert.Equal(t, PhaseIdle, h.m.State().Phase)
		assert.Equal(t, 0, h.opener.dials())
		assert.Equal(t, []string{"EMPTY_TARGET"}, h.notices.codes())
	})

	t.Run("empty credential", func(t *testing.T) {
		h := newHarness(t, credential.Static(""), false)
		require.ErrorIs(t, h.m.Connect(ctx, "A"), transport.ErrEmptyCredential)
		assert.Equal(t, PhaseIdle, h.m.State().Phase)
		assert.Equal(t, 0, h.opener.dials())
		assert.Equal(t, []string{"EMPTY_CREDENTIAL"}, h.notices.codes())
	})

	t.Run("failed connect keeps current session", func(t *testing.T) {
		h := newHarness(t, nil, false)
		h.connectOpen(t, "A")
		require.ErrorIs(t, h.m.Connect(ctx, ""), transport.ErrEmptyTarget)
		assert.Equal(t, PhaseOpen, h.m.State().Phase)
		assert.Equal(t, "A", h.m.State().Target)
	})
}

func TestCredentialRevokedClosesSession(t *testing.T) {
	h := newHarness(t, nil, false)
	h.connectOpen(t, "A")

	require.NoError(t, h.m.CredentialRevoked(context.Background()))
	assert.Equal(t, "Closed(credential)", h.m.State().String())
	assert.Equal(t, []string{"dial A", "closed A"}, h.opener.events())
	assert.Equal(t, []string{"CREDENTIAL_REVOKED"}, h.notices.codes())

	h.clock.Add(time.Hour)
	h.settle(t)
	assert.Equal(t, 1, h.opener.dials())
}

func TestMissingCredentialOnRetryFinalizes(t *testing.T) {
	creds := &mutableCredential{token: "tok"}
	h := newHarness(t, creds, false)
	h.connectOpen(t, "A").drop(transport.CloseAbnormal)
	h.settle(t)

	creds.set("")
	h.clock.Add(3 * time.Second)
	h.waitFor(t, "Closed(credential)")
	assert.Equal(t, 1, h.opener.dials())
	assert.Equal(t, []string{"EMPTY_CREDENTIAL"}, h.notices.codes())
}

func TestRetryReadsFreshCredential(t *testing.T) {
	creds := &mutableCredential{token: "old"}
	h := newHarness(t, creds, false)
	h.connectOpen(t, "A").drop(transport.CloseAbnormal)
	h.settle(t)

	creds.set("new")
	h.clock.Add(3 * time.Second)
	require.Eventually(t, func() bool { return h.opener.dials() == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, "ws://console.test/ws/logs/A?token=new", h.opener.last().url)
}

func TestBannersAppendLifecycleLines(t *testing.T) {
	h := newHarness(t, nil, true)
	h.connectOpen(t, "A").drop(transport.CloseAbnormal)
	h.settle(t)
	require.NoError(t, h.m.Disconnect(context.Background()))

	lines := h.sink.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, domain.LogLevelInfo, lines[0].Level)
	assert.Equal(t, "Connected to console of A", lines[0].Text)
	assert.Equal(t, domain.LogLevelWarn, lines[1].Level)
	assert.Equal(t, "Connection to A closed (code 1006)", lines[1].Text)
	assert.Equal(t, "Disconnected from A", lines[2].Text)
}

func TestCloseIsIdempotentAndFinal(t *testing.T) {
	h := newHarness(t, nil, false)
	h.connectOpen(t, "A")

	require.NoError(t, h.m.Close())
	require.NoError(t, h.m.Close())
	assert.Equal(t, []string{"dial A", "closed A"}, h.opener.events())
	assert.ErrorIs(t, h.m.Connect(context.Background(), "B"), ErrClosed)
}

func TestStateTransitionTable(t *testing.T) {
	assert.True(t, canTransition(PhaseIdle, PhaseConnecting))
	assert.True(t, canTransition(PhaseReconnecting, PhaseConnecting))
	assert.True(t, canTransition(PhaseClosed, PhaseIdle))
	assert.False(t, canTransition(PhaseIdle, PhaseOpen))
	assert.False(t, canTransition(PhaseReconnecting, PhaseOpen))
	assert.False(t, canTransition(PhaseOpen, PhaseIdle))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "NOT_CONNECTED", Code(ErrNotConnected))
	assert.Equal(t, "NOT_CONNECTED", Code(transport.ErrNotOpen))
	assert.Equal(t, "SEND_FAILED", Code(errors.Join(ErrTransientSend, errors.New("x"))))
	assert.Equal(t, "CONSOLE_ERROR", Code(errors.New("boom")))
	assert.Empty(t, Code(nil))
}
