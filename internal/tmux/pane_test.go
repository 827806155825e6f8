package tmux

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/rcw/internal/domain"
)

type fakeTmux struct {
	calls [][]string
	err   error
}

func (f *fakeTmux) Command(cmd ...string) (string, error) {
	f.calls = append(f.calls, cmd)
	return "", f.err
}

func newTestManager(ft *fakeTmux) *Manager {
	return &Manager{config: Config{SessionName: "rcw-survival1"}, tmux: ft}
}

func TestSessionNameFor(t *testing.T) {
	assert.Equal(t, "rcw-survival1", SessionNameFor("survival1"))
	assert.Equal(t, "rcw-my-server", SessionNameFor("my server!"))
	assert.Equal(t, "rcw", SessionNameFor("..."))
}

func TestWriteLineRequiresSetup(t *testing.T) {
	m := newTestManager(&fakeTmux{})
	assert.ErrorIs(t, m.WriteLine("x"), ErrNoPaneAvailable)
	assert.ErrorIs(t, m.ClearPane(), ErrNoPaneAvailable)
}

func TestWriteLineSendsEcho(t *testing.T) {
	ft := &fakeTmux{}
	m := newTestManager(ft)
	require.NoError(t, m.Setup())

	require.NoError(t, m.WriteLine("it's up"))
	require.Len(t, ft.calls, 1)
	assert.Equal(t, []string{"send-keys", "-t", "rcw-survival1:0.0", `echo 'it'"'"'s up'`, "Enter"}, ft.calls[0])
}

func TestEscapeTmuxString(t *testing.T) {
	assert.Equal(t, `a\\b`, escapeTmuxString(`a\b`))
	assert.Equal(t, `'"'"'`, escapeTmuxString(`'`))
}

func TestClearPane(t *testing.T) {
	ft := &fakeTmux{}
	m := newTestManager(ft)
	require.NoError(t, m.Setup())
	require.NoError(t, m.ClearPane())
	require.Len(t, ft.calls, 3)
	assert.Equal(t, "clear-history", ft.calls[1][0])
}

func TestSessionBanner(t *testing.T) {
	ft := &fakeTmux{}
	m := newTestManager(ft)
	require.NoError(t, m.Setup())

	start := domain.NewSessionStart(2, "id", "survival1", 1, time.Unix(0, 0))
	require.NoError(t, m.WriteSessionBanner(start, &domain.SessionSummary{TotalLines: 10, Errors: 1}))
	require.Len(t, ft.calls, 4)
	assert.Contains(t, ft.calls[1][3], "SESSION 2: survival1")
	assert.Contains(t, ft.calls[2][3], "Previous: 10 lines, 1 errors")
}

func TestViewStopsAfterFirstError(t *testing.T) {
	ft := &fakeTmux{err: errors.New("no server running")}
	m := newTestManager(ft)
	require.NoError(t, m.Setup())

	var reported []error
	v := NewView(m, func(err error) { reported = append(reported, err) })
	v.Render(domain.LogLine{Text: "a"})
	v.Render(domain.LogLine{Text: "b"})
	v.Cleared()

	assert.Len(t, ft.calls, 1)
	assert.Len(t, reported, 1)
}
