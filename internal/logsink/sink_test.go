package logsink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vburojevic/rcw/internal/domain"
	"howett.net/plist"
)

type fakeView struct {
	rendered []string
	scrolls  int
	cleared  int
}

func (v *fakeView) Render(line domain.LogLine) { v.rendered = append(v.rendered, line.Text) }
func (v *fakeView) ScrollToBottom()            { v.scrolls++ }
func (v *fakeView) Cleared()                   { v.cleared++ }

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func line(i int, level domain.LogLevel, text string) domain.LogLine {
	return domain.NewLogLine(t0.Add(time.Duration(i)*time.Second), level, text)
}

func TestAppendKeepsOrderAndFansOut(t *testing.T) {
	s := New(true)
	v := &fakeView{}
	s.Attach(v)

	s.Append(line(0, domain.LogLevelInfo, "a"))
	s.Append(line(1, domain.LogLevelCommand, "b"))
	s.Append(line(2, domain.LogLevelInfo, "a"))

	assert.Equal(t, []string{"a", "b", "a"}, v.rendered, "duplicates are kept")
	assert.Equal(t, 3, v.scrolls)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, "b", s.Lines()[1].Text)
}

func TestAutoScrollToggle(t *testing.T) {
	s := New(true)
	v := &fakeView{}
	s.Attach(v)

	assert.False(t, s.ToggleAutoScroll())
	s.Append(line(0, domain.LogLevelInfo, "quiet"))
	assert.Equal(t, 0, v.scrolls, "manual scroll mode leaves the view alone")

	assert.True(t, s.ToggleAutoScroll())
	assert.Equal(t, 1, v.scrolls, "re-enabling jumps to the newest line")

	s.SetAutoScroll(false)
	assert.False(t, s.AutoScroll())
}

func TestClear(t *testing.T) {
	s := New(false)
	v := &fakeView{}
	s.Attach(v)
	s.Append(line(0, domain.LogLevelInfo, "a"))

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, v.cleared)
	assert.False(t, s.AutoScroll(), "clear does not touch the scroll setting")
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	s := New(true)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				s.Append(line(i, domain.LogLevelInfo, fmt.Sprintf("%d-%d", w, i)))
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 2000, s.Len())
}

func TestExportText(t *testing.T) {
	s := New(true)
	s.Append(line(0, domain.LogLevelInfo, "Server started"))
	s.Append(line(1, domain.LogLevelCommand, "say hi"))
	s.Append(line(2, domain.LogLevelWarn, "Can't keep up!"))

	out := s.Export("survival1", t0.Add(time.Hour))
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")

	require.Len(t, lines, 3+TextHeaderLines)
	assert.Equal(t, "# rcw console export", lines[0])
	assert.Equal(t, "# target: survival1", lines[1])
	assert.Equal(t, "# exported: 2026-03-01T13:00:00Z", lines[2])
	assert.Equal(t, "2026-03-01T12:00:00Z [INFO] Server started", lines[3])
	assert.Equal(t, "2026-03-01T12:00:01Z [COMMAND] > say hi", lines[4])
	assert.Equal(t, "2026-03-01T12:00:02Z [WARN] Can't keep up!", lines[5])

	assert.Equal(t, 3, s.Len(), "export leaves the buffer untouched")
}

func TestExportNDJSON(t *testing.T) {
	s := New(true)
	s.Append(line(0, domain.LogLevelInfo, "one"))
	s.Append(line(1, domain.LogLevelError, "two"))

	out, err := s.ExportAs(FormatNDJSON, "survival1", t0)
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader(out))
	var header map[string]interface{}
	require.NoError(t, dec.Decode(&header))
	assert.Equal(t, "export", header["type"])
	assert.Equal(t, "survival1", header["target"])
	assert.EqualValues(t, 2, header["lines"])

	var texts []string
	for dec.More() {
		var m map[string]interface{}
		require.NoError(t, dec.Decode(&m))
		assert.Equal(t, "line", m["type"])
		texts = append(texts, m["text"].(string))
	}
	assert.Equal(t, []string{"one", "two"}, texts)
}

func TestExportPlist(t *testing.T) {
	s := New(true)
	s.Append(line(0, domain.LogLevelInfo, "one"))

	out, err := s.ExportAs(FormatPlist, "survival1", t0)
	require.NoError(t, err)

	var doc map[string]interface{}
	_, err = plist.Unmarshal(out, &doc)
	require.NoError(t, err)
	assert.Equal(t, "survival1", doc["target"])
	lines, ok := doc["lines"].([]interface{})
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, "one", lines[0].(map[string]interface{})["text"])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("NDJSON")
	require.NoError(t, err)
	assert.Equal(t, FormatNDJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("csv")
	assert.Error(t, err)

	assert.Equal(t, ".plist", FormatPlist.Extension())
	assert.Equal(t, ".log", FormatText.Extension())
}
