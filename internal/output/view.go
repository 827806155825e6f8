package output

import "github.com/vburojevic/rcw/internal/domain"

// LineView adapts a writer to logsink.View. Write errors are passed to
// OnError when set.
type LineView struct {
	Text    *TextWriter
	NDJSON  *NDJSONWriter
	Target  func() string
	Session func() int
	OnError func(error)
}

func (v *LineView) Render(line domain.LogLine) {
	var err error
	switch {
	case v.NDJSON != nil:
		target, session := "", 0
		if v.Target != nil {
			target = v.Target()
		}
		if v.Session != nil {
			session = v.Session()
		}
		err = v.NDJSON.WriteLine(target, session, line)
	case v.Text != nil:
		err = v.Text.WriteLine(line)
	}
	if err != nil && v.OnError != nil {
		v.OnError(err)
	}
}

// ScrollToBottom is a no-op for streamed output
func (v *LineView) ScrollToBottom() {}
