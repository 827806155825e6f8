package console

import "github.com/vburojevic/rcw/internal/domain"

// Notice is an operator-facing failure or status message
type Notice struct {
	Level   domain.LogLevel
	Code    string
	Message string
	Err     error
}

// Notifier is the single channel every failure is reported through
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LineSink receives console lines in order
type LineSink interface {
	Append(domain.LogLine)
}

// Observer is called on every state transition, from the manager's loop.
// Observers must not call back into the manager synchronously.
type Observer func(Transition)

func noticeFor(err error) Notice {
	return Notice{Level: domain.LogLevelError, Code: Code(err), Message: err.Error(), Err: err}
}

type discardSink struct{}

func (discardSink) Append(domain.LogLine) {}

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}
