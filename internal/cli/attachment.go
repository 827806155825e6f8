package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/rcw/internal/console"
	"github.com/vburojevic/rcw/internal/credential"
	"github.com/vburojevic/rcw/internal/domain"
	"github.com/vburojevic/rcw/internal/logsink"
	"github.com/vburojevic/rcw/internal/output"
	"github.com/vburojevic/rcw/internal/reconnect"
	"github.com/vburojevic/rcw/internal/session"
	"github.com/vburojevic/rcw/internal/status"
	"github.com/vburojevic/rcw/internal/tmux"
	"github.com/vburojevic/rcw/internal/transport"
)

// attachOptions are the resolved inputs of one attach run
type attachOptions struct {
	server       string
	endpoint     transport.Endpoint
	creds        credential.Source
	policy       reconnect.Policy
	opener       transport.Opener
	clock        clock.Clock
	autoScroll   bool
	exportFormat logsink.Format
	outputDir    string
	// lines streams sink lines to stdout; off when the TUI owns the terminal
	lines bool
	// notifier overrides how notices are shown; nil reports them on the
	// command's error channel
	notifier console.Notifier
	// onTransition is called after the attachment has handled a transition
	onTransition func(console.Transition)
}

// attachment wires a console manager to every output of 'rcw attach'
type attachment struct {
	globals *Globals
	opts    attachOptions
	logger  *zap.Logger

	sink       *logsink.Sink
	notifier   console.Notifier
	tracker    *session.Tracker
	mgr        *console.Manager
	dispatcher *console.Dispatcher

	ndjson     *output.NDJSONWriter
	statusText *output.TextWriter
	transcript *transcript
	tmux       *tmux.Manager

	closed chan struct{}
}

func newAttachment(globals *Globals, opts attachOptions) *attachment {
	if opts.clock == nil {
		opts.clock = clock.New()
	}
	a := &attachment{
		globals: globals,
		opts:    opts,
		logger:  globals.Logger(),
		sink:    logsink.New(opts.autoScroll),
		tracker: session.NewTracker(opts.clock),
		closed:  make(chan struct{}, 1),
	}
	if globals.Format == "ndjson" {
		a.ndjson = output.NewNDJSONWriter(globals.Stdout)
	} else {
		a.statusText = output.NewTextWriter(globals.Stderr).WithColor(isTerminal(globals.Stderr))
	}

	// the tracker counts lines before any view renders them
	a.sink.Attach(a.tracker)
	if opts.lines {
		a.sink.Attach(a.lineView())
	}
	if opts.outputDir != "" {
		a.transcript = newTranscript(opts.outputDir)
		a.sink.Attach(a.transcript)
	}

	a.notifier = opts.notifier
	if a.notifier == nil {
		a.notifier = console.NotifierFunc(a.report)
	}
	a.mgr = console.NewManager(
		console.Config{Endpoint: opts.endpoint, Policy: opts.policy, Banners: true},
		opts.opener,
		opts.creds,
		a.sink,
		console.WithClock(opts.clock),
		console.WithLogger(a.logger),
		console.WithNotifier(a.notifier),
		console.WithObserver(a.observe),
	)
	a.dispatcher = console.NewDispatcher(a.mgr, a.sink, a.notifier, opts.clock)
	return a
}

func (a *attachment) lineView() logsink.View {
	v := &output.LineView{
		Target:  func() string { return a.mgr.State().Target },
		Session: a.tracker.CurrentSession,
		OnError: func(err error) { a.logger.Debug("line write failed", zap.Error(err)) },
	}
	if a.ndjson != nil {
		v.NDJSON = a.ndjson
	} else {
		v.Text = output.NewTextWriter(a.globals.Stdout).WithColor(isTerminal(a.globals.Stdout))
	}
	return v
}

// mirrorToTmux attaches a detached tmux session that follows the sink
func (a *attachment) mirrorToTmux(target string) error {
	tm, err := tmux.New(tmux.Config{SessionName: tmux.SessionNameFor(target)})
	if err != nil {
		return err
	}
	if err := tm.Setup(); err != nil {
		return err
	}
	a.tmux = tm
	a.sink.Attach(tmux.NewView(tm, func(err error) {
		a.logger.Debug("tmux mirror disabled", zap.Error(err))
	}))
	if a.ndjson != nil {
		a.ndjson.WriteInfo("tmux session "+tm.SessionName()+": "+tm.AttachCommand(), "")
	} else {
		a.globals.printf("Tmux session: %s\nAttach with: %s\n", tm.SessionName(), tm.AttachCommand())
	}
	return nil
}

// observe runs on the manager loop and must not call back into it
func (a *attachment) observe(tr console.Transition) {
	if change := a.tracker.Observe(tr); change != nil {
		if end := change.EndSession; end != nil {
			if a.ndjson != nil {
				a.ndjson.WriteSessionEnd(end)
			}
			if a.transcript != nil {
				a.transcript.Flush()
			}
		}
		if start := change.StartSession; start != nil {
			a.startSession(start, change.EndSession)
		}
	}

	a.writeStatus(tr)

	switch tr.To.Phase {
	case console.PhaseOpen:
		a.rememberTarget(tr.To.Target)
	case console.PhaseClosed:
		select {
		case a.closed <- struct{}{}:
		default:
		}
	}
	if a.opts.onTransition != nil {
		a.opts.onTransition(tr)
	}
}

func (a *attachment) startSession(start *domain.SessionStart, prev *domain.SessionEnd) {
	if a.ndjson != nil {
		a.ndjson.WriteSessionStart(start)
	}
	if a.transcript != nil {
		path, err := a.transcript.Start(start.Target, start.Session)
		if err != nil {
			a.notifier.Notify(console.Notice{Level: domain.LogLevelError, Code: "TRANSCRIPT_FAILED", Message: err.Error(), Err: err})
		} else {
			a.logger.Debug("transcript", zap.String("path", path), zap.Int("session", start.Session))
		}
	}
	if a.tmux != nil {
		var summary *domain.SessionSummary
		if prev != nil {
			summary = &prev.Summary
		}
		if err := a.tmux.WriteSessionBanner(start, summary); err != nil {
			a.logger.Debug("tmux banner failed", zap.Error(err))
		}
	}
}

func (a *attachment) writeStatus(tr console.Transition) {
	if a.globals.Quiet || !a.opts.lines {
		return
	}
	st := status.Project(tr.To)
	if a.ndjson != nil {
		a.ndjson.WriteStatus(&domain.StatusEvent{
			SessionID: tr.To.SessionID,
			Target:    tr.To.Target,
			State:     st.Kind.String(),
			Label:     st.Label,
			Attempt:   tr.To.Attempt,
			Timestamp: tr.At.UTC().Format(time.RFC3339Nano),
		})
		return
	}
	a.statusText.WriteStatus(st.Label)
}

func (a *attachment) rememberTarget(target string) {
	path, err := defaultResumeStatePath()
	if err != nil {
		a.logger.Debug("resume state unavailable", zap.Error(err))
		return
	}
	if err := saveResumeState(path, newResumeState(target, a.opts.server, a.opts.clock.Now())); err != nil {
		a.logger.Debug("resume state not saved", zap.Error(err))
	}
}

// report shows a notice in line mode
func (a *attachment) report(n console.Notice) {
	if a.ndjson != nil {
		a.ndjson.WriteError(n.Code, n.Message, noticeHints[n.Code])
		return
	}
	reportNotice(a.globals, n)
}

// watchCredential revokes the session when the stored token goes away
func (a *attachment) watchCredential(ctx context.Context, file *credential.File) {
	err := file.Watch(ctx, func() {
		if err := a.mgr.CredentialRevoked(ctx); err != nil {
			a.logger.Debug("credential revoke not delivered", zap.Error(err))
		}
	})
	if err != nil {
		a.logger.Debug("credential watch unavailable", zap.Error(err))
	}
}

// export writes the sink to path, or to a timestamped file in the output
// directory (or cwd) when path is empty
func (a *attachment) export(path string) (string, error) {
	target := a.mgr.State().Target
	at := a.opts.clock.Now()
	data, err := a.sink.ExportAs(a.opts.exportFormat, target, at)
	if err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join(a.opts.outputDir, exportFileName(target, a.opts.exportFormat, at))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// finish closes the manager and reports a still open session
func (a *attachment) finish() {
	if end := a.tracker.FinalSummary("shutdown"); end != nil && a.ndjson != nil {
		a.ndjson.WriteSessionEnd(end)
	}
	_ = a.mgr.Close()
	if a.transcript != nil {
		a.transcript.Close()
	}
}

func exportFileName(target string, format logsink.Format, at time.Time) string {
	return fmt.Sprintf("%s-%s%s", fileSafe(target), at.Format("20060102-150405"), format.Extension())
}

func fileSafe(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, strings.TrimSpace(name))
	if name == "" || strings.Trim(name, ".") == "" {
		return "console"
	}
	return name
}

// transcript writes one file per console session into dir
type transcript struct {
	mu   sync.Mutex
	dir  string
	file *os.File
	w    *bufio.Writer
}

func newTranscript(dir string) *transcript {
	return &transcript{dir: dir}
}

// Start closes the previous session's file and creates the one for session
func (t *transcript) Start(target string, session int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", fmt.Errorf("transcript dir: %w", err)
	}
	path := filepath.Join(t.dir, fmt.Sprintf("%s-session-%d.log", fileSafe(target), session))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("transcript: %w", err)
	}
	t.file = f
	t.w = bufio.NewWriter(f)
	return path, nil
}

func (t *transcript) Render(line domain.LogLine) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w == nil {
		return
	}
	fmt.Fprintln(t.w, line.String())
}

func (t *transcript) ScrollToBottom() {}

// Flush pushes buffered lines to disk
func (t *transcript) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.w != nil {
		t.w.Flush()
	}
}

// Close may be called more than once
func (t *transcript) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
}

func (t *transcript) closeLocked() {
	if t.w != nil {
		t.w.Flush()
		t.w = nil
	}
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
}
