package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/vburojevic/rcw/internal/console"
	"github.com/vburojevic/rcw/internal/credential"
	"github.com/vburojevic/rcw/internal/logsink"
	"github.com/vburojevic/rcw/internal/status"
	"github.com/vburojevic/rcw/internal/transport"
	"github.com/vburojevic/rcw/internal/tui"
)

// AttachCmd attaches to the live console of a running target
type AttachCmd struct {
	Target       string        `arg:"" optional:"" help:"Target to attach to (default: defaults.target, then the last attached target)"`
	NoTUI        bool          `name:"no-tui" help:"Stream lines to stdout and read commands from stdin instead of the interactive UI"`
	OutputDir    string        `short:"o" type:"path" help:"Write one transcript file per session into this directory; also the /export directory"`
	Tmux         bool          `default:"${config_tmux}" help:"Mirror the console into a detached tmux session"`
	ExportFormat string        `default:"${config_export_format}" enum:"text,ndjson,plist" help:"Format written by /export (text, ndjson, plist)"`
	NoAutoScroll bool          `help:"Start with auto-scroll off"`
	MaxAttempts  int           `help:"Connection attempts, including the first, before giving up (default from config)"`
	BaseDelay    time.Duration `help:"Base reconnect delay, multiplied by the attempt number (default from config)"`

	opener transport.Opener
}

// Run executes the attach command
func (c *AttachCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := globals.config()
	interactive := !c.NoTUI && isTerminal(globals.Stdin) && isTerminal(globals.Stdout)
	if err := validateFlags(globals, interactive, c.ExportFormat); err != nil {
		return err
	}
	format, _ := logsink.ParseFormat(c.ExportFormat)

	endpoint, err := transport.ParseEndpoint(globals.Server)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_SERVER", err.Error(), "set --server or server in .rcw.yaml")
	}
	policy, err := cfg.Policy()
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error())
	}
	if c.MaxAttempts > 0 {
		policy.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelay > 0 {
		policy.BaseDelay = c.BaseDelay
	}

	file, err := credentialFile(globals)
	if err != nil {
		return outputErrorCommon(globals, "CREDENTIAL_UNAVAILABLE", err.Error())
	}

	opener := c.opener
	if opener == nil {
		opener = transport.NewWebSocket(transport.WebSocketOptions{Logger: globals.Logger()})
	}

	target := c.resolveTarget(globals)
	globals.Debug("attach target=%q server=%s interactive=%v", target, globals.Server, interactive)

	opts := attachOptions{
		server:       globals.Server,
		endpoint:     endpoint,
		creds:        credential.Chain{credential.Env("RCW_TOKEN"), file},
		policy:       policy,
		opener:       opener,
		autoScroll:   !c.NoAutoScroll && cfg.Defaults.AutoScroll,
		exportFormat: format,
		outputDir:    c.OutputDir,
		lines:        !interactive,
	}
	var bridge *tui.Bridge
	if interactive {
		bridge = tui.NewBridge()
		opts.notifier = bridge
		opts.onTransition = bridge.Observe
	}

	a := newAttachment(globals, opts)
	defer a.finish()
	if bridge != nil {
		a.sink.Attach(bridge)
	}

	if credential.Env("RCW_TOKEN").Credential() == "" {
		a.watchCredential(ctx, file)
	}
	if c.Tmux {
		if err := a.mirrorToTmux(target); err != nil {
			globals.printf("Warning: tmux mirror unavailable: %v\n", err)
		}
	}

	if a.ndjson != nil && !globals.Quiet {
		a.ndjson.WriteReady(time.Now().UTC().Format(time.RFC3339), globals.Server, target, a.sink.AutoScroll())
	}
	if target != "" {
		// failures are reported through the notifier
		_ = a.mgr.Connect(ctx, target)
	}

	if interactive {
		return c.runTUI(ctx, globals, a, bridge, target)
	}
	return c.runLines(ctx, globals, a)
}

// resolveTarget picks the argument, then the configured default, then the
// last target attached on this server
func (c *AttachCmd) resolveTarget(globals *Globals) string {
	if t := strings.TrimSpace(c.Target); t != "" {
		return t
	}
	if t := strings.TrimSpace(globals.config().Defaults.Target); t != "" {
		return t
	}
	t, at := lastTarget(globals.Server)
	if t != "" {
		globals.Debug("resuming last target %s (attached %s)", t, at.Format(time.RFC3339))
	}
	return t
}

func (c *AttachCmd) runTUI(ctx context.Context, globals *Globals, a *attachment, bridge *tui.Bridge, target string) error {
	model := tui.New(tui.Options{
		Server:     globals.Server,
		Target:     target,
		Controller: a.mgr,
		Submitter:  a.dispatcher,
		Sink:       a.sink,
		Bridge:     bridge,
		Export:     a.export,
	})
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(globals.Stdin),
		tea.WithOutput(globals.Stdout),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return outputErrorCommon(globals, "TUI_FAILED", err.Error())
	}
	return nil
}

// runLines streams the console to stdout and reads input lines from stdin.
// It returns on /quit, on a signal, or once stdin is exhausted and the
// session is closed.
func (c *AttachCmd) runLines(ctx context.Context, globals *Globals, a *attachment) error {
	input := readLines(ctx, globals.Stdin)
	stdinDone := false
	for {
		if stdinDone && !active(a.mgr.State()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-a.closed:
		case raw, ok := <-input:
			if !ok {
				stdinDone = true
				input = nil
				continue
			}
			if quit := c.handleLine(ctx, globals, a, raw); quit {
				return nil
			}
		}
	}
}

// active reports whether the console is open or still trying to open
func active(s console.State) bool {
	switch s.Phase {
	case console.PhaseConnecting, console.PhaseOpen, console.PhaseReconnecting:
		return true
	default:
		return false
	}
}

func readLines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// handleLine runs one input line and reports whether the operator quit
func (c *AttachCmd) handleLine(ctx context.Context, globals *Globals, a *attachment, raw string) bool {
	action, arg := console.ParseAction(raw)
	switch action {
	case console.ActionCommand:
		_ = a.dispatcher.Submit(ctx, arg)
	case console.ActionConnect:
		target := arg
		if target == "" {
			target = a.mgr.State().Target
		}
		if target == "" {
			target = c.resolveTarget(globals)
		}
		_ = a.mgr.Connect(ctx, target)
	case console.ActionDisconnect:
		_ = a.mgr.Disconnect(ctx)
	case console.ActionClear:
		a.sink.Clear()
	case console.ActionAutoScroll:
		on := a.sink.ToggleAutoScroll()
		c.info(globals, a, fmt.Sprintf("auto-scroll %s", onOff(on)), "")
	case console.ActionExport:
		path, err := a.export(arg)
		if err != nil {
			_ = outputErrorCommon(globals, "EXPORT_FAILED", err.Error())
			break
		}
		c.info(globals, a, "exported console", path)
	case console.ActionStatus:
		c.info(globals, a, status.Project(a.mgr.State()).Label, "")
	case console.ActionHelp:
		c.info(globals, a, console.ActionUsage, "")
	case console.ActionQuit:
		return true
	default:
		_ = outputErrorCommon(globals, "UNKNOWN_COMMAND", fmt.Sprintf("unknown command /%s", arg), "try /help")
	}
	return false
}

func (c *AttachCmd) info(globals *Globals, a *attachment, message, path string) {
	if a.ndjson != nil {
		a.ndjson.WriteInfo(message, path)
		return
	}
	if path != "" {
		message += ": " + path
	}
	fmt.Fprintln(globals.Stderr, message)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// isTerminal reports whether v is a terminal file
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
