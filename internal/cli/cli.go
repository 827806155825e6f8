// Package cli implements the rcw commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/vburojevic/rcw/internal/config"
)

// Version and Commit are set at build time
var (
	Version = "dev"
	Commit  = "none"
)

// CLI is the kong command model
type CLI struct {
	Format  string `short:"f" default:"${config_format}" enum:"ndjson,text" help:"Output format for line mode and command output (ndjson, text)"`
	Quiet   bool   `short:"q" help:"Suppress status lines; only console lines and errors are written"`
	Verbose bool   `short:"v" help:"Write JSON debug logs to stderr"`
	Server  string `default:"${config_server}" help:"Server manager base URL"`

	Attach     AttachCmd     `cmd:"" help:"Attach to the live console of a running target"`
	Targets    TargetsCmd    `cmd:"" help:"List running targets"`
	Login      LoginCmd      `cmd:"" help:"Log in and store the console credential"`
	Logout     LogoutCmd     `cmd:"" help:"Remove the stored credential"`
	Config     ConfigCmd     `cmd:"" help:"Show or generate configuration"`
	Schema     SchemaCmd     `cmd:"" help:"Print JSON Schema for ndjson output types"`
	Completion CompletionCmd `cmd:"" help:"Generate shell completions"`
	Version    VersionCmd    `cmd:"" help:"Show version information"`
	Update     UpdateCmd     `cmd:"" help:"Show how to upgrade rcw"`
}

// Globals carries global flags and shared writers into commands
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Server  string
	Stdout  io.Writer
	Stderr  io.Writer
	Stdin   io.Reader
	Config  *config.Config

	logger *zap.Logger
}

// NewGlobalsWithConfig merges parsed flags with the loaded configuration
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Globals{
		Format:  c.Format,
		Quiet:   c.Quiet || cfg.Quiet,
		Verbose: c.Verbose || cfg.Verbose,
		Server:  c.Server,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Stdin:   os.Stdin,
		Config:  cfg,
	}
	if g.Format == "" {
		g.Format = cfg.Format
	}
	if g.Server == "" {
		g.Server = cfg.Server
	}
	return g
}

// Logger returns the debug logger, a no-op unless --verbose is set
func (g *Globals) Logger() *zap.Logger {
	if g.logger == nil {
		g.logger = newDebugLogger(g)
	}
	return g.logger
}

// Debug prints a debug message when verbose mode is on
func (g *Globals) Debug(format string, args ...interface{}) {
	if !g.Verbose {
		return
	}
	g.Logger().Sugar().Debugf(format, args...)
}

func (g *Globals) config() *config.Config {
	if g.Config == nil {
		g.Config = config.Default()
	}
	return g.Config
}

// printf writes a status line to stderr unless quiet
func (g *Globals) printf(format string, args ...interface{}) {
	if g.Quiet {
		return
	}
	fmt.Fprintf(g.Stderr, format, args...)
}
