package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/rcw/internal/cli"
	"github.com/vburojevic/rcw/internal/config"
)

const quickStart = `rcw - remote console for managed game servers

Quick start:
  rcw login -u USER                     Store a console credential
  rcw targets                           List running targets
  rcw attach TARGET                     Open the interactive console
  rcw attach TARGET --no-tui -f ndjson  Stream the console as NDJSON

For help:
  rcw --help                            All commands and flags
  rcw schema --list                     NDJSON output types
  eval "$(rcw completion bash)"         Shell completion (bash, zsh, fish)
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config values become flag defaults; explicit flags still win
	vars := kong.Vars{
		"config_format":        cfg.Format,
		"config_server":        cfg.Server,
		"config_tmux":          strconv.FormatBool(cfg.Defaults.Tmux),
		"config_export_format": cfg.Defaults.ExportFormat,
	}

	ctx := kong.Parse(&c,
		kong.Name("rcw"),
		kong.Description("rcw: attach to the live console of a running server\n\nInput starting with / is a local command; run /help inside a console"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	if err != nil {
		os.Exit(1)
	}
}
