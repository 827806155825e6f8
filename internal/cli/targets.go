package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/rcw/internal/api"
	"github.com/vburojevic/rcw/internal/credential"
	"github.com/vburojevic/rcw/internal/output"
)

// TargetsCmd lists running targets
type TargetsCmd struct{}

// TargetOutput is one running target in ndjson form
type TargetOutput struct {
	Type          string `json:"type"` // target
	SchemaVersion int    `json:"schemaVersion"`
	Name          string `json:"name"`
	Version       string `json:"version,omitempty"`
	Description   string `json:"description,omitempty"`
	UptimeMS      int64  `json:"uptime_ms"`
	PlayerCount   int    `json:"player_count"`
	MemoryUsage   string `json:"memory_usage,omitempty"`
}

// Run executes the targets command
func (c *TargetsCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	file, err := credentialFile(globals)
	if err != nil {
		return outputErrorCommon(globals, "CREDENTIAL_UNAVAILABLE", err.Error())
	}
	token := credential.Chain{credential.Env("RCW_TOKEN"), file}.Credential()
	if token == "" {
		return outputErrorCommon(globals, "EMPTY_CREDENTIAL", "no stored credential", "run 'rcw login' first")
	}

	targets, err := api.NewClient(globals.Server, globals.Logger()).RunningTargets(ctx, token)
	if errors.Is(err, api.ErrUnauthorized) {
		return outputErrorCommon(globals, "UNAUTHORIZED", err.Error(), "run 'rcw login'")
	}
	if err != nil {
		return outputErrorCommon(globals, "REQUEST_FAILED", err.Error(), "check --server")
	}

	if globals.Format == "ndjson" {
		w := output.NewNDJSONWriter(globals.Stdout)
		for _, t := range targets {
			if err := w.Write(TargetOutput{
				Type:          "target",
				SchemaVersion: output.SchemaVersion,
				Name:          t.Name,
				Version:       t.Version,
				Description:   t.Description,
				UptimeMS:      t.Uptime,
				PlayerCount:   t.PlayerCount,
				MemoryUsage:   t.Memory(),
			}); err != nil {
				return err
			}
		}
		return nil
	}

	if len(targets) == 0 {
		globals.printf("No running targets on %s\n", globals.Server)
		return nil
	}
	table := tablewriter.NewWriter(globals.Stdout)
	table.Header("Name", "Version", "Uptime", "Players", "Description")
	for _, t := range targets {
		if err := table.Append([]string{
			t.Name,
			t.Version,
			formatUptime(t.UptimeDuration()),
			fmt.Sprint(t.PlayerCount),
			t.Description,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// formatUptime renders d as 3d4h, 2h5m or 42s
func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh", days, d/time.Hour)
	case d >= time.Hour:
		return strings.TrimSuffix(d.Truncate(time.Minute).String(), "0s")
	default:
		return d.String()
	}
}

// credentialFile returns the stored credential, at credential_file or
// ~/.rcw/credential
func credentialFile(globals *Globals) (*credential.File, error) {
	path := globals.config().CredentialFile
	if path == "" {
		var err error
		if path, err = credential.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return credential.NewFile(path, globals.Logger()), nil
}
