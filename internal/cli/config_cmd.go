package cli

import (
	"fmt"

	"github.com/vburojevic/rcw/internal/config"
	"github.com/vburojevic/rcw/internal/output"
)

// ConfigCmd shows or generates configuration
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"1" help:"Show the effective configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show which config file is used"`
	Generate ConfigGenerateCmd `cmd:"" help:"Print a sample config file"`
}

// ConfigShowCmd prints the effective configuration
type ConfigShowCmd struct{}

// ConfigOutput is the ndjson form of the configuration
type ConfigOutput struct {
	Type          string                 `json:"type"` // config
	SchemaVersion int                    `json:"schemaVersion"`
	File          string                 `json:"file,omitempty"`
	Format        string                 `json:"format"`
	Quiet         bool                   `json:"quiet"`
	Verbose       bool                   `json:"verbose"`
	Server        string                 `json:"server"`
	Credential    string                 `json:"credential_file,omitempty"`
	Reconnect     config.ReconnectConfig `json:"reconnect"`
	Defaults      config.DefaultsConfig  `json:"defaults"`
}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.config()
	file := config.ConfigFile()

	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(ConfigOutput{
			Type:          "config",
			SchemaVersion: output.SchemaVersion,
			File:          file,
			Format:        cfg.Format,
			Quiet:         cfg.Quiet,
			Verbose:       cfg.Verbose,
			Server:        cfg.Server,
			Credential:    cfg.CredentialFile,
			Reconnect:     cfg.Reconnect,
			Defaults:      cfg.Defaults,
		})
	}

	w := globals.Stdout
	fmt.Fprintln(w, "Current Configuration:")
	if file != "" {
		fmt.Fprintf(w, "  file:            %s\n", file)
	}
	fmt.Fprintf(w, "  format:          %s\n", cfg.Format)
	fmt.Fprintf(w, "  quiet:           %v\n", cfg.Quiet)
	fmt.Fprintf(w, "  verbose:         %v\n", cfg.Verbose)
	fmt.Fprintf(w, "  server:          %s\n", cfg.Server)
	if cfg.CredentialFile != "" {
		fmt.Fprintf(w, "  credential_file: %s\n", cfg.CredentialFile)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reconnect:")
	fmt.Fprintf(w, "  max_attempts:    %d\n", cfg.Reconnect.MaxAttempts)
	fmt.Fprintf(w, "  base_delay:      %s\n", cfg.Reconnect.BaseDelay)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Defaults:")
	if cfg.Defaults.Target != "" {
		fmt.Fprintf(w, "  target:          %s\n", cfg.Defaults.Target)
	}
	fmt.Fprintf(w, "  auto_scroll:     %v\n", cfg.Defaults.AutoScroll)
	fmt.Fprintf(w, "  export_format:   %s\n", cfg.Defaults.ExportFormat)
	fmt.Fprintf(w, "  tmux:            %v\n", cfg.Defaults.Tmux)
	return nil
}

// ConfigPathCmd prints the config file in use
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	file := config.ConfigFile()
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(map[string]interface{}{
			"type":          "config_path",
			"schemaVersion": output.SchemaVersion,
			"path":          file,
			"found":         file != "",
		})
	}
	if file == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found (using defaults)")
		fmt.Fprintln(globals.Stdout, "Create one with: rcw config generate > .rcw.yaml")
		return nil
	}
	fmt.Fprintf(globals.Stdout, "Config file: %s\n", file)
	return nil
}

// ConfigGenerateCmd prints a sample config file
type ConfigGenerateCmd struct{}

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	data, err := config.Default().YAML()
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error())
	}
	fmt.Fprintln(globals.Stdout, "# rcw configuration file")
	fmt.Fprintln(globals.Stdout, "# Place as .rcw.yaml in a project, ~/.config/rcw/rcw.yaml or ~/rcw.yaml")
	fmt.Fprintln(globals.Stdout)
	_, err = globals.Stdout.Write(data)
	return err
}
