package cli

import (
	"fmt"
	"runtime"

	"github.com/vburojevic/rcw/internal/output"
)

// VersionCmd shows version information
type VersionCmd struct{}

// VersionOutput is the ndjson form of the version
type VersionOutput struct {
	Type          string `json:"type"` // version
	SchemaVersion int    `json:"schemaVersion"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	GoVersion     string `json:"go_version"`
}

// Run executes the version command
func (c *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(VersionOutput{
			Type:          "version",
			SchemaVersion: output.SchemaVersion,
			Version:       Version,
			Commit:        Commit,
			GoVersion:     runtime.Version(),
		})
	}
	fmt.Fprintf(globals.Stdout, "rcw version %s (commit: %s)\n", Version, Commit)
	return nil
}
