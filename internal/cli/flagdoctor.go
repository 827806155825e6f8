package cli

import "github.com/vburojevic/rcw/internal/logsink"

// validateFlags centralizes common flag combinations to keep behavior consistent.
func validateFlags(globals *Globals, interactive bool, exportFormat string) error {
	if _, err := logsink.ParseFormat(exportFormat); err != nil {
		return outputErrorCommon(globals, "INVALID_FLAGS", err.Error(), "use --export-format text, ndjson or plist")
	}
	// the TUI owns the terminal; ndjson needs line mode
	if interactive && globals != nil && globals.Format == "ndjson" {
		return outputErrorCommon(globals, "INVALID_FLAGS", "the interactive UI requires text output", "add --no-tui or use --format text")
	}
	// quiet + text hides the only feedback a human gets about connection state
	if globals != nil && globals.Format == "text" && globals.Quiet && interactive {
		return outputErrorCommon(globals, "INVALID_FLAGS", "--quiet is only supported with --no-tui", "drop --quiet or add --no-tui")
	}
	return nil
}
