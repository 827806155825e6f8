package cli

import (
	"errors"
	"fmt"

	"github.com/vburojevic/rcw/internal/console"
	"github.com/vburojevic/rcw/internal/output"
)

// outputErrorCommon normalizes error emission across commands, respecting
// ndjson vs text formats so scripted callers always get machine-readable failures.
func outputErrorCommon(globals *Globals, code, message string, hint ...string) error {
	if globals != nil && globals.Format == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteError(code, message, hint...)
	} else if globals != nil {
		fmt.Fprintf(globals.Stderr, "Error [%s]: %s", code, message)
		if len(hint) > 0 && hint[0] != "" {
			fmt.Fprintf(globals.Stderr, " (hint: %s)", hint[0])
		}
		fmt.Fprintln(globals.Stderr)
	}
	return errors.New(message)
}

// noticeHints maps notice codes to a next step for the operator
var noticeHints = map[string]string{
	"NO_TARGET":          "pick a target with /connect <target>",
	"NOT_CONNECTED":      "wait for the connection or run /connect",
	"SEND_FAILED":        "the console is reconnecting; retry the command",
	"RETRIES_EXHAUSTED":  "run /connect to try again",
	"CREDENTIAL_REVOKED": "run 'rcw login' and /connect",
	"EMPTY_CREDENTIAL":   "run 'rcw login' first",
	"EMPTY_TARGET":       "run 'rcw targets' to list running targets",
}

// reportNotice renders a console notice the same way command errors are
func reportNotice(globals *Globals, n console.Notice) {
	_ = outputErrorCommon(globals, n.Code, n.Message, noticeHints[n.Code])
}
