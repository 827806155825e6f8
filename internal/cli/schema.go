package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// SchemaCmd outputs JSON Schema for rcw ndjson output types
type SchemaCmd struct {
	Type []string `short:"t" help:"Output types to include (line,status,ready,session_start,session_end,error,info,target). Default: all"`
	List bool     `help:"List the output types instead of printing schemas"`
}

// schemaTypes is the order types are listed and emitted in
var schemaTypes = []string{"line", "status", "ready", "session_start", "session_end", "error", "info", "target"}

var schemaDescriptions = map[string]string{
	"line":          "Console line from the target or an echoed command",
	"status":        "Connection state change",
	"ready":         "Attach set up, written before the first connect",
	"session_start": "Console session opened",
	"session_end":   "Console session closed, with line counts",
	"error":         "Error or console notice",
	"info":          "Non-error notice, such as a completed export",
	"target":        "Running target from 'rcw targets'",
}

// Run executes the schema command
func (c *SchemaCmd) Run(globals *Globals) error {
	if c.List {
		c.outputTextHelp(globals)
		return nil
	}

	schemas := map[string]map[string]interface{}{
		"line":          lineSchema(),
		"status":        statusSchema(),
		"ready":         readySchema(),
		"session_start": sessionStartSchema(),
		"session_end":   sessionEndSchema(),
		"error":         errorSchema(),
		"info":          infoSchema(),
		"target":        targetSchema(),
	}

	typesToOutput := lo.Uniq(lo.Map(c.Type, func(t string, _ int) string {
		return strings.ToLower(strings.TrimSpace(t))
	}))
	if len(typesToOutput) == 0 {
		typesToOutput = schemaTypes
	}

	output := map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"title":       "rcw Output Schemas",
		"description": "JSON Schema definitions for all rcw NDJSON output types",
		"definitions": lo.PickByKeys(schemas, typesToOutput),
	}

	encoder := json.NewEncoder(globals.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func constProp(value string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "const": value}
}

func timestampProp(description string) map[string]interface{} {
	p := prop("string", description)
	p["format"] = "date-time"
	return p
}

func object(title, description string, props map[string]interface{}, required ...string) map[string]interface{} {
	props["schemaVersion"] = prop("integer", "Output schema version")
	return map[string]interface{}{
		"type":        "object",
		"title":       title,
		"description": description,
		"properties":  props,
		"required":    required,
	}
}

func lineSchema() map[string]interface{} {
	return object("Console Line", "A single line of the console", map[string]interface{}{
		"type":      constProp("line"),
		"target":    prop("string", "Target the line belongs to"),
		"session":   prop("integer", "Session number the line arrived in"),
		"timestamp": timestampProp("ISO8601 time the line was received"),
		"level": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"info", "warn", "error", "command"},
			"description": "command marks an echoed operator command",
		},
		"text": prop("string", "Line text"),
	}, "type", "timestamp", "level", "text")
}

func statusSchema() map[string]interface{} {
	return object("Status", "Connection state change", map[string]interface{}{
		"type":       constProp("status"),
		"session_id": prop("string", "Manager session id"),
		"target":     prop("string", "Selected target"),
		"state": map[string]interface{}{
			"type": "string",
			"enum": []string{"connected", "connecting", "disconnected"},
		},
		"label":     prop("string", "Human-readable status"),
		"attempt":   prop("integer", "Consecutive failed attempts"),
		"timestamp": timestampProp("ISO8601 time of the change"),
	}, "type", "state", "label", "timestamp")
}

func readySchema() map[string]interface{} {
	return object("Ready", "Attach is set up", map[string]interface{}{
		"type":        constProp("ready"),
		"timestamp":   timestampProp("ISO8601 start time"),
		"server":      prop("string", "Server base URL"),
		"target":      prop("string", "Target that will be connected, if any"),
		"auto_scroll": prop("boolean", "Initial auto-scroll setting"),
	}, "type", "timestamp", "server")
}

func sessionStartSchema() map[string]interface{} {
	return object("Session Start", "A console session opened", map[string]interface{}{
		"type":       constProp("session_start"),
		"alert":      constProp("RECONNECTED"),
		"session":    prop("integer", "Session number (1, 2, 3...)"),
		"session_id": prop("string", "Manager session id"),
		"target":     prop("string", "Target"),
		"attempts":   prop("integer", "Failed attempts before the session opened"),
		"timestamp":  timestampProp("ISO8601 open time"),
	}, "type", "session", "session_id", "target", "timestamp")
}

func sessionEndSchema() map[string]interface{} {
	return object("Session End", "A console session closed", map[string]interface{}{
		"type":    constProp("session_end"),
		"session": prop("integer", "Session number that ended"),
		"target":  prop("string", "Target"),
		"reason": map[string]interface{}{
			"type": "string",
			"enum": []string{"manual", "exhausted", "credential", "dropped", "reconnect", "switched", "shutdown"},
		},
		"summary": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"total_lines":      prop("integer", "Lines received or sent"),
				"commands":         prop("integer", "Commands sent"),
				"errors":           prop("integer", "Error lines"),
				"warnings":         prop("integer", "Warning lines"),
				"duration_seconds": prop("integer", "Session length"),
			},
		},
	}, "type", "session", "target", "reason", "summary")
}

func errorSchema() map[string]interface{} {
	return object("Error", "Error message from rcw", map[string]interface{}{
		"type": constProp("error"),
		"code": map[string]interface{}{
			"type":        "string",
			"description": "Error code",
			"enum": []string{
				"NO_TARGET",
				"NOT_CONNECTED",
				"SEND_FAILED",
				"RETRIES_EXHAUSTED",
				"CREDENTIAL_REVOKED",
				"EMPTY_TARGET",
				"EMPTY_CREDENTIAL",
				"MANAGER_CLOSED",
				"CONSOLE_ERROR",
				"INVALID_FLAGS",
				"INVALID_SERVER",
				"INVALID_CONFIG",
				"UNAUTHORIZED",
				"REQUEST_FAILED",
				"LOGIN_FAILED",
				"LOGOUT_FAILED",
				"CREDENTIAL_UNAVAILABLE",
				"TUI_FAILED",
				"EXPORT_FAILED",
				"TRANSCRIPT_FAILED",
				"UNKNOWN_COMMAND",
			},
		},
		"message": prop("string", "Human-readable error description"),
		"hint":    prop("string", "Suggested next step"),
	}, "type", "code", "message")
}

func infoSchema() map[string]interface{} {
	return object("Info", "Non-error notice", map[string]interface{}{
		"type":    constProp("info"),
		"message": prop("string", "Notice text"),
		"path":    prop("string", "File the notice refers to"),
	}, "type", "message")
}

func targetSchema() map[string]interface{} {
	return object("Target", "A running target", map[string]interface{}{
		"type":         constProp("target"),
		"name":         prop("string", "Target name, used by 'rcw attach'"),
		"version":      prop("string", "Server version"),
		"description":  prop("string", "Target description"),
		"uptime_ms":    prop("integer", "Uptime in milliseconds"),
		"player_count": prop("integer", "Connected players"),
		"memory_usage": prop("string", "Memory usage as reported by the server, e.g. N/A"),
	}, "type", "name")
}

// outputTextHelp prints a quick reference of the output types
func (c *SchemaCmd) outputTextHelp(globals *Globals) {
	fmt.Fprintln(globals.Stdout, "rcw Output Types:")
	fmt.Fprintln(globals.Stdout, "")
	for _, t := range schemaTypes {
		fmt.Fprintf(globals.Stdout, "  %-13s - %s\n", t, schemaDescriptions[t])
	}
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Use --type to filter: rcw schema --type line,status")
}
