package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// CommandFrame is the outbound message carrying one operator command
type CommandFrame struct {
	Command string `json:"command"`
}

// EncodeCommand serializes an operator command for the console socket
func EncodeCommand(command string) (string, error) {
	b, err := json.Marshal(CommandFrame{Command: command})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeInbound turns a raw inbound frame into a console line.
// JSON objects carrying a string "message" or "text" field contribute that
// field; every other payload is rendered verbatim.
func DecodeInbound(at time.Time, payload string) LogLine {
	return NewLogLine(at, LogLevelInfo, inboundText(payload))
}

func inboundText(payload string) string {
	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") {
		return payload
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return payload
	}
	for _, key := range []string{"message", "text"} {
		raw, ok := fields[key]
		// null decodes into a string without error, so require a JSON string
		if !ok || len(raw) == 0 || raw[0] != '"' {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return payload
}
