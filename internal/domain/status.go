package domain

// StatusEvent describes a connection state change in ndjson output.
type StatusEvent struct {
	Type          string `json:"type"` // status
	SchemaVersion int    `json:"schemaVersion"`
	SessionID     string `json:"session_id,omitempty"`
	Target        string `json:"target,omitempty"`
	State         string `json:"state"` // connected, connecting, disconnected
	Label         string `json:"label"`
	Attempt       int    `json:"attempt,omitempty"`
	Timestamp     string `json:"timestamp"`
}
