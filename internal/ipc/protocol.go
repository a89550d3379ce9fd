// Package ipc implements the newline-delimited JSON control channel between
// the CLI and the listening session.
package ipc

// Control commands understood by a listening session.
const (
	CommandStatus = "status"
	CommandWake   = "wake"
	CommandCancel = "cancel"
)

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool           `json:"ok"`
	State   string         `json:"state,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
	Session *SessionStatus `json:"session,omitempty"`
}

// SessionStatus describes the listening session answering a status request.
type SessionStatus struct {
	ID           string `json:"id"`
	Profile      string `json:"profile,omitempty"`
	LastActivity string `json:"last_activity,omitempty"`
	TimeoutMS    int64  `json:"timeout_ms"`
	InFlight     bool   `json:"in_flight"`
}
