package models

// WSMessage is the envelope of every message pushed to websocket clients.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	WSTypeAuth            = "auth"
	WSTypeSessionSnapshot = "session_snapshot"
	WSTypeSessionStopped  = "session_stopped"
	WSTypeError           = "error"
)
