package model

// WebSocket message types
const (
	WSMessageTypeState    = "state"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStateMessage announces a task state transition
type WSStateMessage struct {
	Type     string    `json:"type"`
	TaskID   string    `json:"task_id"`
	State    TaskState `json:"state"`
	Progress float64   `json:"progress"`
}

// WSCompleteMessage carries the candidate produced by a succeeded task
type WSCompleteMessage struct {
	Type      string     `json:"type"`
	TaskID    string     `json:"task_id"`
	Candidate *Candidate `json:"candidate"`
}

// WSErrorMessage carries the structured error of a failed task
type WSErrorMessage struct {
	Type   string    `json:"type"`
	TaskID string    `json:"task_id"`
	Error  TaskError `json:"error"`
}
