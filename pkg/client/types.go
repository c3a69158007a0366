package client

import "time"

// MessageResponse is returned by start and stop.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse reports the supervisor's last known state.
type StatusResponse struct {
	Running bool `json:"running"`
}

// ServerInfo is the supervisor snapshot from /server/info.
type ServerInfo struct {
	Name      string    `json:"name"`
	Command   string    `json:"command"`
	WorkDir   string    `json:"work_dir"`
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Alive     bool      `json:"alive"`
}

// SystemInfo is the host summary from /system-info.
type SystemInfo struct {
	OS              string `json:"os"`
	Arch            string `json:"arch"`
	TotalMemory     uint64 `json:"total_memory"`
	AvailableMemory uint64 `json:"available_memory"`
	CPUCount        int    `json:"cpu_count"`
	Uptime          uint64 `json:"uptime"`
}

// HistoryEvent is one recorded start or stop.
type HistoryEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Name       string    `json:"name"`
	PID        int       `json:"pid"`
	Command    string    `json:"command"`
}

// URLRequest is the body of /open and /deep-link.
type URLRequest struct {
	URL string `json:"url"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
