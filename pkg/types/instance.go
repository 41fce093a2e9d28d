package types

import "time"

// Ports is the UDP/TCP/HTTP triple bound by a server instance.
type Ports struct {
	// example: 9600
	UDP int `json:"udp" example:"9600"`
	// example: 9600
	TCP int `json:"tcp" example:"9600"`
	// example: 8081
	HTTP int `json:"http" example:"8081"`
}

// InstanceStatus is a point-in-time view of one managed server process.
type InstanceStatus struct {
	// Preset the instance was started from.
	PresetID string `json:"preset_id" example:"3f1c2a9e-1b7d-4c55-9a54-0d7f8f0e2c11"`
	// Lifecycle phase: not_started, starting, running, stopping, stopped, error.
	// example: running
	State string `json:"state" example:"running"`
	// OS process id (0 before spawn and after exit).
	PID   int   `json:"pid,omitempty" example:"12345"`
	Ports Ports `json:"ports"`
	// Start time (unix seconds); zero before spawn.
	StartedAt int64 `json:"started_at_unix,omitempty" example:"1700000000"`
	// Time the readiness banner was seen (unix seconds).
	ReadyAt int64 `json:"ready_at_unix,omitempty"`
	// Exit time (unix seconds), once known.
	StoppedAt int64 `json:"stopped_at_unix,omitempty"`
	// Exit code, once known. -1 when terminated by a signal.
	ExitCode *int `json:"exit_code,omitempty"`
	// Terminating signal, when the process was killed by one.
	Signal string `json:"signal,omitempty"`
	// Last error recorded on the instance.
	LastError string `json:"last_error,omitempty"`
	// Seconds since start while the process is alive.
	UptimeSeconds int64 `json:"uptime_seconds,omitempty"`
}

// LogLine is one captured line of process output.
type LogLine struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// LogsResponse holds the tail of both output streams.
type LogsResponse struct {
	PresetID string    `json:"preset_id"`
	Stdout   []LogLine `json:"stdout"`
	Stderr   []LogLine `json:"stderr"`
}

// StopResult is the per-instance outcome of a stop-all fan-out.
type StopResult struct {
	PresetID string `json:"preset_id"`
	Stopped  bool   `json:"stopped"`
	Error    string `json:"error,omitempty"`
}

// StopAllResponse is returned by POST /api/instances/stop-all.
type StopAllResponse struct {
	Results []StopResult `json:"results"`
}
