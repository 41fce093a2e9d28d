package orchestrator

import "time"

// Phase names a lifecycle state.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseStarting   Phase = "starting"
	PhaseRunning    Phase = "running"
	PhaseStopping   Phase = "stopping"
	PhaseStopped    Phase = "stopped"
	PhaseError      Phase = "error"
)

// State is one of NotStarted, Starting, Running, Stopping, Stopped or Failed.
// Each variant carries only the fields that are valid in that phase.
type State interface {
	Phase() Phase
}

// NotStarted: admitted and registered, process not spawned yet.
type NotStarted struct{}

// Starting: spawned, readiness banner not seen yet.
type Starting struct {
	PID       int
	StartedAt time.Time
}

// Running: readiness banner seen.
type Running struct {
	PID       int
	StartedAt time.Time
	ReadyAt   time.Time
}

// Stopping: termination requested, exit not observed yet.
type Stopping struct {
	PID         int
	StartedAt   time.Time
	RequestedAt time.Time
}

// Stopped: exit observed. Terminal.
type Stopped struct {
	StartedAt time.Time
	StoppedAt time.Time
	ExitCode  int
	Signal    string
}

// Failed: spawn-level or unexpected runtime failure. PID is 0 when the
// process never started.
type Failed struct {
	PID       int
	StartedAt time.Time
	FailedAt  time.Time
	Err       string
}

func (NotStarted) Phase() Phase { return PhaseNotStarted }
func (Starting) Phase() Phase   { return PhaseStarting }
func (Running) Phase() Phase    { return PhaseRunning }
func (Stopping) Phase() Phase   { return PhaseStopping }
func (Stopped) Phase() Phase    { return PhaseStopped }
func (Failed) Phase() Phase     { return PhaseError }

// live reports whether s holds a process that may still be running.
func live(s State) bool {
	switch s.(type) {
	case Starting, Running, Stopping:
		return true
	}
	return false
}

// terminal reports whether s is an end state.
func terminal(s State) bool {
	switch s.(type) {
	case Stopped, Failed:
		return true
	}
	return false
}

func startedAt(s State) time.Time {
	switch v := s.(type) {
	case Starting:
		return v.StartedAt
	case Running:
		return v.StartedAt
	case Stopping:
		return v.StartedAt
	case Stopped:
		return v.StartedAt
	case Failed:
		return v.StartedAt
	}
	return time.Time{}
}

func pidOf(s State) int {
	switch v := s.(type) {
	case Starting:
		return v.PID
	case Running:
		return v.PID
	case Stopping:
		return v.PID
	case Failed:
		return v.PID
	}
	return 0
}
