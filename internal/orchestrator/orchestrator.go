package orchestrator

import (
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"acmanager/internal/acconfig"
	"acmanager/internal/apperr"
	"acmanager/pkg/types"
)

// Orchestrator owns the registry of server instances keyed by preset id.
// All registry reads and writes happen under mu; blocking work (spawning,
// waiting for exit) never holds it.
type Orchestrator struct {
	mu        sync.Mutex
	instances map[string]*instance
	cfg       Config
	log       zerolog.Logger
}

type instance struct {
	presetID string
	ports    acconfig.Ports
	state    State
	cmd      *exec.Cmd
	stdout   *LogBuffer
	stderr   *LogBuffer
	// done is closed once the exit has been recorded.
	done    chan struct{}
	lastErr string
}

// New constructs an Orchestrator. cfg.Writer is required for Start.
func New(cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		instances: make(map[string]*instance),
		cfg:       cfg,
		log:       cfg.Logger.With().Str("component", "orchestrator").Logger(),
	}
}

// GetStatus returns the status of presetID and whether it is registered.
func (o *Orchestrator) GetStatus(presetID string) (types.InstanceStatus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	inst, ok := o.instances[presetID]
	if !ok {
		return types.InstanceStatus{}, false
	}
	return inst.status(time.Now()), true
}

// GetAllStatuses returns every registered instance ordered by preset id.
func (o *Orchestrator) GetAllStatuses() []types.InstanceStatus {
	o.mu.Lock()
	now := time.Now()
	out := make([]types.InstanceStatus, 0, len(o.instances))
	for _, inst := range o.instances {
		out = append(out, inst.status(now))
	}
	o.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].PresetID < out[j].PresetID })
	return out
}

// IsLive reports whether presetID has a process that is starting, running
// or stopping.
func (o *Orchestrator) IsLive(presetID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	inst, ok := o.instances[presetID]
	return ok && live(inst.state)
}

// GetLogs returns up to the last n lines of each stream. n <= 0 returns the
// whole buffer. Unregistered instances yield NotFound; a registered instance
// with no output yields empty, non-nil slices.
func (o *Orchestrator) GetLogs(presetID string, n int) (types.LogsResponse, error) {
	o.mu.Lock()
	inst, ok := o.instances[presetID]
	o.mu.Unlock()
	if !ok {
		return types.LogsResponse{}, apperr.NotFound("logs", "instance %q not found", presetID)
	}
	return types.LogsResponse{
		PresetID: presetID,
		Stdout:   inst.stdout.Snapshot(n),
		Stderr:   inst.stderr.Snapshot(n),
	}, nil
}

// setStateLocked transitions inst and refreshes metrics. Caller holds o.mu.
func (o *Orchestrator) setStateLocked(inst *instance, s State) {
	inst.state = s
	if f, ok := s.(Failed); ok {
		inst.lastErr = f.Err
	}
	o.observeLocked()
}

// removeLocked deletes presetID only if it still maps to inst, so a
// replacement registered in the meantime is left alone. Caller holds o.mu.
func (o *Orchestrator) removeLocked(presetID string, inst *instance) bool {
	if cur, ok := o.instances[presetID]; ok && cur == inst {
		delete(o.instances, presetID)
		o.observeLocked()
		return true
	}
	return false
}

func (o *Orchestrator) publish(name, presetID string, fields map[string]any) {
	o.cfg.Publisher.Publish(Event{Name: name, PresetID: presetID, Fields: fields})
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// status renders inst. Caller holds o.mu.
func (inst *instance) status(now time.Time) types.InstanceStatus {
	st := types.InstanceStatus{
		PresetID:  inst.presetID,
		State:     string(inst.state.Phase()),
		Ports:     types.Ports{UDP: inst.ports.UDP, TCP: inst.ports.TCP, HTTP: inst.ports.HTTP},
		LastError: inst.lastErr,
	}
	var started time.Time
	switch s := inst.state.(type) {
	case Starting:
		st.PID, started = s.PID, s.StartedAt
	case Running:
		st.PID, started = s.PID, s.StartedAt
		st.ReadyAt = unix(s.ReadyAt)
	case Stopping:
		st.PID, started = s.PID, s.StartedAt
	case Stopped:
		started = s.StartedAt
		st.StoppedAt = unix(s.StoppedAt)
		code := s.ExitCode
		st.ExitCode = &code
		st.Signal = s.Signal
	case Failed:
		st.PID, started = s.PID, s.StartedAt
		st.StoppedAt = unix(s.FailedAt)
	}
	st.StartedAt = unix(started)
	if live(inst.state) && !started.IsZero() {
		st.UptimeSeconds = int64(now.Sub(started).Seconds())
	}
	return st
}
