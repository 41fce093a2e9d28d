package orchestrator

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"acmanager/internal/acconfig"
	"acmanager/internal/apperr"
	"acmanager/pkg/types"
)

// Start launches a server for presetID with cfg. The admission checks and the
// registry reservation happen atomically, so two concurrent Starts for the
// same id or overlapping ports cannot both pass. The instance's configuration
// files are written before the process is spawned.
//
// Start returns once the process is spawned; readiness is reported later via
// GetStatus. A spawn failure leaves the instance registered in the error
// phase and returns a process_failure error.
func (o *Orchestrator) Start(ctx context.Context, presetID string, cfg acconfig.Config) (types.InstanceStatus, error) {
	if presetID == "" {
		return types.InstanceStatus{}, apperr.Validation("start", "preset id is required")
	}
	if o.cfg.Writer == nil {
		return types.InstanceStatus{}, apperr.Validation("start", "no config writer configured")
	}
	if err := ctx.Err(); err != nil {
		return types.InstanceStatus{}, err
	}
	if err := acconfig.CheckPorts(cfg); err != nil {
		startsTotal.WithLabelValues("rejected").Inc()
		return types.InstanceStatus{}, err
	}
	ports := acconfig.PortsOf(cfg)

	o.mu.Lock()
	if err := o.admitLocked(presetID, ports); err != nil {
		o.mu.Unlock()
		startsTotal.WithLabelValues("rejected").Inc()
		o.log.Warn().Err(err).Str("preset", presetID).Msg("start rejected")
		return types.InstanceStatus{}, err
	}
	inst := &instance{
		presetID: presetID,
		ports:    ports,
		state:    NotStarted{},
		stdout:   NewLogBuffer(o.cfg.LogLines),
		stderr:   NewLogBuffer(o.cfg.LogLines),
		done:     make(chan struct{}),
	}
	o.instances[presetID] = inst
	o.observeLocked()
	o.mu.Unlock()

	paths, err := o.cfg.Writer.WriteInstance(presetID, cfg)
	if err != nil {
		o.mu.Lock()
		o.removeLocked(presetID, inst)
		o.mu.Unlock()
		startsTotal.WithLabelValues("config_error").Inc()
		o.log.Error().Err(err).Str("preset", presetID).Msg("writing instance config failed")
		return types.InstanceStatus{}, err
	}

	cmd := o.command(paths)
	stdout := newLineWriter(inst.stdout, func(line string) { o.checkReady(inst, line) })
	stderr := newLineWriter(inst.stderr, func(line string) { o.checkReady(inst, line) })
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return o.spawnFailed(inst, err)
	}

	now := time.Now()
	o.mu.Lock()
	inst.cmd = cmd
	o.setStateLocked(inst, Starting{PID: cmd.Process.Pid, StartedAt: now})
	st := inst.status(now)
	o.mu.Unlock()

	startsTotal.WithLabelValues("ok").Inc()
	o.publish(EventStart, presetID, map[string]any{"pid": cmd.Process.Pid, "udp_port": ports.UDP})
	o.log.Info().
		Str("preset", presetID).
		Int("pid", cmd.Process.Pid).
		Int("udp_port", ports.UDP).
		Int("tcp_port", ports.TCP).
		Int("http_port", ports.HTTP).
		Msg("server started")

	go o.monitor(inst, cmd, stdout, stderr)
	return st, nil
}

func (o *Orchestrator) command(paths acconfig.InstancePaths) *exec.Cmd {
	args := append([]string{"-c", paths.ServerCfg, "-e", paths.EntryList}, o.cfg.ExtraArgs...)
	cmd := exec.Command(o.cfg.ServerExe, args...)
	cmd.Dir = o.cfg.WorkDir
	if cmd.Dir == "" {
		cmd.Dir = filepath.Dir(o.cfg.ServerExe)
	}
	cmd.Env = append(os.Environ(), o.cfg.Env...)
	// A descendant that escaped the process group may keep the output pipes
	// open; Wait gives up on them OutputGrace after the server itself exits.
	cmd.WaitDelay = o.cfg.OutputGrace
	setSysProcAttr(cmd)
	return cmd
}

func (o *Orchestrator) spawnFailed(inst *instance, err error) (types.InstanceStatus, error) {
	now := time.Now()
	o.mu.Lock()
	o.setStateLocked(inst, Failed{FailedAt: now, Err: err.Error()})
	close(inst.done)
	st := inst.status(now)
	o.mu.Unlock()

	startsTotal.WithLabelValues("spawn_error").Inc()
	o.publish(EventError, inst.presetID, map[string]any{"error": err.Error()})
	o.log.Error().Err(err).Str("preset", inst.presetID).Str("exe", o.cfg.ServerExe).Msg("spawn failed")
	return st, apperr.Process("start", err, "spawning %s", filepath.Base(o.cfg.ServerExe))
}

// monitor waits for the process and records its exit. The exit is recorded
// no later than OutputGrace after the process dies, even when something else
// still holds its output pipes.
func (o *Orchestrator) monitor(inst *instance, cmd *exec.Cmd, stdout, stderr *lineWriter) {
	err := cmd.Wait()
	stdout.Flush()
	stderr.Flush()
	if errors.Is(err, exec.ErrWaitDelay) {
		o.log.Warn().Str("preset", inst.presetID).Msg("output still held open after exit, capture closed")
		err = nil
	}
	o.recordExit(inst, err)
}

func (o *Orchestrator) checkReady(inst *instance, line string) {
	if strings.Contains(line, o.cfg.ReadyMarker) {
		o.markReady(inst)
	}
}

func (o *Orchestrator) markReady(inst *instance) {
	o.mu.Lock()
	s, ok := inst.state.(Starting)
	if ok {
		o.setStateLocked(inst, Running{PID: s.PID, StartedAt: s.StartedAt, ReadyAt: time.Now()})
	}
	o.mu.Unlock()
	if ok {
		o.publish(EventReady, inst.presetID, map[string]any{"pid": s.PID})
		o.log.Info().Str("preset", inst.presetID).Int("pid", s.PID).Msg("server ready")
	}
}

func (o *Orchestrator) recordExit(inst *instance, waitErr error) {
	now := time.Now()
	code, sig, ok := exitDetails(waitErr)

	o.mu.Lock()
	requested := inst.state.Phase() == PhaseStopping
	started := startedAt(inst.state)
	if ok {
		o.setStateLocked(inst, Stopped{StartedAt: started, StoppedAt: now, ExitCode: code, Signal: sig})
	} else {
		o.setStateLocked(inst, Failed{PID: pidOf(inst.state), StartedAt: started, FailedAt: now, Err: waitErr.Error()})
	}
	close(inst.done)
	o.mu.Unlock()

	ev := o.log.Info()
	if !requested {
		ev = o.log.Warn()
	}
	ev.Str("preset", inst.presetID).Int("exit_code", code).Str("signal", sig).Bool("requested", requested).Msg("server exited")

	if !ok {
		o.publish(EventError, inst.presetID, map[string]any{"error": waitErr.Error()})
		return
	}
	o.publish(EventExit, inst.presetID, map[string]any{"exit_code": code, "signal": sig, "requested": requested})
	time.AfterFunc(o.cfg.RemovalGrace, func() {
		o.mu.Lock()
		removed := o.removeLocked(inst.presetID, inst)
		o.mu.Unlock()
		if removed {
			o.publish(EventRemoved, inst.presetID, nil)
		}
	})
}
