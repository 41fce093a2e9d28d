package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"sync"
	"time"

	"acmanager/internal/acconfig"
	"acmanager/internal/apperr"
	"acmanager/pkg/types"
)

// errNotRunning marks a Stop against an instance whose process already exited.
var errNotRunning = errors.New("not running")

// errKillUnresolved marks a Stop whose process outlived the forced kill.
var errKillUnresolved = errors.New("no exit observed after kill")

// IsNotRunning reports whether err came from stopping an exited instance.
func IsNotRunning(err error) bool { return errors.Is(err, errNotRunning) }

// Stop terminates presetID gracefully and escalates to a forced kill when the
// process has not exited within StopTimeout (or ctx ends first). It returns
// once the exit has been observed, or with a process error when even the
// kill is not observed within KillWait.
func (o *Orchestrator) Stop(ctx context.Context, presetID string) (types.InstanceStatus, error) {
	o.mu.Lock()
	inst, ok := o.instances[presetID]
	if !ok {
		o.mu.Unlock()
		return types.InstanceStatus{}, apperr.NotFound("stop", "instance %q not found", presetID)
	}
	var cmd *exec.Cmd
	switch s := inst.state.(type) {
	case NotStarted:
		o.mu.Unlock()
		return types.InstanceStatus{}, apperr.Conflict("stop", "instance %q is still being spawned", presetID)
	case Stopped:
		o.mu.Unlock()
		return types.InstanceStatus{}, &apperr.Error{
			Kind: apperr.KindConflict,
			Op:   "stop",
			Msg:  fmt.Sprintf("instance %q", presetID),
			Err:  errNotRunning,
		}
	case Failed:
		// Nothing to terminate; drop the entry.
		o.removeLocked(presetID, inst)
		st := inst.status(time.Now())
		o.mu.Unlock()
		o.publish(EventStop, presetID, map[string]any{"mode": "cleared"})
		o.log.Info().Str("preset", presetID).Msg("failed instance cleared")
		return st, nil
	case Starting:
		o.setStateLocked(inst, Stopping{PID: s.PID, StartedAt: s.StartedAt, RequestedAt: time.Now()})
		cmd = inst.cmd
	case Running:
		o.setStateLocked(inst, Stopping{PID: s.PID, StartedAt: s.StartedAt, RequestedAt: time.Now()})
		cmd = inst.cmd
	case Stopping:
		// Another caller already signalled; join the wait.
		cmd = inst.cmd
	}
	o.mu.Unlock()

	if cmd != nil {
		if err := terminateProcess(cmd); err != nil {
			o.log.Debug().Err(err).Str("preset", presetID).Msg("terminate signal failed")
		}
	}

	mode := "graceful"
	timer := time.NewTimer(o.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-inst.done:
	case <-timer.C:
		mode = "forced"
	case <-ctx.Done():
		mode = "forced"
	}
	if mode == "forced" {
		o.log.Warn().Str("preset", presetID).Dur("timeout", o.cfg.StopTimeout).Msg("graceful stop timed out, killing")
		o.publish(EventStopForced, presetID, nil)
		if cmd != nil {
			if err := forceKillProcess(cmd); err != nil {
				o.log.Error().Err(err).Str("preset", presetID).Msg("force kill failed")
			}
		}
		kill := time.NewTimer(o.cfg.KillWait)
		defer kill.Stop()
		select {
		case <-inst.done:
		case <-kill.C:
			stopsTotal.WithLabelValues("unresolved").Inc()
			o.log.Error().Str("preset", presetID).Dur("wait", o.cfg.KillWait).Msg("server did not exit after kill")
			return o.currentStatus(inst), apperr.Process("stop", errKillUnresolved, "instance %q", presetID)
		}
	}
	stopsTotal.WithLabelValues(mode).Inc()

	st := o.currentStatus(inst)
	o.publish(EventStop, presetID, map[string]any{"mode": mode})
	o.log.Info().Str("preset", presetID).Str("mode", mode).Msg("server stopped")
	return st, nil
}

// StopAll stops every live instance concurrently. A failure on one instance
// does not prevent the others from being stopped; each outcome is reported.
func (o *Orchestrator) StopAll(ctx context.Context) []types.StopResult {
	o.mu.Lock()
	ids := make([]string, 0, len(o.instances))
	for id, inst := range o.instances {
		if live(inst.state) {
			ids = append(ids, id)
		}
	}
	o.mu.Unlock()
	sort.Strings(ids)

	results := make([]types.StopResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			res := types.StopResult{PresetID: id, Stopped: true}
			if _, err := o.Stop(ctx, id); err != nil {
				res.Stopped = false
				res.Error = err.Error()
			}
			results[i] = res
		}(i, id)
	}
	wg.Wait()
	if len(ids) > 0 {
		o.log.Info().Int("count", len(ids)).Msg("all servers stopped")
	}
	return results
}

// Restart stops presetID when it is live, waits RestartSettle so the OS can
// release its ports, then starts it with cfg. A missing or exited instance is
// simply started.
func (o *Orchestrator) Restart(ctx context.Context, presetID string, cfg acconfig.Config) (types.InstanceStatus, error) {
	_, err := o.Stop(ctx, presetID)
	switch {
	case err == nil:
		select {
		case <-ctx.Done():
			return types.InstanceStatus{}, ctx.Err()
		case <-time.After(o.cfg.RestartSettle):
		}
	case apperr.IsNotFound(err), IsNotRunning(err):
	default:
		return types.InstanceStatus{}, err
	}
	return o.Start(ctx, presetID, cfg)
}

func (o *Orchestrator) currentStatus(inst *instance) types.InstanceStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return inst.status(time.Now())
}
