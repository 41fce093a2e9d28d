package orchestrator

import (
	"acmanager/internal/acconfig"
	"acmanager/internal/apperr"
	"acmanager/internal/common/fsutil"
)

// admitLocked runs the pre-spawn checks for presetID in order: duplicate,
// executable presence, port collision. Entries that are Stopped or Failed
// hold no process; they neither conflict nor hold ports and are replaced.
// Caller holds o.mu.
func (o *Orchestrator) admitLocked(presetID string, ports acconfig.Ports) error {
	if cur, ok := o.instances[presetID]; ok && !terminal(cur.state) {
		return apperr.Conflict("start", "instance %q is already %s", presetID, cur.state.Phase())
	}
	if o.cfg.ServerExe == "" || !fsutil.IsRegularFile(o.cfg.ServerExe) {
		return apperr.NotFound("start", "server executable not found: %q", o.cfg.ServerExe)
	}
	for id, other := range o.instances {
		if id == presetID || terminal(other.state) {
			continue
		}
		if pc := portClash(ports, other.ports, id); pc != nil {
			return pc
		}
	}
	return nil
}

func portClash(want, held acconfig.Ports, holder string) *apperr.PortConflict {
	switch {
	case want.UDP == held.UDP:
		return &apperr.PortConflict{PortKind: "udp", Port: want.UDP, Holder: holder}
	case want.TCP == held.TCP:
		return &apperr.PortConflict{PortKind: "tcp", Port: want.TCP, Holder: holder}
	case want.HTTP == held.HTTP:
		return &apperr.PortConflict{PortKind: "http", Port: want.HTTP, Holder: holder}
	}
	return nil
}
