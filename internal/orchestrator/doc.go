// Package orchestrator runs several dedicated server processes side by side,
// one per preset. It is structured into small files by concern:
//
//   - orchestrator.go: Orchestrator type, constructor, status and log reads.
//   - config.go: Config and package defaults.
//   - state.go: lifecycle state variants (one type per phase).
//   - logbuf.go: bounded per-stream output ring buffer.
//   - admission.go: duplicate/executable/port checks done before any spawn.
//   - start.go: spawn, output capture, readiness and exit monitoring.
//   - stop.go: Stop, StopAll and Restart.
//   - proc_unix.go / proc_windows.go: platform signal and kill helpers.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//   - metrics.go: Prometheus instrumentation.
//
// Port uniqueness is enforced only against the registry itself; ports bound
// by processes the orchestrator does not manage are not detected.
package orchestrator
