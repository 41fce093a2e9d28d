package orchestrator

import "github.com/prometheus/client_golang/prometheus"

var (
	startsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acmanager",
			Subsystem: "orchestrator",
			Name:      "starts_total",
			Help:      "Start attempts by outcome",
		},
		[]string{"result"},
	)

	stopsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acmanager",
			Subsystem: "orchestrator",
			Name:      "stops_total",
			Help:      "Stops by termination mode (graceful, forced, or unresolved after kill)",
		},
		[]string{"mode"},
	)

	instancesByPhase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "acmanager",
			Subsystem: "orchestrator",
			Name:      "instances",
			Help:      "Registered instances by lifecycle phase",
		},
		[]string{"phase"},
	)
)

func init() {
	prometheus.MustRegister(startsTotal, stopsTotal, instancesByPhase)
}

var allPhases = []Phase{PhaseNotStarted, PhaseStarting, PhaseRunning, PhaseStopping, PhaseStopped, PhaseError}

// observeLocked refreshes the per-phase gauge. Caller holds o.mu.
func (o *Orchestrator) observeLocked() {
	counts := make(map[Phase]int, len(allPhases))
	for _, inst := range o.instances {
		counts[inst.state.Phase()]++
	}
	for _, p := range allPhases {
		instancesByPhase.WithLabelValues(string(p)).Set(float64(counts[p]))
	}
}
