package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EngineNodes tracks the number of live nodes by kind.
	EngineNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "iengine_nodes",
			Help: "Current number of simulated nodes by kind",
		},
		[]string{"kind"},
	)

	// EngineEdges tracks the number of live edges.
	EngineEdges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "iengine_edges",
			Help: "Current number of simulated edges",
		},
	)

	// EngineReloadsTotal counts full snapshot reloads by trigger.
	EngineReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iengine_reloads_total",
			Help: "Total number of full graph reloads",
		},
		[]string{"trigger"},
	)

	// EngineFocusChangesTotal counts focus and clear operations.
	EngineFocusChangesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "iengine_focus_changes_total",
			Help: "Total number of focus/clear operations",
		},
	)

	// EngineSimTicksTotal counts simulation steps.
	EngineSimTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "iengine_sim_ticks_total",
			Help: "Total number of simulation ticks executed",
		},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(EngineNodes)
	prometheus.MustRegister(EngineEdges)
	prometheus.MustRegister(EngineReloadsTotal)
	prometheus.MustRegister(EngineFocusChangesTotal)
	prometheus.MustRegister(EngineSimTicksTotal)
}
