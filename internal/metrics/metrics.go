package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MutationsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowcanvas_mutations_applied_total",
		Help: "Total number of accepted graph mutations, labelled by operation.",
	}, []string{"op"})

	MutationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowcanvas_mutations_rejected_total",
		Help: "Total number of rejected graph mutations, labelled by rejection kind.",
	}, []string{"kind"})

	CycleRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowcanvas_cycle_rejections_total",
		Help: "Total number of edges refused because they would close a cycle.",
	})

	AutosaveRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowcanvas_autosave_runs_total",
		Help: "Total number of autosave persistence calls, labelled by outcome.",
	}, []string{"outcome"})

	NodeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowcanvas_node_executions_total",
		Help: "Total number of simulated node executions, labelled by node type and status.",
	}, []string{"node_type", "status"})

	NodeExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flowcanvas_node_execution_duration_ms",
		Help:    "Single-node simulated execution latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 10000},
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowcanvas_editor_sessions_active",
		Help: "Number of workflow editor sessions currently open.",
	})
)
