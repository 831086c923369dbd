package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records orchestrator activity for the /metrics endpoint
type Metrics struct {
	pending   prometheus.Gauge
	running   prometheus.Gauge
	runsTotal *prometheus.CounterVec
	debounced *prometheus.CounterVec
	shed      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics creates and registers the orchestrator metrics. Call at most
// once per process (promauto registers globally).
func NewMetrics() *Metrics {
	return &Metrics{
		pending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "agent_jobs_pending",
			Help: "Number of agent jobs waiting in the queue",
		}),
		running: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "agent_jobs_running",
			Help: "Number of agent jobs currently executing",
		}),
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_runs_total",
				Help: "Total agent job completions by agent and status",
			},
			[]string{"agent", "status"},
		),
		debounced: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_triggers_debounced_total",
				Help: "Triggers dropped by the debounce window",
			},
			[]string{"agent"},
		),
		shed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_triggers_shed_total",
				Help: "Low-priority triggers dropped while the queue was loaded",
			},
			[]string{"agent"},
		),
		duration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_run_duration_seconds",
				Help:    "Agent job execution time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent"},
		),
	}
}

// noopMetrics returns unregistered metrics for tests so parallel test
// packages do not fight over the global registry
func noopMetrics() *Metrics {
	return &Metrics{
		pending: prometheus.NewGauge(prometheus.GaugeOpts{Name: "agent_jobs_pending"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{Name: "agent_jobs_running"}),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agent_runs_total"}, []string{"agent", "status"}),
		debounced: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agent_triggers_debounced_total"}, []string{"agent"}),
		shed: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agent_triggers_shed_total"}, []string{"agent"}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "agent_run_duration_seconds"}, []string{"agent"}),
	}
}
