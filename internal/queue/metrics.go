package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sevler/gatehouse/internal/domain"
)

const namespace = "gatehouse"

var (
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of clients waiting per tier",
		},
		[]string{"tier"},
	)

	admissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "admissions_total",
			Help:      "Total clients admitted per tier",
		},
		[]string{"tier"},
	)

	dispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "dispatched_total",
			Help:      "Total clients dispatched to a target per tier",
		},
		[]string{"tier"},
	)

	waitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "wait_seconds",
			Help:      "Time spent waiting before dispatch",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"tier"},
	)

	ticksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Scheduler ticks by outcome",
		},
		[]string{"mode"},
	)

	probesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "targets",
			Name:      "probes_total",
			Help:      "Target health probes by result",
		},
		[]string{"target", "result"},
	)

	probeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "targets",
			Name:      "probe_duration_seconds",
			Help:      "Target health probe latency",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 1.5, 2},
		},
		[]string{"target"},
	)
)

// Tick outcomes.
const (
	tickModeDispatch = "dispatch"
	tickModeDegraded = "degraded"
	tickModeIdle     = "idle"
)

func recordAdmission(tier domain.Tier) {
	admissionsTotal.WithLabelValues(tier.String()).Inc()
}

func recordDispatch(tier domain.Tier, waited time.Duration) {
	dispatchedTotal.WithLabelValues(tier.String()).Inc()
	waitDuration.WithLabelValues(tier.String()).Observe(waited.Seconds())
}

func recordTick(mode string) {
	ticksTotal.WithLabelValues(mode).Inc()
}

func recordProbe(target string, healthy bool, duration time.Duration) {
	result := "healthy"
	if !healthy {
		result = "unhealthy"
	}
	probesTotal.WithLabelValues(target, result).Inc()
	probeDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// recordQueueDepth refreshes the per-tier depth gauges.
func recordQueueDepth(s *Store) {
	for _, tier := range domain.Tiers {
		queueDepth.WithLabelValues(tier.String()).Set(float64(s.Len(tier)))
	}
}
