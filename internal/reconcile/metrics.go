package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gmvsync",
		Name:      "runs_started_total",
		Help:      "Number of import runs started.",
	})

	runsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gmvsync",
		Name:      "runs_finished_total",
		Help:      "Number of import runs finished, by result.",
	}, []string{"result"})

	recordsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gmvsync",
		Name:      "records_total",
		Help:      "Records processed by sync phase and outcome.",
	}, []string{"phase", "outcome"})

	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gmvsync",
		Name:      "step_duration_seconds",
		Help:      "Duration of import steps.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"step"})
)
