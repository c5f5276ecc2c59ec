package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TalksSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_talks_submitted_total",
		Help: "Total number of talk submissions, by outcome",
	}, []string{"outcome"})

	StatusPollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_status_polls_total",
		Help: "Total number of talk status polls observed",
	})

	JobDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studio_job_duration_seconds",
		Help:    "Wall-clock time from submission to terminal status",
		Buckets: []float64{5, 10, 30, 60, 120, 300, 600},
	}, []string{"outcome"})

	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studio_jobs_in_flight",
		Help: "Number of synthesis jobs currently awaiting completion",
	})
)
