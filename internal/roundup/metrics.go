package roundup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roundup_admissions_total",
		Help: "Round-up trigger attempts by outcome",
	}, []string{"outcome"})

	pipelineResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roundup_pipeline_results_total",
		Help: "Finished pipeline runs by terminal status and reason",
	}, []string{"status", "reason"})

	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roundup_pipeline_duration_seconds",
		Help:    "Time from job pickup to terminal status",
		Buckets: prometheus.DefBuckets,
	})

	transferredMinorUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roundup_transferred_minor_units_total",
		Help: "Minor units moved into savings goals",
	}, []string{"currency"})
)
