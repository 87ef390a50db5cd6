package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_items_total",
		Help: "Media items handled, by outcome (added or failure kind)",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gallery_stage_duration_seconds",
		Help:    "Duration of gallery pipeline stages",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 120, 600},
	}, []string{"stage"})

	PartsFinalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_parts_finalized_total",
		Help: "Total number of document parts written",
	})

	PartSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_part_size_bytes",
		Help: "Last measured serialized size of the open document part",
	})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gallery_active_runs",
		Help: "Number of gallery runs in progress",
	})
)
