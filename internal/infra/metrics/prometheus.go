package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumiere_requests_processed_total",
		Help: "Total number of processing requests completed, by terminal status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lumiere_stage_duration_seconds",
		Help:    "Duration of each processing stage",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumiere_frames_extracted_total",
		Help: "Total number of frames extracted across all requests",
	})

	ExtractionStopTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumiere_extraction_stop_total",
		Help: "Extraction runs by stop reason",
	}, []string{"reason"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lumiere_active_workers",
		Help: "Number of workers currently processing a request",
	})

	RedeliveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumiere_redelivery_total",
		Help: "Total number of requeued deliveries, by attempt",
	}, []string{"attempt"})
)
