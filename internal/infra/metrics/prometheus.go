package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dance_jobs_processed_total",
		Help: "Total number of analysis jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dance_job_processing_duration_seconds",
		Help:    "Duration of the analysis pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dance_frames_processed_total",
		Help: "Total number of frames run through the pipeline across all jobs",
	})

	FramesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dance_frames_detected_total",
		Help: "Total number of frames with a detected pose across all jobs",
	})

	FramesFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dance_frames_failed_total",
		Help: "Total number of frames that faulted during detection or drawing",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dance_active_workers",
		Help: "Number of currently active workers analyzing videos",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dance_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
