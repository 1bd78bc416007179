package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "podquest_pipeline_runs_total",
		Help: "Transcription pipeline runs by outcome.",
	}, []string{"outcome"})

	chunksTranscribed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "podquest_chunks_transcribed_total",
		Help: "Audio chunks transcribed across all runs.",
	})

	runSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "podquest_pipeline_run_seconds",
		Help:    "Wall-clock duration of full pipeline runs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)
