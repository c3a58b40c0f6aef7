package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgegen",
			Subsystem: "engine",
			Name:      "generations_total",
			Help:      "Finished generations by finish reason",
		},
		[]string{"finish_reason"},
	)

	tokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "edgegen",
			Subsystem: "engine",
			Name:      "tokens_generated_total",
			Help:      "Total tokens generated",
		},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "edgegen",
			Subsystem: "engine",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of a generation including prefill",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	timeToFirstToken = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "edgegen",
			Subsystem: "engine",
			Name:      "time_to_first_token_seconds",
			Help:      "Latency from request start to the first emitted token",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	modelLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgegen",
			Subsystem: "engine",
			Name:      "model_loads_total",
			Help:      "Model load attempts by result",
		},
		[]string{"result"},
	)

	modelDownloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgegen",
			Subsystem: "registry",
			Name:      "model_downloads_total",
			Help:      "Finished model downloads by result",
		},
		[]string{"result"},
	)

	queueRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgegen",
			Subsystem: "engine",
			Name:      "queue_rejects_total",
			Help:      "Operations rejected by admission",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, tokensTotal, generationDuration, timeToFirstToken, modelLoads, modelDownloads, queueRejects)
}
