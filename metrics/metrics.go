package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Replies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_pipeline_replies_total",
			Help: "Chat replies by outcome (intro, missing_credentials, generated, fallback, failed)",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reply_pipeline_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	Segments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reply_pipeline_segments",
			Help:    "Reply segments per generated answer",
			Buckets: []float64{1, 2, 3},
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_pipeline_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)
