package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendofy_order_transitions_total",
			Help: "Total number of order state transitions",
		},
		[]string{"action"},
	)

	PollCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vendofy_poll_cycles_total",
			Help: "Total number of sync poll cycles",
		},
	)

	NotificationsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vendofy_notifications_emitted_total",
			Help: "Total number of change notifications emitted to sessions",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vendofy_active_sync_sessions",
			Help: "Number of active polling sessions",
		},
	)
)
