// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesProcessed counts inbound events by dispatch outcome.
	UpdatesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_processed_total",
			Help: "Inbound transport events by outcome",
		},
		[]string{"outcome"},
	)

	// PollErrors counts failed poll requests.
	PollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_poll_errors_total",
			Help: "Failed long-poll requests",
		},
	)

	// SendFailures counts failed outbound transport sends.
	SendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_send_failures_total",
			Help: "Failed outbound transport sends",
		},
	)

	// RateFetchDuration tracks rate source fetch duration.
	RateFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_rate_fetch_duration_seconds",
			Help:    "Rate source fetch duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	// BranchesAnnounced counts delivered branch announcements.
	BranchesAnnounced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_branches_announced_total",
			Help: "Branch announcements delivered",
		},
	)
)
