// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FlowRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradematch_flow_requests_total",
			Help: "Flow invocations by flow name and response status",
		},
		[]string{"flow", "status"},
	)

	FlowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradematch_flow_duration_seconds",
			Help:    "Duration of flow execution in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"flow"},
	)

	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradematch_gateway_requests_total",
			Help: "LLM gateway requests by outcome",
		},
		[]string{"outcome"},
	)

	ScoutSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradematch_scout_source_failures_total",
			Help: "External supplier source failures absorbed by the scout",
		},
		[]string{"source"},
	)

	ScoutCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradematch_scout_candidates",
			Help:    "Number of external candidates returned per discovery",
			Buckets: prometheus.LinearBuckets(0, 5, 8),
		},
	)
)
