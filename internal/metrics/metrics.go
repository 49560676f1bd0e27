// Package metrics provides the Prometheus metrics this client exposes on its
// ancillary /metrics endpoint: token-refresh outcomes and latency, token
// requests by method and response status, and the ancillary HTTP server's
// own request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "idaas_m2m_client"

var (
	// CacheRefreshTotal counts credential cache refresh attempts by
	// supplier id and outcome ("success" or "failure").
	CacheRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "refresh_total",
			Help:      "Total number of cache refresh attempts",
		},
		[]string{"id", "outcome"},
	)

	// CacheRefreshDuration measures how long a cache refresh call took.
	CacheRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "refresh_duration_seconds",
			Help:      "Cache refresh latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"id"},
	)

	// TokenRequestsTotal counts token endpoint calls by auth method and
	// outcome ("success", "request_build_error", "client_error",
	// "server_error", "transport_error", "encoding_error").
	TokenRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credential",
			Name:      "token_requests_total",
			Help:      "Total number of token endpoint requests",
		},
		[]string{"method", "outcome"},
	)

	// JwtAssertionsTotal counts client assertion JWTs signed, by signing
	// algorithm.
	JwtAssertionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credential",
			Name:      "jwt_assertions_total",
			Help:      "Total number of client assertion JWTs signed",
		},
		[]string{"algorithm"},
	)

	// HTTPRequestsTotal counts requests served by this process's own
	// ancillary HTTP server (health checks, metrics scrapes).
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "httpserver",
			Name:      "requests_total",
			Help:      "Total number of requests served by the ancillary HTTP server",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures the ancillary HTTP server's own request
	// latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "httpserver",
			Name:      "request_duration_seconds",
			Help:      "Ancillary HTTP server request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)
