package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubgate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total administrative HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hubgate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Administrative HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	proxyAPIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubgate",
			Subsystem: "proxy_api",
			Name:      "requests_total",
			Help:      "Requests issued to the external proxy control API.",
		},
		[]string{"method", "status", "success"},
	)
	proxyAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hubgate",
			Subsystem: "proxy_api",
			Name:      "request_duration_seconds",
			Help:      "Proxy control API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status", "success"},
	)
	routeMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubgate",
			Subsystem: "reconcile",
			Name:      "route_mutations_total",
			Help:      "Route add/delete mutations issued by reconciliation.",
		},
		[]string{"op", "outcome"},
	)
	reconcilePasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hubgate",
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Full reconciliation passes by outcome.",
		},
		[]string{"outcome"},
	)
	reconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hubgate",
			Subsystem: "reconcile",
			Name:      "pass_duration_seconds",
			Help:      "Full reconciliation pass duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			proxyAPIRequests,
			proxyAPIDuration,
			routeMutations,
			reconcilePasses,
			reconcileDuration,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordProxyAPIRequest(method string, status int, duration time.Duration, success bool) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	successLabel := strconv.FormatBool(success)
	proxyAPIRequests.WithLabelValues(method, statusLabel, successLabel).Inc()
	proxyAPIDuration.WithLabelValues(method, statusLabel, successLabel).
		Observe(duration.Seconds())
}

func RecordRouteMutation(op string, err error) {
	RegisterMetrics()
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	routeMutations.WithLabelValues(op, outcome).Inc()
}

func RecordReconcilePass(duration time.Duration, failedKeys int) {
	RegisterMetrics()
	outcome := "clean"
	if failedKeys > 0 {
		outcome = "partial"
	}
	reconcilePasses.WithLabelValues(outcome).Inc()
	reconcileDuration.Observe(duration.Seconds())
}
