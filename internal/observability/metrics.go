package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foldlink",
			Subsystem: "d2d",
			Name:      "messages_total",
			Help:      "Total D2D messages by direction and wire type.",
		},
		[]string{"node", "direction", "type"},
	)
	decodeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foldlink",
			Subsystem: "d2d",
			Name:      "decode_failures_total",
			Help:      "Envelope decode failures by reason.",
		},
		[]string{"node", "reason"},
	)
	orphanReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foldlink",
			Subsystem: "d2d",
			Name:      "orphan_replies_total",
			Help:      "Replies arriving with no pending correlation entry.",
		},
		[]string{"node"},
	)
	pendingRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "foldlink",
			Subsystem: "d2d",
			Name:      "pending_requests",
			Help:      "In-flight correlated requests.",
		},
		[]string{"node"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foldlink",
			Subsystem: "ops",
			Name:      "http_requests_total",
			Help:      "Ops endpoint requests by method, path and status.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "foldlink",
			Subsystem: "ops",
			Name:      "http_request_duration_seconds",
			Help:      "Ops endpoint request duration.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "foldlink",
			Subsystem: "d2d",
			Name:      "request_duration_seconds",
			Help:      "Round-trip duration of correlated requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "type", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(messagesTotal, decodeFailures, orphanReplies, pendingRequests,
			requestDuration, httpRequests, httpDuration)
	})
}

func RecordMessage(node, direction, wireType string) {
	RegisterMetrics()
	messagesTotal.WithLabelValues(node, direction, wireType).Inc()
}

func RecordDecodeFailure(node, reason string) {
	RegisterMetrics()
	decodeFailures.WithLabelValues(node, reason).Inc()
}

func RecordOrphanReply(node string) {
	RegisterMetrics()
	orphanReplies.WithLabelValues(node).Inc()
}

func SetPendingRequests(node string, n int) {
	RegisterMetrics()
	pendingRequests.WithLabelValues(node).Set(float64(n))
}

func RecordRequestDuration(node, wireType, status string, duration time.Duration) {
	RegisterMetrics()
	requestDuration.WithLabelValues(node, wireType, status).Observe(duration.Seconds())
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	httpRequests.WithLabelValues(node, method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(node, method, path).Observe(duration.Seconds())
}
