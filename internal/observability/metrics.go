package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	chunkOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pngme",
			Subsystem: "chunk",
			Name:      "operations_total",
			Help:      "Chunk operations by command and outcome.",
		},
		[]string{"op", "result"},
	)
	containerBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pngme",
			Subsystem: "container",
			Name:      "bytes",
			Help:      "Size of containers handled per operation.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"op"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pngme",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pngme",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(chunkOperations, containerBytes, httpRequests, httpDuration)
	})
}

// RecordChunkOperation counts one command outcome; result is "ok" or an
// error kind such as "not_found".
func RecordChunkOperation(op, result string, size int) {
	RegisterMetrics()
	chunkOperations.WithLabelValues(op, result).Inc()
	if size > 0 {
		containerBytes.WithLabelValues(op).Observe(float64(size))
	}
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
