package httpclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports backend call counters and latencies.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the client collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cis_portal",
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "Backend requests by method, resource and status (0 = no response).",
			},
			[]string{"method", "resource", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cis_portal",
				Subsystem: "backend",
				Name:      "request_duration_seconds",
				Help:      "Backend request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "resource"},
		),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) observe(method, resource string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, resource, strconv.Itoa(status)).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(method, resource).Observe(elapsed.Seconds())
	}
}
