package activities

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway call outcomes.
const (
	outcomeSuccess        = "success"
	outcomeRejected       = "rejected"
	outcomeHTTPError      = "http_error"
	outcomeDecodeError    = "decode_error"
	outcomeTransportError = "transport_error"
)

// GatewayMetrics counts gateway calls per operation and outcome. A nil
// *GatewayMetrics records nothing.
type GatewayMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewGatewayMetrics registers the gateway collectors on reg.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	factory := promauto.With(reg)
	return &GatewayMetrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fiscal",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Gateway calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fiscal",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Gateway call latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *GatewayMetrics) observe(op, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(op, outcome).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
