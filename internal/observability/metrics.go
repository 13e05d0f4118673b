package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gatewayAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easysms_gateway_attempts_total",
		Help: "SMS gateway attempts by gateway id and outcome.",
	}, []string{"gateway", "status"})

	gatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "easysms_gateway_attempt_duration_seconds",
		Help:    "Duration of a single SMS gateway attempt.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})
)

// ObserveAttempt records one gateway attempt.
func ObserveAttempt(gateway, status string, d time.Duration) {
	gatewayAttempts.WithLabelValues(gateway, status).Inc()
	gatewayLatency.WithLabelValues(gateway).Observe(d.Seconds())
}

// MetricsHandler serves the default Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
