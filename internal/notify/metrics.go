package notify

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retriesTotal prometheus.Counter

	// metricsOnce ensures metrics are only registered once.
	metricsOnce sync.Once

	metricsRegistered bool
)

// InitMetrics registers the Prometheus metrics for notification delivery.
func InitMetrics() {
	metricsOnce.Do(func() {
		retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultward_delivery_retries_total",
			Help: "Total number of SNS publish retries after transient errors",
		})
		metricsRegistered = true
	})
}

func incrementRetryCounter() {
	if metricsRegistered && retriesTotal != nil {
		retriesTotal.Inc()
	}
}
