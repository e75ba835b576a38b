package rotation

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal prometheus.Counter
	candidatesTotal  prometheus.Counter
	sentTotal        prometheus.Counter
	suppressedTotal  prometheus.Counter

	// metricsOnce ensures metrics are only registered once.
	metricsOnce sync.Once

	metricsRegistered bool
)

// InitMetrics registers the Prometheus metrics for the rotation engine.
// Call once at startup when metrics are enabled; increments are no-ops
// otherwise.
func InitMetrics() {
	metricsOnce.Do(func() {
		evaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultward_evaluations_total",
			Help: "Total number of rotation evaluation cycles run",
		})
		candidatesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultward_candidates_total",
			Help: "Total number of rotation candidates selected across runs",
		})
		sentTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultward_notifications_sent_total",
			Help: "Total number of rotation notifications sent",
		})
		suppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultward_digest_suppressed_total",
			Help: "Total number of digest dispatches suppressed by an unchanged fingerprint",
		})
		metricsRegistered = true
	})
}

// IncrementEvaluationCounters records one completed evaluation cycle and the
// number of candidates it produced.
func IncrementEvaluationCounters(candidates int) {
	if !metricsRegistered {
		return
	}
	evaluationsTotal.Inc()
	candidatesTotal.Add(float64(candidates))
}

func incrementSentCounter() {
	if metricsRegistered && sentTotal != nil {
		sentTotal.Inc()
	}
}

func incrementSuppressedCounter() {
	if metricsRegistered && suppressedTotal != nil {
		suppressedTotal.Inc()
	}
}
