package compute

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "anynodes"

//Metrics counters of the compute functions. A nil *Metrics records nothing.
type Metrics struct {
	floatingIPAllocations *prometheus.CounterVec
	cleanupStepFailures   *prometheus.CounterVec
}

//NewMetrics creates unregistered metrics
func NewMetrics() *Metrics {
	return &Metrics{
		floatingIPAllocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "floating_ip_allocations_total",
			Help:      `Floating ip allocations by winning strategy (pool, create, scavenge) or exhausted.`,
		}, []string{"strategy"}),
		cleanupStepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "cleanup_step_failures_total",
			Help:      `Cleanup steps which failed and were skipped.`,
		}, []string{"step"}),
	}
}

//Register registers the counters in r
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.floatingIPAllocations, m.cleanupStepFailures} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) allocation(strategy string) {
	if m == nil {
		return
	}
	m.floatingIPAllocations.WithLabelValues(strategy).Inc()
}

func (m *Metrics) cleanupFailure(step string) {
	if m == nil {
		return
	}
	m.cleanupStepFailures.WithLabelValues(step).Inc()
}
