package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/conceptpipe/fault"
)

// Metrics instruments the orchestrator. A nil *Metrics is a no-op, so
// callers that don't care about instrumentation pass nothing.
type Metrics struct {
	itemsTotal  *prometheus.CounterVec
	faultsTotal *prometheus.CounterVec
	itemSeconds prometheus.Histogram
	runsTotal   prometheus.Counter
}

// NewMetrics creates the pipeline metric set and registers it on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conceptpipe_items_total",
			Help: "Work items processed, by final status.",
		}, []string{"status"}),
		faultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conceptpipe_faults_total",
			Help: "Faults recorded, by kind.",
		}, []string{"kind"}),
		itemSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "conceptpipe_item_duration_seconds",
			Help:    "Per-item processing time including retries.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conceptpipe_runs_total",
			Help: "Batch runs started.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.itemsTotal, m.faultsTotal, m.itemSeconds, m.runsTotal)
	}
	return m
}

// RunStarted counts a new batch run.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsTotal.Inc()
}

// ObserveItem records one finished item.
func (m *Metrics) ObserveItem(success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "failed"
	if success {
		status = "succeeded"
	}
	m.itemsTotal.WithLabelValues(status).Inc()
	m.itemSeconds.Observe(elapsed.Seconds())
}

// ObserveFault counts one recorded fault.
func (m *Metrics) ObserveFault(kind fault.Kind) {
	if m == nil {
		return
	}
	m.faultsTotal.WithLabelValues(string(kind)).Inc()
}
