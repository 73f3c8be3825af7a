// Package metric exposes gateway activity as Prometheus collectors.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/triplegate/internal/batch"
	"github.com/roach88/triplegate/internal/op"
)

const namespace = "triplegate"

// Metrics holds the gateway collectors. It implements batch.Observer.
type Metrics struct {
	OperationsTotal *prometheus.CounterVec
	BatchesTotal    *prometheus.CounterVec
	BatchDuration   *prometheus.HistogramVec
	StatementsTotal *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec
	QueueDepth      prometheus.Gauge
}

var _ batch.Observer = (*Metrics)(nil)

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "operations",
				Name:      "total",
				Help:      "Operations executed, by batch kind and result code",
			},
			[]string{"kind", "code"},
		),

		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "batches",
				Name:      "total",
				Help:      "Batches executed, by kind and result code",
			},
			[]string{"kind", "code"},
		),

		BatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "batches",
				Name:      "duration_seconds",
				Help:      "Batch execution time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		StatementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "update",
				Name:      "statements_total",
				Help:      "Update statements sent to the backend, by batch kind",
			},
			[]string{"kind"},
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "total",
				Help:      "RunOperations calls, by outcome (ok, contract_error)",
			},
			[]string{"outcome"},
		),

		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Operations waiting in the queue",
			},
		),
	}
}

// Collectors returns every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OperationsTotal,
		m.BatchesTotal,
		m.BatchDuration,
		m.StatementsTotal,
		m.RunsTotal,
		m.QueueDepth,
	}
}

// Register registers every collector with r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistered creates collectors and registers them with a fresh
// registry, which is returned for gathering.
func NewRegistered() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := New()
	reg.MustRegister(m.Collectors()...)
	return m, reg
}

// ObserveBatch implements batch.Observer.
func (m *Metrics) ObserveBatch(kind batch.Kind, ops int, res op.Result, elapsed time.Duration) {
	code := res.Code.String()
	m.OperationsTotal.WithLabelValues(string(kind), code).Add(float64(ops))
	m.BatchesTotal.WithLabelValues(string(kind), code).Inc()
	m.BatchDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// ObserveStatements implements batch.Observer.
func (m *Metrics) ObserveStatements(kind batch.Kind, n int) {
	m.StatementsTotal.WithLabelValues(string(kind)).Add(float64(n))
}

// RecordRun counts one RunOperations call.
func (m *Metrics) RecordRun(outcome string) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

// RecordQueueDepth sets the queue depth gauge.
func (m *Metrics) RecordQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}
