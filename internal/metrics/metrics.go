// Package metrics exposes chain and pool state as Prometheus collectors.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ledger"

// Metrics holds the collectors updated by the chain and the pool.
type Metrics struct {
	blocksAccepted prometheus.Counter
	blocksRejected *prometheus.CounterVec
	bestHeight     prometheus.Gauge
	records        prometheus.Gauge
	recordsEvicted prometheus.Counter
	txsConfirmed   prometheus.Counter
	poolSize       prometheus.Gauge
	poolEvicted    prometheus.Counter
}

// New creates the collectors and registers them with reg.
// Registration panics on a duplicate, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		blocksAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_accepted_total",
			Help:      "number of blocks added to the registry",
		}),
		blocksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_rejected_total",
			Help:      "number of blocks refused, by reason",
		}, []string{"reason"}),
		bestHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_height",
			Help:      "height of the current best tip",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retained_blocks",
			Help:      "number of block records inside the retention window",
		}),
		recordsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_blocks_total",
			Help:      "number of block records dropped below the retention window",
		}),
		txsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_confirmed_total",
			Help:      "number of declared transactions in accepted blocks",
		}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_size",
			Help:      "number of pending transactions",
		}),
		poolEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_evicted_total",
			Help:      "number of pending transactions dropped for capacity",
		}),
	}

	reg.MustRegister(
		m.blocksAccepted,
		m.blocksRejected,
		m.bestHeight,
		m.records,
		m.recordsEvicted,
		m.txsConfirmed,
		m.poolSize,
		m.poolEvicted,
	)
	return m
}

// BlockAccepted records an inserted block and the resulting registry state.
func (m *Metrics) BlockAccepted(txs int, bestHeight uint64, records int) {
	if m == nil {
		return
	}
	m.blocksAccepted.Inc()
	m.txsConfirmed.Add(float64(txs))
	m.bestHeight.Set(float64(bestHeight))
	m.records.Set(float64(records))
}

// BlockRejected records a refused block.
func (m *Metrics) BlockRejected(reason string) {
	if m == nil {
		return
	}
	m.blocksRejected.WithLabelValues(reason).Inc()
}

// RecordsEvicted records block records dropped from the registry.
func (m *Metrics) RecordsEvicted(n int, remaining int) {
	if m == nil || n == 0 {
		return
	}
	m.recordsEvicted.Add(float64(n))
	m.records.Set(float64(remaining))
}

// PoolSize sets the pending pool gauge.
func (m *Metrics) PoolSize(n int) {
	if m == nil {
		return
	}
	m.poolSize.Set(float64(n))
}

// PoolEvicted records pending transactions dropped for capacity.
func (m *Metrics) PoolEvicted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.poolEvicted.Add(float64(n))
}
