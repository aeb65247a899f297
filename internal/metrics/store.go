// Package metrics exports Prometheus instruments for the inventory pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records item writes and the size of the live inventory.
// A nil *StoreMetrics is valid and records nothing.
type StoreMetrics struct {
	writes    *prometheus.CounterVec
	items     prometheus.Gauge
	observers prometheus.Gauge
}

// NewStoreMetrics registers the store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zaloga_item_writes_total",
		Help: "Item mutations by operation and result.",
	}, []string{"op", "result"})
	items := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zaloga_items",
		Help: "Rows in the latest inventory snapshot.",
	})
	observers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zaloga_observers",
		Help: "Open inventory observers.",
	})
	reg.MustRegister(writes, items, observers)
	return &StoreMetrics{
		writes:    writes,
		items:     items,
		observers: observers,
	}
}

// ObserveWrite counts one mutation of kind op.
func (m *StoreMetrics) ObserveWrite(op string, err error) {
	if m == nil || m.writes == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.writes.WithLabelValues(normalizeLabel(op), result).Inc()
}

// SetItems records the size of the latest snapshot.
func (m *StoreMetrics) SetItems(n int) {
	if m == nil || m.items == nil {
		return
	}
	m.items.Set(float64(n))
}

// SetObservers records the number of open observers.
func (m *StoreMetrics) SetObservers(n int) {
	if m == nil || m.observers == nil {
		return
	}
	m.observers.Set(float64(n))
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
