package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMetricsExportsWritesAndGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)

	m.ObserveWrite("insert", nil)
	m.ObserveWrite("insert", nil)
	m.ObserveWrite("delete", errors.New("boom"))
	m.ObserveWrite("", nil)
	m.SetItems(3)
	m.SetObservers(2)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "zaloga_item_writes_total", map[string]string{"op": "insert", "result": "ok"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	got, err = fetchCounterValue(mfs, "zaloga_item_writes_total", map[string]string{"op": "delete", "result": "error"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "zaloga_item_writes_total", map[string]string{"op": "unknown", "result": "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	assert.Equal(t, 3.0, fetchGaugeValue(t, mfs, "zaloga_items"))
	assert.Equal(t, 2.0, fetchGaugeValue(t, mfs, "zaloga_observers"))
}

func TestNilStoreMetricsIsNoop(t *testing.T) {
	var m *StoreMetrics
	assert.NotPanics(t, func() {
		m.ObserveWrite("insert", nil)
		m.SetItems(1)
		m.SetObservers(1)
	})

	unregistered := NewStoreMetrics(nil)
	assert.NotPanics(t, func() {
		unregistered.ObserveWrite("delete", nil)
		unregistered.SetItems(1)
	})
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchGaugeValue(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	require.NotNil(t, mf, "metric %q not found", name)
	require.Len(t, mf.GetMetric(), 1)
	return mf.GetMetric()[0].GetGauge().GetValue()
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
