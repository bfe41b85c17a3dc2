package monitoring

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// findSeries returns the series of name whose labels equal want, or nil
func findSeries(t *testing.T, reg *Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Snapshot()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsEqual(m.GetLabel(), want) {
				return m
			}
		}
	}
	return nil
}

func labelsEqual(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, lp := range pairs {
		if v, ok := want[lp.GetName()]; !ok || v != lp.GetValue() {
			return false
		}
	}
	return true
}

func counterValue(t *testing.T, reg *Registry, name string, labels map[string]string) float64 {
	t.Helper()
	m := findSeries(t, reg, name, labels)
	if m == nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, reg *Registry, name string, labels map[string]string) float64 {
	t.Helper()
	m := findSeries(t, reg, name, labels)
	require.NotNil(t, m, "series %s%v not found", name, labels)
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, reg *Registry, name string, labels map[string]string) uint64 {
	t.Helper()
	m := findSeries(t, reg, name, labels)
	if m == nil {
		return 0
	}
	return m.GetHistogram().GetSampleCount()
}
