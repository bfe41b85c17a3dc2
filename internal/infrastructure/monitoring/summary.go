package monitoring

import (
	"math"

	dto "github.com/prometheus/client_model/go"
)

// FamilySummary is a JSON-friendly view of one metric family
type FamilySummary struct {
	Name   string          `json:"name"`
	Help   string          `json:"help"`
	Type   string          `json:"type"`
	Series []SeriesSummary `json:"series"`
}

// SeriesSummary is one series of a family. Value is set for counters and
// gauges; Count and Sum for histograms.
type SeriesSummary struct {
	Labels map[string]string `json:"labels,omitempty"`
	Value  *float64          `json:"value,omitempty"`
	Count  *uint64           `json:"count,omitempty"`
	Sum    *float64          `json:"sum,omitempty"`
}

// Summarize converts gathered families into their JSON view
func Summarize(families []*dto.MetricFamily) []FamilySummary {
	out := make([]FamilySummary, 0, len(families))
	for _, mf := range families {
		fs := FamilySummary{
			Name:   mf.GetName(),
			Help:   mf.GetHelp(),
			Type:   typeName(mf.GetType()),
			Series: make([]SeriesSummary, 0, len(mf.GetMetric())),
		}
		for _, m := range mf.GetMetric() {
			s := SeriesSummary{}
			if lps := m.GetLabel(); len(lps) > 0 {
				s.Labels = make(map[string]string, len(lps))
				for _, lp := range lps {
					s.Labels[lp.GetName()] = lp.GetValue()
				}
			}
			switch {
			case m.Counter != nil:
				s.Value = finite(m.GetCounter().GetValue())
			case m.Gauge != nil:
				s.Value = finite(m.GetGauge().GetValue())
			case m.Histogram != nil:
				count := m.GetHistogram().GetSampleCount()
				s.Count = &count
				s.Sum = finite(m.GetHistogram().GetSampleSum())
			}
			fs.Series = append(fs.Series, s)
		}
		out = append(out, fs)
	}
	return out
}

func typeName(t dto.MetricType) string {
	switch t {
	case dto.MetricType_COUNTER:
		return "counter"
	case dto.MetricType_GAUGE:
		return "gauge"
	case dto.MetricType_HISTOGRAM:
		return "histogram"
	default:
		return "untyped"
	}
}

// finite drops NaN and infinities, which JSON cannot carry
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
