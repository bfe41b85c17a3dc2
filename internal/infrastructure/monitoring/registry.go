package monitoring

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type family struct {
	desc    Descriptor
	counter *prometheus.CounterVec
	gauge   *prometheus.GaugeVec
	hist    *prometheus.HistogramVec
	infoSet bool
}

func (f *family) collector() prometheus.Collector {
	switch {
	case f.counter != nil:
		return f.counter
	case f.hist != nil:
		return f.hist
	default:
		return f.gauge
	}
}

// Registry owns every metric family of the process and the series under them.
// Series values live in client_golang collectors backed by a private
// prometheus.Registry, so nothing leaks into the global default registerer.
type Registry struct {
	mu       sync.RWMutex
	prom     *prometheus.Registry
	families map[string]*family
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		prom:     prometheus.NewRegistry(),
		families: make(map[string]*family),
	}
}

// Register declares a metric family. Registering an identical descriptor again
// is a no-op; the same name with a different kind, label set or bucket layout
// fails with ErrDuplicateMetric.
func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.families[d.Name]; ok {
		if existing.desc.sameShape(d) {
			return nil
		}
		return fmt.Errorf("%w: %s registered as %s%v, requested %s%v",
			ErrDuplicateMetric, d.Name,
			existing.desc.Kind, existing.desc.Labels, d.Kind, d.Labels)
	}

	f := &family{desc: d.clone()}
	switch d.Kind {
	case KindCounter:
		f.counter = prometheus.NewCounterVec(prometheus.CounterOpts{Name: d.Name, Help: d.Help}, f.desc.Labels)
	case KindGauge, KindInfo:
		f.gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: d.Name, Help: d.Help}, f.desc.Labels)
	case KindHistogram:
		f.hist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    d.Name,
			Help:    d.Help,
			Buckets: f.desc.Buckets,
		}, f.desc.Labels)
	}

	if err := r.prom.Register(f.collector()); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return fmt.Errorf("%w: %s", ErrDuplicateMetric, d.Name)
		}
		return fmt.Errorf("register %s: %w", d.Name, err)
	}

	r.families[d.Name] = f
	return nil
}

// MustRegister registers every descriptor and panics on the first failure
func (r *Registry) MustRegister(ds ...Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Series returns the series of a metric for the given label values, creating
// it at zero on first use.
func (r *Registry) Series(name string, labelValues ...string) (*Series, error) {
	f, err := r.lookup(name, labelValues)
	if err != nil {
		return nil, err
	}

	s := &Series{name: name, kind: f.desc.Kind}
	switch f.desc.Kind {
	case KindCounter:
		s.counter, err = f.counter.GetMetricWithLabelValues(labelValues...)
	case KindGauge:
		s.gauge, err = f.gauge.GetMetricWithLabelValues(labelValues...)
	case KindHistogram:
		s.observer, err = f.hist.GetMetricWithLabelValues(labelValues...)
	case KindInfo:
		return nil, fmt.Errorf("%w: %s is an info metric, use SetInfo", ErrKindMismatch, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLabelMismatch, name, err)
	}
	return s, nil
}

// SetInfo sets the single series of an info metric. It may be called once.
func (r *Registry) SetInfo(name string, labelValues ...string) error {
	f, err := r.lookup(name, labelValues)
	if err != nil {
		return err
	}
	if f.desc.Kind != KindInfo {
		return fmt.Errorf("%w: %s is a %s", ErrKindMismatch, name, f.desc.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f.infoSet {
		return fmt.Errorf("%w: %s", ErrInfoAlreadySet, name)
	}
	g, err := f.gauge.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLabelMismatch, name, err)
	}
	g.Set(1)
	f.infoSet = true
	return nil
}

func (r *Registry) lookup(name string, labelValues []string) (*family, error) {
	r.mu.RLock()
	f, ok := r.families[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	if len(labelValues) != len(f.desc.Labels) {
		return nil, fmt.Errorf("%w: %s wants %d values %v, got %d",
			ErrLabelMismatch, name, len(f.desc.Labels), f.desc.Labels, len(labelValues))
	}
	return f, nil
}

// Snapshot gathers a point-in-time copy of every family. Each series in the
// result is internally consistent; families are sorted by name.
func (r *Registry) Snapshot() ([]*dto.MetricFamily, error) {
	return r.prom.Gather()
}

// Gatherer exposes the registry to promhttp and other client_golang consumers
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.prom
}

// Descriptors lists the registered descriptors sorted by name
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.families))
	for _, f := range r.families {
		out = append(out, f.desc.clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Series is a handle on one labelled series of a metric
type Series struct {
	name     string
	kind     Kind
	counter  prometheus.Counter
	gauge    prometheus.Gauge
	observer prometheus.Observer
}

// Add adds delta. Counters reject negative deltas.
func (s *Series) Add(delta float64) error {
	switch s.kind {
	case KindCounter:
		if delta < 0 {
			return fmt.Errorf("%w: %s by %g", ErrNegativeDelta, s.name, delta)
		}
		s.counter.Add(delta)
	case KindGauge:
		s.gauge.Add(delta)
	default:
		return s.mismatch("add")
	}
	return nil
}

// Inc adds one
func (s *Series) Inc() error {
	return s.Add(1)
}

// Dec subtracts one from a gauge
func (s *Series) Dec() error {
	if s.kind != KindGauge {
		return s.mismatch("dec")
	}
	s.gauge.Dec()
	return nil
}

// Set replaces a gauge value
func (s *Series) Set(v float64) error {
	if s.kind != KindGauge {
		return s.mismatch("set")
	}
	s.gauge.Set(v)
	return nil
}

// Observe records one histogram observation
func (s *Series) Observe(v float64) error {
	if s.kind != KindHistogram {
		return s.mismatch("observe")
	}
	s.observer.Observe(v)
	return nil
}

func (s *Series) mismatch(op string) error {
	return fmt.Errorf("%w: %s on %s %s", ErrKindMismatch, op, s.kind, s.name)
}
