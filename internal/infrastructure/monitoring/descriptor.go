package monitoring

import (
	"errors"
	"fmt"
	"slices"

	"github.com/prometheus/common/model"
)

// Kind identifies how a metric's series accumulate values
type Kind int

const (
	// KindCounter is a monotonically non-decreasing value
	KindCounter Kind = iota
	// KindGauge is an arbitrary value that may go up or down
	KindGauge
	// KindHistogram distributes observations into cumulative buckets
	KindHistogram
	// KindInfo is a constant-1 gauge whose labels carry static metadata
	KindInfo
)

// String returns the exposition type name of the kind
func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	case KindInfo:
		return "info"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Registry errors
var (
	ErrInvalidDescriptor = errors.New("invalid metric descriptor")
	ErrDuplicateMetric   = errors.New("metric already registered with a different shape")
	ErrUnknownMetric     = errors.New("unknown metric")
	ErrLabelMismatch     = errors.New("label values do not match metric labels")
	ErrKindMismatch      = errors.New("operation not supported by metric kind")
	ErrNegativeDelta     = errors.New("counter delta must not be negative")
	ErrInfoAlreadySet    = errors.New("info metric already set")
)

// Descriptor is the immutable definition of a metric family
type Descriptor struct {
	Name    string
	Help    string
	Kind    Kind
	Labels  []string
	Buckets []float64
}

// Validate checks the descriptor against the exposition naming rules
func (d Descriptor) Validate() error {
	if !model.IsValidLegacyMetricName(model.LabelValue(d.Name)) {
		return fmt.Errorf("%w: bad metric name %q", ErrInvalidDescriptor, d.Name)
	}
	if d.Kind < KindCounter || d.Kind > KindInfo {
		return fmt.Errorf("%w: %s has unknown kind %d", ErrInvalidDescriptor, d.Name, int(d.Kind))
	}

	seen := make(map[string]struct{}, len(d.Labels))
	for _, l := range d.Labels {
		if !model.LabelName(l).IsValid() || l == "le" {
			return fmt.Errorf("%w: %s has bad label name %q", ErrInvalidDescriptor, d.Name, l)
		}
		if _, dup := seen[l]; dup {
			return fmt.Errorf("%w: %s repeats label %q", ErrInvalidDescriptor, d.Name, l)
		}
		seen[l] = struct{}{}
	}

	if d.Kind != KindHistogram {
		if len(d.Buckets) > 0 {
			return fmt.Errorf("%w: %s is a %s and cannot have buckets", ErrInvalidDescriptor, d.Name, d.Kind)
		}
		return nil
	}
	if err := ValidateBuckets(d.Buckets); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, d.Name, err)
	}
	return nil
}

// ValidateBuckets requires a non-empty, strictly ascending bucket layout
func ValidateBuckets(buckets []float64) error {
	if len(buckets) == 0 {
		return errors.New("histogram needs at least one bucket")
	}
	for i := 1; i < len(buckets); i++ {
		if buckets[i] <= buckets[i-1] {
			return fmt.Errorf("buckets not strictly ascending at index %d (%g <= %g)", i, buckets[i], buckets[i-1])
		}
	}
	return nil
}

// sameShape reports whether two descriptors for one name are interchangeable.
// Help text is not part of the shape.
func (d Descriptor) sameShape(o Descriptor) bool {
	return d.Name == o.Name &&
		d.Kind == o.Kind &&
		slices.Equal(d.Labels, o.Labels) &&
		slices.Equal(d.Buckets, o.Buckets)
}

func (d Descriptor) clone() Descriptor {
	d.Labels = slices.Clone(d.Labels)
	d.Buckets = slices.Clone(d.Buckets)
	return d
}
