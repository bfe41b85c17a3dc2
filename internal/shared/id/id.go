// Package id generates request-scoped identifiers.
//
// Identifiers are ULIDs, optionally prefixed by kind ("trace_", "span_",
// "req_") so they read clearly in logs and response headers. ULIDs sort by
// creation time, and the generator is monotonic within a millisecond.
package id

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TraceID identifies one request flow across services
type TraceID string

// SpanID identifies one operation within a trace
type SpanID string

// RequestID identifies one API request
type RequestID string

// ID prefixes
const (
	TracePrefix   = "trace"
	SpanPrefix    = "span"
	RequestPrefix = "req"
)

// Generator produces ULIDs from a shared entropy source
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader, time.Now)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
// and clock, for deterministic tests
func NewGeneratorWithEntropy(entropy io.Reader, now func() time.Time) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
		now:     now,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateWithPrefix creates a "prefix_ULID" string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return prefix + "_" + g.Generate().String()
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id TraceID) String() string   { return string(id) }
func (id SpanID) String() string    { return string(id) }
func (id RequestID) String() string { return string(id) }

// Parse parses an ID with or without its kind prefix
func Parse(s string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	return ulid.Parse(s)
}

// IsValid reports whether s is a ULID, optionally prefixed
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Timestamp extracts the creation time of an ID
func Timestamp(s string) (time.Time, error) {
	parsed, err := Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
