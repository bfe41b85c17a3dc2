package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the guarded function while the
// breaker is cooling down
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold uint32
	// CoolDown is how long the breaker stays open before letting one probe through
	CoolDown time.Duration
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
	// Now overrides the clock, for tests
	Now func() time.Time
}

// Counts holds the statistics for the circuit breaker
type Counts struct {
	TotalSuccesses      uint64
	TotalFailures       uint64
	ConsecutiveFailures uint32
}

// Breaker stops calling an operation that keeps failing and retries it once
// per cool-down period
type Breaker struct {
	name     string
	settings Settings

	mu        sync.Mutex
	state     State
	counts    Counts
	openUntil time.Time
	probing   bool
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 3
	}
	if settings.CoolDown <= 0 {
		settings.CoolDown = time.Minute
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Breaker{name: name, settings: settings}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh(b.settings.Now())
	return b.state
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Execute calls fn unless the breaker is open. A panic in fn counts as a
// failure and is re-raised.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}

	ok := false
	defer func() {
		b.release(ok)
	}()

	err := fn()
	ok = err == nil
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh(b.settings.Now())
	switch b.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) release(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.settings.Now()
	b.probing = false

	if success {
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveFailures = 0
		b.setState(StateClosed, now)
		return
	}

	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	if b.state == StateHalfOpen || b.counts.ConsecutiveFailures >= b.settings.FailureThreshold {
		b.setState(StateOpen, now)
	}
}

// refresh moves an expired open breaker to half-open
func (b *Breaker) refresh(now time.Time) {
	if b.state == StateOpen && !now.Before(b.openUntil) {
		b.setState(StateHalfOpen, now)
	}
}

func (b *Breaker) setState(state State, now time.Time) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	if state == StateOpen {
		b.openUntil = now.Add(b.settings.CoolDown)
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
