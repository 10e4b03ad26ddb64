// Package breaker wraps calls to flaky dependencies in circuit breakers.
//
// A Breaker is closed while calls succeed. After FailureThreshold
// consecutive failures it opens and every call fails fast with ErrOpen.
// Once CoolDown has elapsed a single trial call is let through (half-open);
// SuccessThreshold successful trials close it again, any failed trial
// reopens it.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without calling the wrapped function while the
// breaker is open. Callers should surface it as service unavailable.
var ErrOpen = errors.New("breaker: circuit open")

// State of a breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config tunes a breaker. Zero values are replaced by DefaultConfig.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	CoolDown         time.Duration

	// IsFailure decides whether an error returned by the wrapped call counts
	// against the breaker. Business rejections from a healthy dependency
	// should not. Defaults to every non-nil error except context.Canceled.
	IsFailure func(error) bool

	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		CoolDown:         30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	if c.CoolDown <= 0 {
		c.CoolDown = def.CoolDown
	}
	if c.IsFailure == nil {
		c.IsFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Metrics is a point-in-time snapshot of a breaker.
type Metrics struct {
	Name                string     `json:"name"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	TotalCalls          uint64     `json:"total_calls"`
	TotalFailures       uint64     `json:"total_failures"`
	TotalRejected       uint64     `json:"total_rejected"`
	OpenedAt            *time.Time `json:"opened_at,omitempty"`
	LastFailure         string     `json:"last_failure,omitempty"`
}

// observer receives state and call events, used for Prometheus export.
type observer interface {
	call(name, result string)
	transition(name string, from, to State)
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name string
	cfg  Config
	obs  observer

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	trial     bool
	openedAt  time.Time
	lastErr   error

	calls    uint64
	failed   uint64
	rejected uint64
}

// New returns a closed breaker.
func New(name string, cfg Config) *Breaker {
	return &Breaker{name: name, cfg: cfg.withDefaults()}
}

// Name returns the operation family the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, moving open to half-open if the
// cool-down has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return b.state
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	trial, err := b.acquire()
	if err != nil {
		return err
	}
	err = fn(ctx)
	b.record(err, trial)
	return err
}

// Call is Do for functions returning a value.
func Call[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := b.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// acquire reports whether the admitted call is the half-open trial.
func (b *Breaker) acquire() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpen()
	trial := false
	switch b.state {
	case StateOpen:
		b.rejected++
		b.emitCall("rejected")
		return false, ErrOpen
	case StateHalfOpen:
		if b.trial {
			b.rejected++
			b.emitCall("rejected")
			return false, ErrOpen
		}
		b.trial = true
		trial = true
	}
	b.calls++
	return trial, nil
}

func (b *Breaker) record(err error, trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A trial only counts if nothing else moved the breaker meanwhile.
	wasTrial := trial && b.state == StateHalfOpen
	if wasTrial {
		b.trial = false
	}

	if err != nil && b.cfg.IsFailure(err) {
		b.failed++
		b.lastErr = err
		b.emitCall("failure")

		if wasTrial {
			b.transition(StateOpen)
			return
		}
		b.failures++
		if b.state == StateClosed && b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
		return
	}

	b.emitCall("success")
	switch {
	case b.state == StateClosed:
		b.failures = 0
	case wasTrial:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(StateClosed)
		}
	}
}

// maybeHalfOpen must be called with mu held.
func (b *Breaker) maybeHalfOpen() {
	if b.state == StateOpen && b.cfg.Now().Sub(b.openedAt) >= b.cfg.CoolDown {
		b.transition(StateHalfOpen)
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to

	switch to {
	case StateClosed:
		b.failures = 0
		b.successes = 0
	case StateOpen:
		b.openedAt = b.cfg.Now()
		b.successes = 0
		b.trial = false
	case StateHalfOpen:
		b.successes = 0
		b.trial = false
	}

	if b.obs != nil && from != to {
		b.obs.transition(b.name, from, to)
	}
}

func (b *Breaker) emitCall(result string) {
	if b.obs != nil {
		b.obs.call(b.name, result)
	}
}

// Metrics returns a snapshot for observability endpoints.
func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()

	m := Metrics{
		Name:                b.name,
		State:               b.state.String(),
		ConsecutiveFailures: b.failures,
		TotalCalls:          b.calls,
		TotalFailures:       b.failed,
		TotalRejected:       b.rejected,
	}
	if b.state != StateClosed {
		at := b.openedAt
		m.OpenedAt = &at
	}
	if b.lastErr != nil {
		m.LastFailure = b.lastErr.Error()
	}
	return m
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
}
