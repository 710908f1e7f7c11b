package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the breaker refuses traffic.
var ErrBreakerOpen = errors.New("upstream suspended: breaker open")

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerSettings tunes one upstream's breaker. Zero values fall back to
// defaults suited to a batch fetcher.
type BreakerSettings struct {
	Enabled bool
	// TripAfter is the number of consecutive failures before opening.
	TripAfter int
	// Cooldown is how long traffic is refused once open.
	Cooldown time.Duration
	// ProbeQuota is how many probe requests the half-open state admits.
	ProbeQuota int
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.TripAfter < 1 {
		s.TripAfter = 5
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 15 * time.Second
	}
	if s.ProbeQuota < 1 {
		s.ProbeQuota = 2
	}
	return s
}

// Breaker cuts an upstream off after repeated failures and lets a bounded
// number of probe requests through once the cooldown has passed. All probes
// must succeed before normal traffic resumes.
type Breaker struct {
	settings BreakerSettings
	clock    func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	retryAt  time.Time
	probes   int
	probeOK  int
}

func NewBreaker(settings BreakerSettings) *Breaker {
	return &Breaker{
		settings: settings.withDefaults(),
		clock:    time.Now,
	}
}

// Allow reports whether a request may proceed right now. While half-open it
// admits requests against the probe quota.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.clock().Before(b.retryAt) {
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.probes = 0
		b.probeOK = 0
		fallthrough
	case BreakerHalfOpen:
		if b.probes >= b.settings.ProbeQuota {
			return ErrBreakerOpen
		}
		b.probes++
	}

	return nil
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.probeOK++
		if b.probeOK >= b.settings.ProbeQuota {
			b.reset()
		}
	}
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerClosed {
		b.failures++
		if b.failures >= b.settings.TripAfter {
			b.trip()
		}
		return
	}

	// Any failure while open or probing restarts the cooldown.
	b.trip()
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && !b.clock().Before(b.retryAt) {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) trip() {
	b.state = BreakerOpen
	b.retryAt = b.clock().Add(b.settings.Cooldown)
	b.failures = 0
	b.probes = 0
	b.probeOK = 0
}

func (b *Breaker) reset() {
	b.state = BreakerClosed
	b.failures = 0
	b.probes = 0
	b.probeOK = 0
	b.retryAt = time.Time{}
}
