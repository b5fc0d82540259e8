// Package breaker tracks per-provider failures and temporarily excludes
// providers that are failing repeatedly.
package breaker

import (
	"sync"
	"time"
)

const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second
)

// Breaker is a per-provider circuit breaker. A provider is closed (usable)
// while its consecutive failure count is below the threshold; once tripped it
// stays open until the recovery timeout has elapsed since the last failure,
// at which point the count is reset and the provider gets another chance.
// Recovery is optimistic: a full reset, not a single-trial half-open probe.
type Breaker struct {
	mu               sync.Mutex
	failureThreshold int
	recoveryTimeout  time.Duration
	failures         map[string]int
	lastFailure      map[string]time.Time
}

// New creates a breaker. Non-positive arguments fall back to the defaults.
func New(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = DefaultRecoveryTimeout
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		failures:         make(map[string]int),
		lastFailure:      make(map[string]time.Time),
	}
}

// IsClosed reports whether the provider is currently usable.
func (b *Breaker) IsClosed(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures[name] < b.failureThreshold {
		return true
	}
	if last, ok := b.lastFailure[name]; ok && time.Since(last) > b.recoveryTimeout {
		b.failures[name] = 0
		return true
	}
	return false
}

// RecordSuccess resets the provider's failure count.
func (b *Breaker) RecordSuccess(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[name] = 0
}

// RecordFailure increments the provider's failure count and stamps the
// failure time.
func (b *Breaker) RecordFailure(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[name]++
	b.lastFailure[name] = time.Now()
}

// Failures returns a snapshot of current failure counts, for observability.
func (b *Breaker) Failures() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.failures))
	for k, v := range b.failures {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}
