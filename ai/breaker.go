// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"sync"
	"time"
)

// CircuitState is the circuit breaker state.
type CircuitState int

const (
	// CircuitClosed is normal operation; calls pass through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the reset timeout elapses.
	CircuitOpen
	// CircuitHalfOpen allows a bounded number of probe calls.
	CircuitHalfOpen
)

// String returns a human-readable state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker tracks backend failures for one session and fails fast
// once the failure threshold is crossed. After ResetTimeout it lets a
// bounded number of probe calls through; sustained success closes it
// again, any probe failure reopens it immediately.
//
// All operations are atomic under a single mutex and never block beyond
// the critical section. Safe for concurrent use.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         CircuitState
	failureCount  int
	lastFailure   time.Time
	halfOpenCalls int
	cfg           BreakerConfig
	now           func() time.Time // injectable clock for testing
}

// BreakerOption configures a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithClock sets a custom clock function (for testing).
func WithClock(fn func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) { cb.now = fn }
}

// NewCircuitBreaker creates a closed breaker with the given settings.
func NewCircuitBreaker(cfg BreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		state: CircuitClosed,
		cfg:   cfg,
		now:   time.Now,
	}
	for _, o := range opts {
		o(cb)
	}
	return cb
}

// State returns the current state without side effects.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CanExecute reports whether a call may proceed. When the breaker is open
// and the reset timeout has elapsed it transitions to half-open as a side
// effect, resetting the probe counter.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if !cb.lastFailure.IsZero() && cb.now().Sub(cb.lastFailure) >= cb.cfg.ResetTimeout {
			cb.state = CircuitHalfOpen
			cb.halfOpenCalls = 0
			return true
		}
		return false
	default: // CircuitHalfOpen
		return cb.halfOpenCalls < cb.cfg.HalfOpenMaxCalls
	}
}

// RecordSuccess records a successful call. In half-open state, enough
// consecutive successes close the breaker; in closed state every success
// resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.halfOpenCalls++
		if cb.halfOpenCalls >= cb.cfg.HalfOpenMaxCalls {
			cb.state = CircuitClosed
			cb.failureCount = 0
		}
		return
	}
	cb.failureCount = 0
}

// RecordFailure records a failed call. Crossing the failure threshold
// opens the breaker; any failure in half-open state reopens it
// immediately regardless of the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailure = cb.now()

	if cb.failureCount >= cb.cfg.FailureThreshold {
		cb.state = CircuitOpen
		return
	}
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
	}
}
