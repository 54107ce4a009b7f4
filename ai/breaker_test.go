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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 2,
	}
}

// fakeClock is an adjustable time source for breaker tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker() (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000000, 0)}
	return NewCircuitBreaker(testBreakerConfig(), WithClock(clock.Now)), clock
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker()

	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.CanExecute())

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.CanExecute())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.CanExecute())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker()

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	// The count restarted, so two more failures stay below the threshold.
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb, clock := newTestBreaker()

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.CanExecute())

	clock.Advance(29 * time.Second)
	assert.False(t, cb.CanExecute())

	clock.Advance(time.Second)
	assert.True(t, cb.CanExecute())
	assert.Equal(t, CircuitHalfOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenClosesAfterSuccesses(t *testing.T) {
	cb, clock := newTestBreaker()

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	clock.Advance(30 * time.Second)
	require.True(t, cb.CanExecute())

	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.True(t, cb.CanExecute())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.CanExecute())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker()

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	clock.Advance(30 * time.Second)
	require.True(t, cb.CanExecute())
	require.Equal(t, CircuitHalfOpen, cb.State())

	// A single failure in half-open reopens immediately, threshold or not.
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.CanExecute())
}

func TestCircuitBreaker_HalfOpenProbeLimit(t *testing.T) {
	cb, clock := newTestBreaker()

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	clock.Advance(30 * time.Second)
	require.True(t, cb.CanExecute())

	// One success used; one probe slot remains before the breaker closes.
	cb.RecordSuccess()
	assert.True(t, cb.CanExecute())
	cb.RecordSuccess()

	assert.Equal(t, CircuitClosed, cb.State())
}
