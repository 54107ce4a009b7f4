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
	"errors"
	"fmt"
)

// Configuration errors. These are fatal: they surface at construction or
// Initialize time and are never retried.
var (
	// ErrAPIKeyRequired indicates the chat backend was selected without an API key.
	ErrAPIKeyRequired = errors.New("ai config: API key required")

	// ErrBaseURLRequired indicates the chat backend was selected without a base URL.
	ErrBaseURLRequired = errors.New("ai config: base URL required")

	// ErrGenerateHostRequired indicates the generate backend was selected without a host.
	ErrGenerateHostRequired = errors.New("ai config: generate host required")

	// ErrNoBackend indicates no backend could be detected from configuration
	// or environment.
	ErrNoBackend = errors.New("ai config: no usable backend detected")
)

// Runtime errors.
var (
	// ErrCircuitOpen is returned by Session.Send when the circuit breaker
	// rejects the call. No network attempt is made.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrEmptyResponse indicates the backend returned an empty body. It is
	// treated exactly like a transport failure: retried, and recorded on
	// the circuit breaker.
	ErrEmptyResponse = errors.New("empty response from backend")

	// ErrSessionNotFound is returned when releasing an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPoolClosed is returned when using a pool after Shutdown.
	ErrPoolClosed = errors.New("connection pool closed")

	// ErrFutureTimeout is returned by Future.WaitTimeout when the result
	// does not arrive in time.
	ErrFutureTimeout = errors.New("timed out waiting for result")
)

// RetryError wraps the last transient error after all retry attempts are
// spent. Use errors.Is/errors.As on the wrapped cause to classify it.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("backend call failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}
