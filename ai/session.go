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
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Session is a stateful conversation handle against one backend connection.
// Implementations serialize calls internally: at most one Send is in flight
// per session at any time.
type Session interface {
	// ID returns the session identifier.
	ID() string

	// Kind returns the backend protocol shape this session speaks.
	Kind() BackendKind

	// Send delivers one message and returns the backend response. It
	// applies the session's circuit breaker (if any) and retry policy.
	Send(ctx context.Context, message string) (*Response, error)

	// IsExpired reports whether the session has been idle longer than maxIdle.
	IsExpired(maxIdle time.Duration) bool

	// History returns a copy of the full in-memory conversation history.
	History() []Message
}

// summaryTurn replaces compacted history when the conversation exceeds the
// configured pair bound. The in-memory record is never truncated; only the
// payload sent upstream is.
const summaryTurn = "[Summary of earlier conversation: the user asked about thesis analysis and literature review; the assistant provided the corresponding analysis.]"

// baseSession carries the state and behavior shared by both backend
// variants: identity, timestamps, the serialization lock, the conversation
// history and the retry/backoff loop.
type baseSession struct {
	id        string
	kind      BackendKind
	createdAt time.Time

	mu      sync.Mutex // serializes Send; guards history
	history []Message

	timeMu   sync.Mutex // guards lastUsed only; never held across a backend call
	lastUsed time.Time

	model  ModelConfig
	pairs  int // max history pairs sent upstream
	logger *slog.Logger
}

func newBaseSession(id string, kind BackendKind, model ModelConfig, pairs int, logger *slog.Logger) baseSession {
	now := time.Now()
	return baseSession{
		id:        id,
		kind:      kind,
		createdAt: now,
		lastUsed:  now,
		model:     model,
		pairs:     pairs,
		logger:    logger.With("session", id),
	}
}

func (s *baseSession) ID() string        { return s.id }
func (s *baseSession) Kind() BackendKind { return s.kind }

// IsExpired reports whether the session idled past maxIdle. It takes only
// the timestamp lock, not the Send lock, so the pool's lookup and expiry
// sweep never wait behind an in-flight backend call.
func (s *baseSession) IsExpired(maxIdle time.Duration) bool {
	s.timeMu.Lock()
	defer s.timeMu.Unlock()
	return time.Since(s.lastUsed) > maxIdle
}

// History returns a copy of the full conversation history.
func (s *baseSession) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// touch advances lastUsed.
func (s *baseSession) touch() {
	s.timeMu.Lock()
	s.lastUsed = time.Now()
	s.timeMu.Unlock()
}

// appendTurn records a completed user/assistant exchange. Must be called
// with mu held.
func (s *baseSession) appendTurn(user, assistant string) {
	s.history = append(s.history,
		Message{Role: RoleUser, Content: user},
		Message{Role: RoleAssistant, Content: assistant},
	)
}

// upstreamHistory returns the history slice actually sent to the backend.
// When the conversation exceeds the pair bound, older turns collapse into a
// single synthetic summary turn so the upstream payload stays bounded.
// Must be called with mu held.
func (s *baseSession) upstreamHistory() []Message {
	limit := s.pairs * 2
	if len(s.history) <= limit {
		out := make([]Message, len(s.history))
		copy(out, s.history)
		return out
	}
	recent := s.history[len(s.history)-limit:]
	out := make([]Message, 0, limit+1)
	out = append(out, Message{Role: RoleAssistant, Content: summaryTurn})
	out = append(out, recent...)
	return out
}

// backendCall performs one attempt against the backend and returns the
// response text plus call metadata. An empty text is reported by the retry
// loop as ErrEmptyResponse, never as success.
type backendCall func(ctx context.Context) (string, map[string]any, error)

// sendWithRetry runs the shared retry/backoff loop around a backend call.
// Each attempt is bounded by the model timeout. Failures (errors, timeouts
// and empty responses alike) are recorded on the breaker when one is
// present; the first success records success and returns. When attempts
// are exhausted the last error is wrapped in a RetryError.
//
// Must be called with the session lock held; the lock is deliberately kept
// across the network call to guarantee per-session serialization.
func (s *baseSession) sendWithRetry(ctx context.Context, breaker *CircuitBreaker, call backendCall) (string, map[string]any, error) {
	if breaker != nil && !breaker.CanExecute() {
		s.logger.Warn("circuit breaker rejected call", "state", breaker.State().String())
		return "", nil, ErrCircuitOpen
	}

	attempts := s.model.MaxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.model.Timeout)
		start := time.Now()
		content, meta, err := call(callCtx)
		cancel()

		if err == nil && content == "" {
			// Empty body counts as a failure, exactly like a transport error.
			err = ErrEmptyResponse
		}

		if err == nil {
			if breaker != nil {
				breaker.RecordSuccess()
			}
			if meta == nil {
				meta = make(map[string]any)
			}
			meta["attempt"] = attempt + 1
			meta["total_attempts"] = attempts
			meta["response_time"] = time.Since(start).String()
			if attempt > 0 {
				s.logger.Info("backend call succeeded after retry", "attempt", attempt+1)
			}
			return content, meta, nil
		}

		lastErr = err
		if breaker != nil {
			breaker.RecordFailure()
		}
		s.logger.Warn("backend call failed",
			"attempt", attempt+1,
			"total_attempts", attempts,
			"err", err)

		if attempt == attempts-1 {
			break
		}
		if sleepErr := s.sleepBackoff(ctx, attempt); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	return "", nil, &RetryError{Attempts: attempts, Err: lastErr}
}

// sleepBackoff waits before the next attempt, respecting context
// cancellation. With exponential backoff the delay is
// RetryDelay * BackoffFactor^attempt, otherwise constant RetryDelay.
func (s *baseSession) sleepBackoff(ctx context.Context, attempt int) error {
	delay := s.model.RetryDelay
	if s.model.ExponentialBackoff {
		delay = time.Duration(float64(delay) * math.Pow(s.model.BackoffFactor, float64(attempt)))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// newSession wraps a raw backend handle in the session variant matching kind.
func newSession(id string, kind BackendKind, handle llms.Model, cfg *Config, logger *slog.Logger) Session {
	model := cfg.modelConfig(kind)
	pairs := cfg.Session.MaxHistoryPairs
	if kind == BackendGenerate {
		return &generateSession{
			baseSession: newBaseSession(id, kind, model, pairs, logger),
			handle:      handle,
		}
	}
	return &chatSession{
		baseSession: newBaseSession(id, kind, model, pairs, logger),
		handle:      handle,
		breaker:     NewCircuitBreaker(cfg.Breaker),
	}
}
