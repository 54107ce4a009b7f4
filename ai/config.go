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
	"os"
	"strings"
	"time"
)

// ModelConfig holds the per-backend call parameters.
type ModelConfig struct {
	// Model is the model identifier sent to the backend.
	Model string

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens caps the completion length.
	MaxTokens int

	// Timeout bounds a single backend call. A timed-out call counts as a
	// transient failure for retry and circuit breaker purposes.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// RetryDelay is the base sleep between attempts.
	RetryDelay time.Duration

	// ExponentialBackoff multiplies RetryDelay by BackoffFactor^attempt.
	// When false the delay is constant.
	ExponentialBackoff bool

	// BackoffFactor is the exponential growth factor (ignored unless
	// ExponentialBackoff is set).
	BackoffFactor float64
}

// BreakerConfig configures the per-session circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive failure count that opens the breaker.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before allowing a probe.
	ResetTimeout time.Duration

	// HalfOpenMaxCalls is the consecutive success count that closes the
	// breaker from half-open, and the cap on half-open probe calls.
	HalfOpenMaxCalls int
}

// SessionConfig configures session lifecycle behavior.
type SessionConfig struct {
	// MaxIdle is the idle duration after which the background sweep evicts
	// a session.
	MaxIdle time.Duration

	// MaxHistoryPairs bounds how many recent user/assistant pairs are sent
	// upstream. Older turns are replaced by a synthetic summary turn; the
	// in-memory history is never truncated.
	MaxHistoryPairs int

	// SweepInterval is how often the expiry sweep runs.
	SweepInterval time.Duration
}

// Config holds all settings for the client layer.
type Config struct {
	// Backend selects the protocol shape. BackendAuto detects one at
	// Initialize time.
	Backend BackendKind

	// APIKey and BaseURL are the chat backend credentials.
	APIKey  string
	BaseURL string

	// GenerateHost is the generate backend server URL.
	GenerateHost string

	// MaxWorkers bounds the dispatch worker pool.
	MaxWorkers int

	// MaxConnections bounds the raw backend handle pool.
	MaxConnections int

	// BatchTimeout is the fixed per-call timeout applied by SendBatch.
	BatchTimeout time.Duration

	Chat     ModelConfig
	Generate ModelConfig
	Breaker  BreakerConfig
	Session  SessionConfig
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend forces a specific backend kind, bypassing detection.
func WithBackend(kind BackendKind) ConfigOption {
	return func(c *Config) { c.Backend = kind }
}

// WithAPIKey sets the chat backend API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL sets the chat backend base URL.
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) { c.BaseURL = url }
}

// WithGenerateHost sets the generate backend server URL.
func WithGenerateHost(host string) ConfigOption {
	return func(c *Config) { c.GenerateHost = host }
}

// WithMaxWorkers sets the dispatch worker pool size.
func WithMaxWorkers(n int) ConfigOption {
	return func(c *Config) { c.MaxWorkers = n }
}

// WithMaxConnections sets the backend handle pool size.
func WithMaxConnections(n int) ConfigOption {
	return func(c *Config) { c.MaxConnections = n }
}

// WithChatModel sets the chat backend model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) { c.Chat.Model = model }
}

// WithGenerateModel sets the generate backend model identifier.
func WithGenerateModel(model string) ConfigOption {
	return func(c *Config) { c.Generate.Model = model }
}

// WithBreaker replaces the circuit breaker settings.
func WithBreaker(b BreakerConfig) ConfigOption {
	return func(c *Config) { c.Breaker = b }
}

// WithSession replaces the session lifecycle settings.
func WithSession(s SessionConfig) ConfigOption {
	return func(c *Config) { c.Session = s }
}

// WithBatchTimeout sets the per-call timeout used by SendBatch.
func WithBatchTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.BatchTimeout = d }
}

// DefaultConfig returns a Config with sensible defaults. The chat defaults
// favor deterministic extraction (low temperature); the generate defaults
// favor a local single-prompt server.
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendAuto,
		MaxWorkers:     5,
		MaxConnections: 10,
		BatchTimeout:   60 * time.Second,
		Chat: ModelConfig{
			Model:              "gpt-4o-mini",
			Temperature:        0.1,
			MaxTokens:          8192,
			Timeout:            120 * time.Second,
			MaxRetries:         3,
			RetryDelay:         time.Second,
			ExponentialBackoff: true,
			BackoffFactor:      2.0,
		},
		Generate: ModelConfig{
			Model:              "qwen2.5:3b",
			Temperature:        0.7,
			MaxTokens:          8192,
			Timeout:            120 * time.Second,
			MaxRetries:         3,
			RetryDelay:         time.Second,
			ExponentialBackoff: true,
			BackoffFactor:      2.0,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     300 * time.Second,
			HalfOpenMaxCalls: 3,
		},
		Session: SessionConfig{
			MaxIdle:         time.Hour,
			MaxHistoryPairs: 5,
			SweepInterval:   time.Minute,
		},
	}
}

// NewConfig creates a Config with defaults and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in canonical form. The chat base
// URL gets the /v1 suffix OpenAI-compatible APIs expect.
func (c *Config) Normalize() {
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/v1") {
		c.BaseURL = strings.TrimSuffix(c.BaseURL, "/") + "/v1"
	}
}

// Validate checks structural validity. Credential presence for the selected
// backend is checked separately at pool initialization, after detection.
func (c *Config) Validate() error {
	c.Normalize()

	if c.MaxWorkers < 1 {
		return errors.New("ai config: MaxWorkers must be at least 1")
	}
	if c.MaxConnections < 1 {
		return errors.New("ai config: MaxConnections must be at least 1")
	}
	if c.BatchTimeout <= 0 {
		return errors.New("ai config: BatchTimeout must be positive")
	}
	if c.Breaker.FailureThreshold < 1 {
		return errors.New("ai config: Breaker.FailureThreshold must be at least 1")
	}
	if c.Breaker.ResetTimeout <= 0 {
		return errors.New("ai config: Breaker.ResetTimeout must be positive")
	}
	if c.Breaker.HalfOpenMaxCalls < 1 {
		return errors.New("ai config: Breaker.HalfOpenMaxCalls must be at least 1")
	}
	if c.Session.MaxIdle <= 0 {
		return errors.New("ai config: Session.MaxIdle must be positive")
	}
	if c.Session.MaxHistoryPairs < 1 {
		return errors.New("ai config: Session.MaxHistoryPairs must be at least 1")
	}
	if c.Session.SweepInterval <= 0 {
		return errors.New("ai config: Session.SweepInterval must be positive")
	}
	for _, mc := range []ModelConfig{c.Chat, c.Generate} {
		if mc.MaxRetries < 0 {
			return errors.New("ai config: MaxRetries cannot be negative")
		}
		if mc.Timeout <= 0 {
			return errors.New("ai config: Timeout must be positive")
		}
	}
	return nil
}

// Environment variables consulted by backend detection, in fallback order.
const (
	envAPIKey       = "EVALIT_API_KEY"
	envAPIBase      = "EVALIT_API_BASE"
	envGenerateHost = "OLLAMA_HOST"
)

// DetectBackend resolves BackendAuto into a concrete backend kind using an
// ordered rule list, evaluated once at pool initialization:
//
//  1. an explicit Backend override wins;
//  2. chat credentials present in the config select the chat backend;
//  3. a generate host present in the config selects the generate backend;
//  4. chat credentials present in the environment select the chat backend;
//  5. a generate host present in the environment selects the generate backend.
//
// Environment-sourced credentials are copied into the config so later
// validation sees them. Returns ErrNoBackend when no rule matches.
func (c *Config) DetectBackend() (BackendKind, error) {
	if c.Backend != BackendAuto {
		return c.Backend, nil
	}
	if c.APIKey != "" && c.BaseURL != "" {
		return BackendChat, nil
	}
	if c.GenerateHost != "" {
		return BackendGenerate, nil
	}
	if key, base := os.Getenv(envAPIKey), os.Getenv(envAPIBase); key != "" && base != "" {
		c.APIKey = key
		c.BaseURL = base
		c.Normalize()
		return BackendChat, nil
	}
	if host := os.Getenv(envGenerateHost); host != "" {
		c.GenerateHost = host
		return BackendGenerate, nil
	}
	return BackendAuto, ErrNoBackend
}

// validateCredentials checks that the credentials for the given backend are
// present. Missing credentials are a fatal configuration error.
func (c *Config) validateCredentials(kind BackendKind) error {
	switch kind {
	case BackendChat:
		if c.APIKey == "" {
			return ErrAPIKeyRequired
		}
		if c.BaseURL == "" {
			return ErrBaseURLRequired
		}
	case BackendGenerate:
		if c.GenerateHost == "" {
			return ErrGenerateHostRequired
		}
	}
	return nil
}

// modelConfig returns the call parameters for the given backend kind.
func (c *Config) modelConfig(kind BackendKind) ModelConfig {
	if kind == BackendGenerate {
		return c.Generate
	}
	return c.Chat
}
