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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// HandleFactory creates one raw backend handle for the given kind.
type HandleFactory func(kind BackendKind, cfg *Config) (llms.Model, error)

// defaultHandleFactory builds real clients: an OpenAI-compatible client for
// the chat backend, an Ollama client for the generate backend.
func defaultHandleFactory(kind BackendKind, cfg *Config) (llms.Model, error) {
	switch kind {
	case BackendChat:
		return openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Chat.Model),
		)
	case BackendGenerate:
		return ollama.New(
			ollama.WithServerURL(cfg.GenerateHost),
			ollama.WithModel(cfg.Generate.Model),
		)
	default:
		return nil, fmt.Errorf("cannot create handle for backend %q: %w", kind, ErrNoBackend)
	}
}

// sessionEntry tracks a live session together with its raw handle and
// whether the handle was created as pool overflow.
type sessionEntry struct {
	session   Session
	handle    llms.Model
	temporary bool
}

// ConnectionPool owns a bounded queue of raw backend handles and the map of
// active sessions keyed by id. It detects the backend kind once at
// Initialize, recycles handles through sessions, and reclaims idle sessions
// with a background expiry sweep.
//
// The pool lock is never held across a backend network call; sessions
// serialize their own calls.
type ConnectionPool struct {
	cfg     *Config
	factory HandleFactory
	logger  *slog.Logger

	mu          sync.Mutex
	backend     BackendKind
	handles     chan llms.Model
	sessions    map[string]*sessionEntry
	initialized bool
	closed      bool

	sweepStop chan struct{}
	sweepWG   sync.WaitGroup
}

// PoolOption configures a ConnectionPool.
type PoolOption func(*ConnectionPool)

// WithHandleFactory replaces the backend handle factory. Used by tests to
// substitute mock backends.
func WithHandleFactory(f HandleFactory) PoolOption {
	return func(p *ConnectionPool) { p.factory = f }
}

// WithPoolLogger sets a custom logger. Default is slog.Default().
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *ConnectionPool) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ai-pool")
	}
}

// NewConnectionPool creates an uninitialized pool. Call Initialize before use.
func NewConnectionPool(cfg *Config, opts ...PoolOption) *ConnectionPool {
	p := &ConnectionPool{
		cfg:      cfg,
		factory:  defaultHandleFactory,
		logger:   slog.Default().With("component", "ai-pool"),
		sessions: make(map[string]*sessionEntry),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Initialize detects the backend kind, creates exactly MaxConnections raw
// handles and starts the expiry sweep. Any handle creation failure is fatal:
// the pool does not start partially initialized. Initialize is idempotent.
func (p *ConnectionPool) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.initialized {
		return nil
	}
	if err := p.cfg.Validate(); err != nil {
		return err
	}

	kind, err := p.cfg.DetectBackend()
	if err != nil {
		return err
	}
	if err := p.cfg.validateCredentials(kind); err != nil {
		return err
	}

	handles := make(chan llms.Model, p.cfg.MaxConnections)
	for i := 0; i < p.cfg.MaxConnections; i++ {
		h, err := p.factory(kind, p.cfg)
		if err != nil {
			return fmt.Errorf("creating connection %d/%d: %w", i+1, p.cfg.MaxConnections, err)
		}
		handles <- h
	}

	p.backend = kind
	p.handles = handles
	p.sweepStop = make(chan struct{})
	p.sweepWG.Add(1)
	go p.sweep()

	p.initialized = true
	p.logger.Info("connection pool initialized",
		"backend", kind.String(),
		"connections", p.cfg.MaxConnections)
	return nil
}

// Backend returns the detected backend kind. Valid after Initialize.
func (p *ConnectionPool) Backend() BackendKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backend
}

// GetSession returns the live session registered under id, or creates a new
// one. An empty id always creates a fresh session under a generated id. An
// expired session under id is evicted first and replaced.
//
// When the handle queue is empty a temporary overflow handle is created for
// the new session; overflow handles are never returned to the queue.
func (p *ConnectionPool) GetSession(id string) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || p.closed {
		return nil, ErrPoolClosed
	}

	if id != "" {
		if entry, ok := p.sessions[id]; ok {
			if !entry.session.IsExpired(p.cfg.Session.MaxIdle) {
				return entry.session, nil
			}
			p.releaseLocked(id, entry)
			p.logger.Debug("evicted expired session on access", "session", id)
		}
	}

	var (
		handle    llms.Model
		temporary bool
	)
	select {
	case handle = <-p.handles:
	default:
		h, err := p.factory(p.backend, p.cfg)
		if err != nil {
			return nil, fmt.Errorf("creating overflow connection: %w", err)
		}
		handle = h
		temporary = true
		p.logger.Warn("connection pool exhausted, created temporary connection")
	}

	if id == "" {
		id = "session-" + uuid.NewString()
	}
	sess := newSession(id, p.backend, handle, p.cfg, p.logger)
	p.sessions[id] = &sessionEntry{session: sess, handle: handle, temporary: temporary}
	p.logger.Debug("created session", "session", id, "temporary", temporary)
	return sess, nil
}

// ReleaseSession removes the session from the active map and attempts to
// return its handle to the queue. Temporary handles, and handles arriving
// while the queue is already full, are simply dropped.
func (p *ConnectionPool) ReleaseSession(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	p.releaseLocked(id, entry)
	return nil
}

// releaseLocked evicts one session entry. Must be called with mu held.
func (p *ConnectionPool) releaseLocked(id string, entry *sessionEntry) {
	delete(p.sessions, id)
	if entry.temporary {
		p.logger.Debug("released session, temporary connection discarded", "session", id)
		return
	}
	select {
	case p.handles <- entry.handle:
		p.logger.Debug("released session, handle returned to pool", "session", id)
	default:
		p.logger.Debug("released session, pool full, handle discarded", "session", id)
	}
}

// ActiveSessions returns the ids of all live sessions.
func (p *ConnectionPool) ActiveSessions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	return ids
}

// sweep periodically evicts sessions idle past MaxIdle. This is the only
// path that reclaims abandoned long-lived sessions. Scan errors are logged
// and the sweep continues on its next tick.
func (p *ConnectionPool) sweep() {
	defer p.sweepWG.Done()
	ticker := time.NewTicker(p.cfg.Session.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.sweepStop:
			return
		case <-ticker.C:
			p.evictExpired()
		}
	}
}

// evictExpired scans the active map once and releases every expired session.
func (p *ConnectionPool) evictExpired() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, entry := range p.sessions {
		if entry.session.IsExpired(p.cfg.Session.MaxIdle) {
			p.releaseLocked(id, entry)
			p.logger.Info("evicted expired session", "session", id)
		}
	}
}

// Shutdown stops the sweep, clears the active map and drains the handle
// queue. The pool cannot be reused afterwards.
func (p *ConnectionPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	stop := p.sweepStop
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		p.sweepWG.Wait()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = make(map[string]*sessionEntry)
	if p.handles != nil {
		for {
			select {
			case <-p.handles:
			default:
				p.logger.Info("connection pool shut down")
				return
			}
		}
	}
}
