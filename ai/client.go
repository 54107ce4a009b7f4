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
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Future is the handle to an asynchronous Send result.
type Future struct {
	done chan struct{}
	resp *Response
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(resp *Response, err error) {
	f.resp = resp
	f.err = err
	close(f.done)
}

// Wait blocks until the result is available.
func (f *Future) Wait() (*Response, error) {
	<-f.done
	return f.resp, f.err
}

// WaitTimeout blocks up to d for the result, returning ErrFutureTimeout if
// it does not arrive in time. The underlying call keeps running; only the
// wait is abandoned.
func (f *Future) WaitTimeout(d time.Duration) (*Response, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-f.done:
		return f.resp, f.err
	case <-timer.C:
		return nil, ErrFutureTimeout
	}
}

// Client is the public façade over the connection pool: synchronous,
// asynchronous and batch dispatch of messages, backed by a bounded worker
// pool. Safe for concurrent use.
type Client struct {
	cfg     *Config
	pool    *ConnectionPool
	workers *ants.Pool
	logger  *slog.Logger

	initMu      sync.Mutex
	initialized bool
}

// NewClient creates a client. The connection pool is initialized lazily on
// first use; construct-time errors are limited to worker pool creation.
// Pool options (notably WithHandleFactory) are passed through.
func NewClient(cfg *Config, opts ...PoolOption) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	workers, err := ants.NewPool(cfg.MaxWorkers)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:     cfg,
		pool:    NewConnectionPool(cfg, opts...),
		workers: workers,
		logger:  slog.Default().With("component", "ai-client"),
	}, nil
}

// Initialize eagerly initializes the connection pool. Optional: Send and
// friends initialize on first use.
func (c *Client) Initialize() error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.pool.Initialize(); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Send delivers one message synchronously. With an empty sessionID a fresh
// session is used and returned to the pool afterwards, on success and
// failure alike; a non-empty sessionID names a persistent session that
// survives the call for conversational reuse.
func (c *Client) Send(ctx context.Context, message, sessionID string) (*Response, error) {
	if err := c.Initialize(); err != nil {
		return nil, err
	}

	createdNew := sessionID == ""
	sess, err := c.pool.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if createdNew {
		defer func() {
			if relErr := c.pool.ReleaseSession(sess.ID()); relErr != nil {
				c.logger.Warn("releasing session", "session", sess.ID(), "err", relErr)
			}
		}()
	}

	resp, err := sess.Send(ctx, message)
	if err != nil {
		c.logger.Error("send failed", "session", sess.ID(), "err", err)
		return nil, err
	}
	return resp, nil
}

// SendAsync delivers one message via the worker pool and returns a Future.
// Ordering between concurrent calls is not guaranteed.
func (c *Client) SendAsync(ctx context.Context, message, sessionID string) (*Future, error) {
	if err := c.Initialize(); err != nil {
		return nil, err
	}

	f := newFuture()
	err := c.workers.Submit(func() {
		resp, sendErr := c.Send(ctx, message, sessionID)
		f.complete(resp, sendErr)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// SendBatch delivers the messages concurrently and collects the responses
// positionally. A failed call degrades to a nil entry at its index; the
// batch never aborts early. Each message gets its own fresh session; the
// sessionID is honored only for a single-message batch, so concurrent calls
// never serialize on one session.
func (c *Client) SendBatch(ctx context.Context, messages []string, sessionID string) ([]*Response, error) {
	if err := c.Initialize(); err != nil {
		return nil, err
	}

	futures := make([]*Future, len(messages))
	for i, msg := range messages {
		sid := ""
		if sessionID != "" && len(messages) == 1 {
			sid = sessionID
		}
		f, err := c.SendAsync(ctx, msg, sid)
		if err != nil {
			// Worker pool rejection: degrade this entry, keep going.
			c.logger.Error("batch submit failed", "index", i, "err", err)
			failed := newFuture()
			failed.complete(nil, err)
			f = failed
		}
		futures[i] = f
	}

	results := make([]*Response, len(messages))
	for i, f := range futures {
		resp, err := f.WaitTimeout(c.cfg.BatchTimeout)
		if err != nil {
			c.logger.Error("batch message failed", "index", i, "err", err)
			continue
		}
		results[i] = resp
	}
	return results, nil
}

// CreateSession creates a persistent session and returns its id. Close it
// with CloseSession when the conversation is done.
func (c *Client) CreateSession() (string, error) {
	if err := c.Initialize(); err != nil {
		return "", err
	}
	sess, err := c.pool.GetSession("")
	if err != nil {
		return "", err
	}
	return sess.ID(), nil
}

// CloseSession releases a persistent session back to the pool.
func (c *Client) CloseSession(sessionID string) error {
	return c.pool.ReleaseSession(sessionID)
}

// ActiveSessions returns the ids of all live sessions.
func (c *Client) ActiveSessions() []string {
	return c.pool.ActiveSessions()
}

// Backend returns the backend kind in use, initializing the pool if needed.
func (c *Client) Backend() (BackendKind, error) {
	if err := c.Initialize(); err != nil {
		return BackendAuto, err
	}
	return c.pool.Backend(), nil
}

// Shutdown releases the worker pool and tears down the connection pool.
func (c *Client) Shutdown() {
	c.workers.Release()
	c.pool.Shutdown()
	c.logger.Info("client shut down")
}
