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


package search

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ClientPool is a fixed-size pool of interchangeable search clients, all
// wrapping the same credential/endpoint pair. Acquire and Release move
// clients through a blocking queue, so no client is ever used by two
// callers concurrently.
type ClientPool struct {
	clients chan *Client
	logger  *slog.Logger
}

// PoolOption configures a ClientPool.
type PoolOption func(*poolSettings)

type poolSettings struct {
	maxClients int
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// WithMaxClients sets the pool capacity. Default is 5.
func WithMaxClients(n int) PoolOption {
	return func(s *poolSettings) {
		if n >= 1 {
			s.maxClients = n
		}
	}
}

// WithTimeout sets the per-call HTTP timeout. Default is 60 seconds.
func WithTimeout(d time.Duration) PoolOption {
	return func(s *poolSettings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHTTPClient replaces the shared HTTP client (for testing).
func WithHTTPClient(c *http.Client) PoolOption {
	return func(s *poolSettings) { s.httpClient = c }
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) PoolOption {
	return func(s *poolSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewClientPool creates a pool of maxClients interchangeable clients for
// the given endpoint and credentials.
func NewClientPool(endpoint, platform, accessToken string, opts ...PoolOption) (*ClientPool, error) {
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	if accessToken == "" {
		return nil, ErrAccessTokenRequired
	}

	settings := &poolSettings{
		maxClients: 5,
		timeout:    60 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(settings)
	}
	if settings.httpClient == nil {
		settings.httpClient = &http.Client{Timeout: settings.timeout}
	}
	logger := settings.logger.With("component", "search-pool")

	pool := &ClientPool{
		clients: make(chan *Client, settings.maxClients),
		logger:  logger,
	}
	for i := 0; i < settings.maxClients; i++ {
		pool.clients <- newClient(endpoint, platform, accessToken, settings.httpClient, logger)
	}
	return pool, nil
}

// Acquire blocks until a client is available.
func (p *ClientPool) Acquire() *Client {
	return <-p.clients
}

// Release returns a client to the pool.
func (p *ClientPool) Release(c *Client) {
	p.clients <- c
}

// DispatchConcurrent runs every query on its own goroutine, each acquiring
// a client from the pool for the duration of its call. Results are written
// positionally: the entry at index i always corresponds to queries[i],
// regardless of completion order. A failed query leaves a nil entry and
// never aborts its siblings.
func (p *ClientPool) DispatchConcurrent(ctx context.Context, queries []Query) []*Result {
	results := make([]*Result, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(idx int, query Query) {
			defer wg.Done()
			client := p.Acquire()
			defer p.Release(client)

			result, err := client.Search(ctx, query)
			if err != nil {
				p.logger.Error("search query failed",
					"index", idx,
					"expression", query.Expression,
					"err", err)
				return
			}
			results[idx] = result
		}(i, q)
	}
	wg.Wait()
	return results
}
