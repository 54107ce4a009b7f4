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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSearchServer serves a minimal stand-in for the literature service: it
// echoes the query expression back as the single hit's title. Expressions
// named "fail" get a 500; expressions named "slow" are delayed.
func newSearchServer(t *testing.T, inFlight *atomic.Int32, maxInFlight *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inFlight != nil {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				prev := maxInFlight.Load()
				if n <= prev || maxInFlight.CompareAndSwap(prev, n) {
					break
				}
			}
		}

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Q.Items)
		expr := req.Q.Items[0].Value

		switch expr {
		case "fail":
			http.Error(w, "upstream unavailable", http.StatusInternalServerError)
			return
		case "slow":
			time.Sleep(100 * time.Millisecond)
		}

		resp := map[string]any{
			"code":    200,
			"message": "ok",
			"data": map[string]any{
				"total": 1,
				"size":  1,
				"data": []map[string]any{{
					"metadata": []map[string]any{
						{"name": "TI", "value": "<em>" + expr + "</em>"},
						{"name": "AB", "value": "abstract of " + expr},
						{"name": "YE", "value": "2021"},
					},
				}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestNewClientPool_Validation(t *testing.T) {
	_, err := NewClientPool("", "platform", "token")
	assert.ErrorIs(t, err, ErrEndpointRequired)

	_, err = NewClientPool("http://example.com", "platform", "")
	assert.ErrorIs(t, err, ErrAccessTokenRequired)
}

func TestClientPool_AcquireRelease(t *testing.T) {
	pool, err := NewClientPool("http://example.com", "platform", "token", WithMaxClients(2))
	require.NoError(t, err)

	a := pool.Acquire()
	b := pool.Acquire()
	require.NotNil(t, a)
	require.NotNil(t, b)

	pool.Release(a)
	pool.Release(b)
}

func TestClient_Search(t *testing.T) {
	server := newSearchServer(t, nil, nil)
	defer server.Close()

	pool, err := NewClientPool(server.URL, "NZKPT", "token", WithMaxClients(1))
	require.NoError(t, err)

	client := pool.Acquire()
	defer pool.Release(client)

	result, err := client.Search(context.Background(), Query{Expression: "TI='machine learning'"})
	require.NoError(t, err)

	assert.Equal(t, 200, result.Code)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "TI='machine learning'", result.Items[0].Title, "highlight markup should be stripped")
	assert.Equal(t, "2021", result.Items[0].Year)
}

func TestClient_SearchStatusError(t *testing.T) {
	server := newSearchServer(t, nil, nil)
	defer server.Close()

	pool, err := NewClientPool(server.URL, "NZKPT", "token", WithMaxClients(1))
	require.NoError(t, err)

	client := pool.Acquire()
	defer pool.Release(client)

	_, err = client.Search(context.Background(), Query{Expression: "fail"})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestClientPool_DispatchConcurrent(t *testing.T) {
	server := newSearchServer(t, nil, nil)
	defer server.Close()

	pool, err := NewClientPool(server.URL, "NZKPT", "token", WithMaxClients(3))
	require.NoError(t, err)

	// The middle query is slow: positional order must hold regardless of
	// completion order.
	queries := []Query{
		{Expression: "q0"},
		{Expression: "slow"},
		{Expression: "q2"},
	}
	results := pool.DispatchConcurrent(context.Background(), queries)
	require.Len(t, results, 3)

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	require.NotNil(t, results[2])
	assert.Equal(t, "q0", results[0].Items[0].Title)
	assert.Equal(t, "slow", results[1].Items[0].Title)
	assert.Equal(t, "q2", results[2].Items[0].Title)
}

func TestClientPool_DispatchConcurrentPartialFailure(t *testing.T) {
	server := newSearchServer(t, nil, nil)
	defer server.Close()

	pool, err := NewClientPool(server.URL, "NZKPT", "token", WithMaxClients(3))
	require.NoError(t, err)

	queries := []Query{
		{Expression: "q0"},
		{Expression: "fail"},
		{Expression: "q2"},
	}
	results := pool.DispatchConcurrent(context.Background(), queries)
	require.Len(t, results, 3)

	assert.NotNil(t, results[0])
	assert.Nil(t, results[1], "failed query degrades to nil without aborting siblings")
	assert.NotNil(t, results[2])
}

func TestClientPool_DispatchConcurrentBoundsParallelism(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	server := newSearchServer(t, &inFlight, &maxInFlight)
	defer server.Close()

	pool, err := NewClientPool(server.URL, "NZKPT", "token", WithMaxClients(2))
	require.NoError(t, err)

	queries := make([]Query, 6)
	for i := range queries {
		queries[i] = Query{Expression: "slow"}
	}
	results := pool.DispatchConcurrent(context.Background(), queries)

	for i, r := range results {
		require.NotNil(t, r, fmt.Sprintf("result %d", i))
	}
	assert.LessOrEqual(t, maxInFlight.Load(), int32(2), "pool size caps concurrent calls")
}
