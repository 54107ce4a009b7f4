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


// Package ai provides a resilient, pooled client layer for remote AI
// inference services.
//
// The package manages stateful conversation sessions against one of two
// backend protocol shapes, a multi-turn chat API and a single-prompt
// generate API, unified behind the Session interface. Callers normally
// interact only with Client, which layers concurrent dispatch on top of
// a bounded connection pool.
//
// # Architecture
//
// Components, from the bottom up:
//
//   - CircuitBreaker: per-session failure tracking that fails fast after
//     repeated backend errors and probes recovery after a cooldown.
//   - Session: one stateful conversation handle. Owns its history, its
//     retry/backoff policy and (for the chat variant) a circuit breaker.
//     Calls on a single session are strictly serialized.
//   - ConnectionPool: a bounded set of raw backend handles plus the map
//     of live sessions. Reclaims idle sessions with a background sweep.
//   - Client: the public façade. Synchronous, asynchronous and batch
//     dispatch over a bounded worker pool.
//
// # Usage
//
//	cfg := ai.NewConfig(
//	    ai.WithAPIKey(os.Getenv("EVALIT_API_KEY")),
//	    ai.WithBaseURL("https://api.example.com/v1"),
//	)
//	client, err := ai.NewClient(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown()
//
//	resp, err := client.Send(ctx, "Summarize the abstract below ...", "")
//
// Sessions requested with an explicit id persist across calls for
// conversational reuse; anonymous sessions are returned to the pool as
// soon as the call completes.
//
// The ai/mock sub-package provides a scriptable backend for testing the
// pool and client without a live inference service.
package ai
