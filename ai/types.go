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

import "time"

// BackendKind identifies which backend protocol shape a session speaks.
type BackendKind int

const (
	// BackendAuto selects a backend at Initialize time from configuration
	// and environment, in that order.
	BackendAuto BackendKind = iota

	// BackendChat is an OpenAI-compatible multi-turn chat API taking a
	// role-tagged message list.
	BackendChat

	// BackendGenerate is a single-prompt generate API (Ollama-style).
	BackendGenerate
)

// String returns a human-readable backend name.
func (k BackendKind) String() string {
	switch k {
	case BackendAuto:
		return "auto"
	case BackendChat:
		return "chat"
	case BackendGenerate:
		return "generate"
	default:
		return "unknown"
	}
}

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Response is the universal result of a backend call, regardless of which
// protocol shape produced it.
type Response struct {
	// Content is the text returned by the model.
	Content string

	// Metadata carries call diagnostics: attempt counts, response time,
	// stop reason and (for the chat variant) circuit breaker state.
	Metadata map[string]any

	// SessionID identifies the session that produced this response.
	SessionID string

	// Timestamp is when the response was received.
	Timestamp time.Time

	// Backend is the protocol shape that served the call.
	Backend BackendKind
}
