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
	"time"

	"github.com/tmc/langchaingo/llms"
)

// systemPrompt frames every chat conversation.
const systemPrompt = "You are a helpful assistant specialized in academic research and literature review."

// chatSession speaks the multi-turn chat protocol: the compacted
// conversation history travels upstream as a role-tagged message list on
// every call. It owns a circuit breaker, so sustained backend failures
// fail fast without a network attempt.
type chatSession struct {
	baseSession
	handle  llms.Model
	breaker *CircuitBreaker
}

// Send delivers one message over the chat protocol.
func (s *chatSession) Send(ctx context.Context, message string) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	content := s.buildMessages(message)
	text, meta, err := s.sendWithRetry(ctx, s.breaker, func(callCtx context.Context) (string, map[string]any, error) {
		resp, err := s.handle.GenerateContent(callCtx, content,
			llms.WithTemperature(s.model.Temperature),
			llms.WithMaxTokens(s.model.MaxTokens),
		)
		if err != nil {
			return "", nil, err
		}
		if len(resp.Choices) == 0 {
			return "", nil, nil // reported as ErrEmptyResponse by the retry loop
		}
		choice := resp.Choices[0]
		meta := map[string]any{
			"model":       s.model.Model,
			"stop_reason": choice.StopReason,
		}
		if choice.GenerationInfo != nil {
			meta["generation_info"] = choice.GenerationInfo
		}
		return choice.Content, meta, nil
	})
	if err != nil {
		return nil, err
	}

	s.appendTurn(message, text)
	meta["circuit_breaker_state"] = s.breaker.State().String()
	return &Response{
		Content:   text,
		Metadata:  meta,
		SessionID: s.id,
		Timestamp: time.Now(),
		Backend:   BackendChat,
	}, nil
}

// buildMessages assembles the upstream message list: system prompt,
// compacted history, then the new user message. Must be called with mu held.
func (s *chatSession) buildMessages(message string) []llms.MessageContent {
	history := s.upstreamHistory()
	out := make([]llms.MessageContent, 0, len(history)+2)
	out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, m := range history {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, message))
	return out
}
