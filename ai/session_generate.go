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

// generateSession speaks the single-prompt generate protocol. The backend
// holds no conversation state and receives only the prompt itself; history
// is still recorded locally for callers that inspect it. This variant
// carries no circuit breaker, relying on the retry policy alone.
type generateSession struct {
	baseSession
	handle llms.Model
}

// Send delivers one message over the generate protocol.
func (s *generateSession) Send(ctx context.Context, message string) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	text, meta, err := s.sendWithRetry(ctx, nil, func(callCtx context.Context) (string, map[string]any, error) {
		out, err := llms.GenerateFromSinglePrompt(callCtx, s.handle, message,
			llms.WithTemperature(s.model.Temperature),
			llms.WithMaxTokens(s.model.MaxTokens),
		)
		if err != nil {
			return "", nil, err
		}
		return out, map[string]any{"model": s.model.Model}, nil
	})
	if err != nil {
		return nil, err
	}

	s.appendTurn(message, text)
	return &Response{
		Content:   text,
		Metadata:  meta,
		SessionID: s.id,
		Timestamp: time.Now(),
		Backend:   BackendGenerate,
	}, nil
}
