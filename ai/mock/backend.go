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


package mock

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Backend is a scriptable test double implementing llms.Model. It stands in
// for both backend protocol shapes: the chat variant calls GenerateContent
// directly, the generate variant reaches it through
// llms.GenerateFromSinglePrompt.
//
// Note: Returns a concrete type to allow behavior injection and call
// assertions. Safe for concurrent use.
type Backend struct {
	// GenerateContentFunc is called by GenerateContent if set. If nil, the
	// default behavior echoes the last human message.
	GenerateContentFunc func(ctx context.Context, messages []llms.MessageContent) (*llms.ContentResponse, error)

	mu        sync.Mutex
	callCount int
	failures  int  // remaining scripted failures
	failErr   error
	empty     bool // return empty content instead of echoing
}

// NewBackend creates a mock backend with default echo behavior.
func NewBackend() *Backend {
	return &Backend{}
}

// FailTimes scripts the next n calls to fail with err.
func (b *Backend) FailTimes(n int, err error) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = n
	b.failErr = err
	return b
}

// AlwaysFail scripts every call to fail with err.
func (b *Backend) AlwaysFail(err error) *Backend {
	return b.FailTimes(int(^uint(0)>>1), err)
}

// EmptyResponses makes successful calls return an empty content string.
func (b *Backend) EmptyResponses() *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.empty = true
	return b
}

// CallCount returns how many times GenerateContent was invoked.
func (b *Backend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.callCount
}

// Reset clears scripted behavior and the call count.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callCount = 0
	b.failures = 0
	b.failErr = nil
	b.empty = false
	b.GenerateContentFunc = nil
}

// GenerateContent implements llms.Model.
func (b *Backend) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	b.mu.Lock()
	b.callCount++
	if b.failures > 0 {
		b.failures--
		err := b.failErr
		b.mu.Unlock()
		return nil, err
	}
	fn := b.GenerateContentFunc
	empty := b.empty
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(ctx, messages)
	}

	content := ""
	if !empty {
		content = "mock response to: " + lastHumanText(messages)
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content, StopReason: "stop"}},
	}, nil
}

// Call implements the deprecated half of llms.Model.
func (b *Backend) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	resp, err := b.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

// lastHumanText extracts the text of the last human message, if any.
func lastHumanText(messages []llms.MessageContent) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.ChatMessageTypeHuman {
			continue
		}
		for _, part := range messages[i].Parts {
			if text, ok := part.(llms.TextContent); ok {
				return text.Text
			}
		}
	}
	return ""
}
