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

import "sync"

// The process-wide client amortizes pool construction across callers that
// have no composition root of their own. Prefer constructing a Client and
// passing it down; this is the only package-level mutable state.
var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the process-wide client, creating and initializing it on
// first call. Later calls ignore cfg and return the existing instance.
func Default(cfg *Config) (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient != nil {
		return defaultClient, nil
	}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Initialize(); err != nil {
		return nil, err
	}
	defaultClient = client
	return defaultClient, nil
}

// ResetDefault shuts down and discards the process-wide client. Useful in
// tests and after configuration changes.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient != nil {
		defaultClient.Shutdown()
		defaultClient = nil
	}
}
