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
	"errors"
	"fmt"
)

var (
	// ErrEndpointRequired is returned when the search endpoint URL is missing.
	ErrEndpointRequired = errors.New("search config: endpoint required")

	// ErrAccessTokenRequired is returned when the access token is missing.
	ErrAccessTokenRequired = errors.New("search config: access token required")
)

// StatusError reports a non-2xx response from the search service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search service returned status %d: %s", e.Code, e.Body)
}
