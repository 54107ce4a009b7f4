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


// Package search provides a pooled client for the remote literature-search
// service.
//
// Unlike the stateful AI sessions in the ai package, search clients are
// stateless and interchangeable: ClientPool hands them out through a
// fixed-capacity queue, and DispatchConcurrent fans a batch of query
// expressions out over the pool, joining all results before returning.
// Results are positional: a failed query degrades to a nil entry at its
// index and never aborts its siblings.
package search
