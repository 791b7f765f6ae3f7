// Copyright 2025 The Strata Authors
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

package router

import "sync"

// matchCache is a bounded cache of match results keyed by method and
// path. Matching walks the whole layer list; for stable hot paths the
// cache answers repeat requests from one map lookup instead.
//
// Entries are only served once the router is frozen, so a cached result
// can never go stale against the layer list. Mount still invalidates
// explicitly since it grafts routes while the cache may hold results
// from a pre-freeze match call.
//
// Cached matchResult values are shared between requests. That is safe
// because dispatch treats them as read-only: captures are copied onto
// the context, never modified in place.
type matchCache struct {
	size int

	mu      sync.RWMutex
	entries map[matchKey]matchResult
}

type matchKey struct {
	method string
	path   string
}

func newMatchCache(size int) *matchCache {
	capacity := size
	if capacity > 64 {
		capacity = 64
	}
	if capacity < 0 {
		capacity = 0
	}
	return &matchCache{
		size:    size,
		entries: make(map[matchKey]matchResult, capacity),
	}
}

func (mc *matchCache) get(method, path string) (matchResult, bool) {
	mc.mu.RLock()
	m, ok := mc.entries[matchKey{method: method, path: path}]
	mc.mu.RUnlock()
	return m, ok
}

// put stores a match result. At capacity the whole table is dropped
// rather than tracking recency; hot paths repopulate within a request
// or two.
func (mc *matchCache) put(method, path string, m matchResult) {
	mc.mu.Lock()
	if len(mc.entries) >= mc.size {
		clear(mc.entries)
	}
	mc.entries[matchKey{method: method, path: path}] = m
	mc.mu.Unlock()
}

func (mc *matchCache) invalidate() {
	mc.mu.Lock()
	clear(mc.entries)
	mc.mu.Unlock()
}

func (mc *matchCache) len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.entries)
}
