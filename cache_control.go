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

// Cache-Control header assembly, the response-freshness counterpart to
// the conditional-request helpers in cache.go.

import (
	"strconv"
	"strings"
	"time"
)

// CacheControlOption contributes one directive to a CacheControl call.
type CacheControlOption func(*cacheControlConfig)

type cacheControlConfig struct {
	public               bool
	private              bool
	noStore              bool
	noCache              bool
	maxAge               time.Duration
	staleWhileRevalidate time.Duration
	staleIfError         time.Duration
}

// WithPublic marks the response cacheable by shared caches.
func WithPublic() CacheControlOption {
	return func(cfg *cacheControlConfig) { cfg.public = true }
}

// WithPrivate restricts caching to the client's private cache.
func WithPrivate() CacheControlOption {
	return func(cfg *cacheControlConfig) { cfg.private = true }
}

// WithNoStore forbids storing the response in any cache.
func WithNoStore() CacheControlOption {
	return func(cfg *cacheControlConfig) { cfg.noStore = true }
}

// WithNoCache requires revalidation before a cached copy is used.
func WithNoCache() CacheControlOption {
	return func(cfg *cacheControlConfig) { cfg.noCache = true }
}

// WithMaxAge sets max-age. Non-positive durations are ignored.
func WithMaxAge(d time.Duration) CacheControlOption {
	return func(cfg *cacheControlConfig) {
		if d > 0 {
			cfg.maxAge = d
		}
	}
}

// WithStaleWhileRevalidate sets the RFC 5861 stale-while-revalidate
// window, letting caches serve a stale copy while they refetch.
func WithStaleWhileRevalidate(d time.Duration) CacheControlOption {
	return func(cfg *cacheControlConfig) {
		if d > 0 {
			cfg.staleWhileRevalidate = d
		}
	}
}

// WithStaleIfError sets the RFC 5861 stale-if-error window, letting
// caches serve a stale copy when the origin is failing.
func WithStaleIfError(d time.Duration) CacheControlOption {
	return func(cfg *cacheControlConfig) {
		if d > 0 {
			cfg.staleIfError = d
		}
	}
}

// CacheControl sets the Cache-Control header from the given directives.
// With no effective directives the header is left unset.
//
//	c.CacheControl(router.WithPublic(), router.WithMaxAge(time.Minute))
//	// Cache-Control: public, max-age=60
func (c *Context) CacheControl(opts ...CacheControlOption) {
	var cfg cacheControlConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	parts := make([]string, 0, 7)
	if cfg.public {
		parts = append(parts, "public")
	}
	if cfg.private {
		parts = append(parts, "private")
	}
	if cfg.noStore {
		parts = append(parts, "no-store")
	}
	if cfg.noCache {
		parts = append(parts, "no-cache")
	}
	if cfg.maxAge > 0 {
		parts = append(parts, "max-age="+strconv.Itoa(int(cfg.maxAge.Seconds())))
	}
	if cfg.staleWhileRevalidate > 0 {
		parts = append(parts, "stale-while-revalidate="+strconv.Itoa(int(cfg.staleWhileRevalidate.Seconds())))
	}
	if cfg.staleIfError > 0 {
		parts = append(parts, "stale-if-error="+strconv.Itoa(int(cfg.staleIfError.Seconds())))
	}

	if len(parts) > 0 {
		c.Header("Cache-Control", strings.Join(parts, ", "))
	}
}
