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

import (
	"log/slog"
	"strings"
	"time"
)

// WithLogger sets the router's fallback logger, used when no
// observability recorder supplies a request-scoped one. The default
// discards everything.
//
// Example:
//
//	r := router.MustNew(router.WithLogger(slog.Default()))
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObservability installs an observability recorder at construction
// time. Equivalent to calling SetObservabilityRecorder afterwards.
func WithObservability(recorder ObservabilityRecorder) Option {
	return func(r *Router) {
		r.observability = recorder
	}
}

// WithErrorHandler replaces the default error handler for errors
// returned by handler chains. The handler is responsible for writing
// the response; it can delegate to DefaultErrorHandler for cases it
// does not handle.
//
// Example:
//
//	r := router.MustNew(router.WithErrorHandler(func(c *router.Context, err error) {
//	    var httpErr *router.HTTPError
//	    if errors.As(err, &httpErr) {
//	        c.JSON(httpErr.Code, map[string]string{"error": httpErr.Message})
//	        return
//	    }
//	    router.DefaultErrorHandler(c, err)
//	}))
func WithErrorHandler(handler ErrorHandler) Option {
	return func(r *Router) {
		r.errorHandler = handler
	}
}

// WithDiagnostics sets a diagnostic handler for the router.
//
// Diagnostic events are optional informational events that may indicate
// configuration issues or security concerns. The router functions
// correctly whether diagnostics are collected or not.
//
// Example with logging:
//
//	handler := router.DiagnosticHandlerFunc(func(e router.DiagnosticEvent) {
//	    slog.Warn(e.Message, "kind", e.Kind, "fields", e.Fields)
//	})
//	r := router.MustNew(router.WithDiagnostics(handler))
//
// Example with metrics:
//
//	handler := router.DiagnosticHandlerFunc(func(e router.DiagnosticEvent) {
//	    metrics.Increment("router.diagnostics", "kind", string(e.Kind))
//	})
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(r *Router) {
		r.diagnostics = handler
	}
}

// WithCaseSensitive makes path matching case-sensitive, so "/Users"
// and "/users" are distinct. The default treats them as equal.
func WithCaseSensitive(sensitive bool) Option {
	return func(r *Router) {
		r.sensitive = sensitive
	}
}

// WithStrictSlashes makes a trailing slash significant, so "/users"
// no longer matches a request for "/users/". The default accepts both.
func WithStrictSlashes(strict bool) Option {
	return func(r *Router) {
		r.strict = strict
	}
}

// WithPrefix places every registered route under the given path prefix.
// Equivalent to calling Prefix before registration starts.
//
// Example:
//
//	r := router.MustNew(router.WithPrefix("/api/v1"))
func WithPrefix(prefix string) Option {
	return func(r *Router) {
		r.prefix = trimTrailingSlash(prefix)
	}
}

// WithMethods replaces the set of methods the router considers
// implemented. AnyMethod routes expand to this set, and method
// inspection answers 501 for methods outside it. The default is HEAD,
// OPTIONS, GET, PUT, PATCH, POST, and DELETE.
//
// Example:
//
//	r := router.MustNew(router.WithMethods("GET", "HEAD", "POST"))
func WithMethods(methods ...string) Option {
	return func(r *Router) {
		canonical := make([]string, 0, len(methods))
		for _, m := range methods {
			m = strings.ToUpper(strings.TrimSpace(m))
			if m != "" {
				canonical = append(canonical, m)
			}
		}
		r.methods = canonical
	}
}

// WithMatchCache bounds and enables a cache of match results keyed by
// method and path. Matching walks the whole layer list per request;
// with stable hot paths the cache trades memory for that walk. size is
// the maximum number of cached (method, path) pairs and must be
// positive.
//
// Example:
//
//	r := router.MustNew(router.WithMatchCache(1024))
func WithMatchCache(size int) Option {
	return func(r *Router) {
		r.cache = newMatchCache(size)
	}
}

// WithH2C enables HTTP/2 Cleartext support.
//
// Only use in development or behind a trusted load balancer. Do not
// enable on public-facing servers without TLS.
//
// Common deployment patterns:
//   - Dev/local testing: enable h2c for direct HTTP/2 testing
//   - Behind Envoy/Caddy: LB speaks h2c to the app
//   - Behind Nginx: typically HTTP/1.1 upstream, h2c not needed
//
// Example:
//
//	r := router.MustNew(router.WithH2C(true))
//	r.Serve(":8080")
func WithH2C(enable bool) Option {
	return func(r *Router) {
		r.enableH2C = enable
	}
}

// WithServerTimeouts configures HTTP server timeouts for Serve and
// ServeTLS. These are critical for preventing slowloris attacks and
// resource exhaustion.
//
// Defaults (if not set):
//
//	ReadHeaderTimeout: 5s  - Time to read request headers
//	ReadTimeout:       15s - Time to read entire request
//	WriteTimeout:      30s - Time to write response
//	IdleTimeout:       60s - Keep-alive idle time
//
// Example:
//
//	r := router.MustNew(router.WithServerTimeouts(
//	    10*time.Second,  // ReadHeaderTimeout
//	    30*time.Second,  // ReadTimeout
//	    60*time.Second,  // WriteTimeout
//	    120*time.Second, // IdleTimeout
//	))
func WithServerTimeouts(readHeader, read, write, idle time.Duration) Option {
	return func(r *Router) {
		r.serverTimeouts = &serverTimeouts{
			readHeader: readHeader,
			read:       read,
			write:      write,
			idle:       idle,
		}
	}
}

// defaultServerTimeouts returns default timeout configuration.
func defaultServerTimeouts() *serverTimeouts {
	return &serverTimeouts{
		readHeader: 5 * time.Second,
		read:       15 * time.Second,
		write:      30 * time.Second,
		idle:       60 * time.Second,
	}
}

// WithCancellationCheck enables or disables context cancellation
// checking between chain steps. When enabled, c.Next returns the
// context error instead of running the next handler once the request
// context is done, preventing wasted work on timed-out requests.
//
// Default: true (enabled)
//
// Example:
//
//	r := router.MustNew(router.WithCancellationCheck(false))
func WithCancellationCheck(enabled bool) Option {
	return func(r *Router) {
		r.checkCancellation = enabled
	}
}

// WithoutCancellationCheck disables context cancellation checking in
// the handler chain. Equivalent to WithCancellationCheck(false).
//
// Use when:
//   - You don't use request timeouts
//   - You handle cancellation manually in handlers
//   - You want to avoid the small overhead of the per-step check
//
// Example:
//
//	r := router.MustNew(router.WithoutCancellationCheck())
func WithoutCancellationCheck() Option {
	return func(r *Router) {
		r.checkCancellation = false
	}
}
