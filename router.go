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
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// noopLogger is a singleton no-op logger used when no logger is configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NoopLogger returns the singleton no-op logger.
// This is used by implementations of ObservabilityRecorder when logging is disabled.
func NoopLogger() *slog.Logger {
	return noopLogger
}

// HandlerFunc is a middleware or handler in a dispatch chain. A handler
// calls c.Next to run the rest of the chain and may act both before and
// after it:
//
//	func timing(c *router.Context) error {
//	    start := time.Now()
//	    err := c.Next()
//	    c.Logger().Info("handled", "took", time.Since(start))
//	    return err
//	}
//
// Returning an error unwinds the chain back to the router's error
// handler. A handler that neither writes a response nor returns an error
// lets the request fall through to the next matched layer or, at the top
// level, to the not-found handler.
type HandlerFunc func(c *Context) error

// ParamFunc validates or transforms one named path parameter. It runs
// ahead of the matched route's handlers and receives the decoded value.
// Like any chain step it must call c.Next to continue.
type ParamFunc func(c *Context, value string) error

// ErrorHandler receives errors returned by handler chains. It is
// responsible for writing the error response.
type ErrorHandler func(c *Context, err error)

// Option defines functional options for router configuration.
type Option func(*Router)

// responseWriter wraps http.ResponseWriter to capture status code and size.
// It also prevents "superfluous response.WriteHeader call" errors
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

// WriteHeader captures the status code and prevents duplicate calls.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

// Write captures the response size and marks as written.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
	}
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// StatusCode returns the HTTP status code.
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

// Size returns the response size in bytes.
func (rw *responseWriter) Size() int64 {
	return rw.size
}

// Written returns true if headers have been written.
func (rw *responseWriter) Written() bool {
	return rw.written
}

// Compile-time check that responseWriter implements ResponseInfo.
var _ ResponseInfo = (*responseWriter)(nil)

// Hijack implements http.Hijacker interface.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, ErrResponseWriterNotHijacker
}

// Flush implements http.Flusher interface.
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// paramEntry is one router-level parameter validator, kept in
// registration order so it can be re-applied to routes added later.
type paramEntry struct {
	name string
	fn   ParamFunc
}

// Router matches HTTP requests against an ordered list of layers and runs
// every layer that matches, composed into a single handler chain. Layers
// are either routes, registered with a method set through the verb
// helpers, or path-scoped middleware registered through Use and UseAt.
//
// Matching is sequential in registration order and cumulative: a request
// runs the handlers of all matching layers, each handler deciding via
// c.Next whether the chain continues. A request no route answers still
// passes through matching Use middleware, then falls through, which
// keeps a Router composable with other routers and plain http.Handlers.
//
// Routes may be registered and configured freely until the router starts
// serving. The first request freezes the route table; registration after
// that point fails and fluent configuration panics.
//
// Example:
//
//	r := router.MustNew()
//	r.GET("/users/:id", func(c *router.Context) error {
//	    return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
//	})
//	http.ListenAndServe(":8080", r)
type Router struct {
	mu     sync.RWMutex
	stack  []*Route
	named  map[string]*Route
	params []paramEntry
	frozen atomic.Bool

	observability ObservabilityRecorder // Unified observability (metrics, tracing, logging)
	diagnostics   DiagnosticHandler     // Optional diagnostic event handler
	logger        *slog.Logger          // Fallback logger when no recorder provides one

	errorHandler ErrorHandler
	noRoute      HandlerFunc  // Custom handler for unmatched requests (nil means plain 404)
	noRouteMu    sync.RWMutex // Protects noRoute (rarely written, frequently read)

	// Matching configuration applied to routes at registration time.
	methods   []string // Implemented methods, for AnyMethod and 501 detection
	prefix    string   // Path prefix applied to registrations
	sensitive bool     // Case-sensitive matching
	strict    bool     // Trailing slash significant

	checkCancellation bool // Check request context between handlers (default: true)

	realip *realIPConfig // Trusted proxy configuration for ClientIP

	cache *matchCache // Optional bounded cache of match results

	// HTTP/2 Cleartext (H2C) support
	enableH2C      bool
	serverTimeouts *serverTimeouts

	server   *http.Server
	serverMu sync.Mutex
}

// serverTimeouts holds HTTP server timeout configuration.
type serverTimeouts struct {
	readHeader time.Duration
	read       time.Duration
	write      time.Duration
	idle       time.Duration
}

// New creates a new router instance with optional configuration.
//
// The returned router is empty: register layers with Use and the verb
// helpers, then serve it directly as an http.Handler or compose it into
// another router with Mount.
//
// Returns an error if the configuration is invalid. Configuration is
// validated immediately at startup rather than at runtime. For a version
// that panics instead of returning an error, use MustNew.
//
// Example:
//
//	r, err := router.New(
//	    router.WithCaseSensitive(true),
//	    router.WithServerTimeouts(10*time.Second, 30*time.Second, 60*time.Second, 120*time.Second),
//	)
//	if err != nil {
//	    log.Fatalf("invalid router configuration: %v", err)
//	}
func New(opts ...Option) (*Router, error) {
	r := &Router{
		named:             make(map[string]*Route),
		methods:           implementedMethods,
		logger:            noopLogger,
		checkCancellation: true,
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("router configuration validation failed: %w", err)
	}

	return r, nil
}

// MustNew creates a new Router instance and panics if configuration is
// invalid. This is a convenience wrapper around New for cases where
// configuration errors should fail the application immediately at
// startup.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("router.MustNew: %v", err))
	}
	return r
}

// validate checks the router configuration for common errors.
// This method is called automatically by New().
//
// Note: routes are validated at registration time, not at router creation
// time, because routes are registered after New() returns.
func (r *Router) validate() error {
	if len(r.methods) == 0 {
		return ErrNoMethods
	}
	if st := r.serverTimeouts; st != nil {
		if st.readHeader < 0 || st.read < 0 || st.write < 0 || st.idle < 0 {
			return ErrServerTimeoutInvalid
		}
	}
	if r.cache != nil && r.cache.size <= 0 {
		return ErrMatchCacheSizeInvalid
	}
	return nil
}

// SetObservabilityRecorder sets the unified observability recorder for
// the router. This integrates metrics, tracing, and access logging into a
// single request lifecycle. Pass nil to disable all observability.
//
// Example:
//
//	r := router.MustNew()
//	r.SetObservabilityRecorder(telemetry.MustNew(telemetry.WithPrometheus()))
func (r *Router) SetObservabilityRecorder(recorder ObservabilityRecorder) {
	r.observability = recorder
}

// emit sends a diagnostic event if a handler is configured.
func (r *Router) emit(kind DiagnosticKind, message string, fields map[string]any) {
	if r.diagnostics != nil {
		r.diagnostics.OnDiagnostic(DiagnosticEvent{
			Kind:    kind,
			Message: message,
			Fields:  fields,
		})
	}
}

// NoRoute sets a custom handler for requests that fall through every
// layer without a response being written. This customizes 404 responses
// in place of the default plain-text not-found reply.
//
// Example:
//
//	r.NoRoute(func(c *router.Context) error {
//	    return c.JSON(http.StatusNotFound, map[string]string{"error": "route not found"})
//	})
//
// Setting handler to nil restores the default behavior.
func (r *Router) NoRoute(handler HandlerFunc) {
	r.noRouteMu.Lock()
	defer r.noRouteMu.Unlock()
	r.noRoute = handler
}

// Use registers middleware that runs for every request whose path reaches
// this router, regardless of method. Middleware joins the same ordered
// layer list as routes, so a handler registered before a route runs
// before it.
//
// Example:
//
//	r.Use(requestid.New(), recovery.New())
func (r *Router) Use(middleware ...HandlerFunc) *Router {
	return r.UseAt("(.*)", middleware...)
}

// UseAt registers middleware scoped to a path specification. The
// specification matches as a segment-aligned prefix, so middleware at
// "/users/:id" also runs for "/users/42/posts". Captured parameters are
// bound for the middleware's part of the chain.
//
// Example:
//
//	r.UseAt("/admin", requireAdmin)
func (r *Router) UseAt(path string, middleware ...HandlerFunc) *Router {
	_, err := r.register(MethodSet{}, path, middleware, registerConfig{
		prefix:         true,
		ignoreCaptures: path == "(.*)",
	})
	if err != nil {
		panic(fmt.Sprintf("router: Use %q: %v", path, err))
	}
	return r
}

// Param registers a validator for the named path parameter on every
// route that captures it, including routes registered later and routes
// grafted in by Mount. Validators run ahead of route handlers in capture
// order; registering several validators for one name runs them in
// registration order. A name an earlier matched layer already validated
// is not re-validated by later layers.
//
// Example:
//
//	r.Param("user", func(c *router.Context, id string) error {
//	    u, err := store.Lookup(id)
//	    if err != nil {
//	        return router.NewHTTPError(http.StatusNotFound, "no such user")
//	    }
//	    c.Set("user", u)
//	    return c.Next()
//	})
func (r *Router) Param(name string, fn ParamFunc) *Router {
	r.checkMutable("Param")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = append(r.params, paramEntry{name: name, fn: fn})
	for _, rt := range r.stack {
		rt.Param(name, fn)
	}
	return r
}

// Prefix reroots every registered route under the given path prefix and
// applies the same prefix to routes registered afterwards. A trailing
// slash on the prefix is dropped.
//
// Example:
//
//	r.Prefix("/api/v1")
func (r *Router) Prefix(prefix string) *Router {
	r.checkMutable("Prefix")
	prefix = trimTrailingSlash(prefix)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefix = prefix
	for _, rt := range r.stack {
		rt.SetPrefix(prefix)
	}
	return r
}

func trimTrailingSlash(p string) string {
	for len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	if p == "/" {
		return ""
	}
	return p
}

// registerName records a route under a unique name for reverse URL
// generation. It returns an error wrapping ErrDuplicateRouteName when the
// name is taken.
func (r *Router) registerName(name string, rt *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerNameLocked(name, rt)
}

func (r *Router) registerNameLocked(name string, rt *Route) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrDuplicateRouteName)
	}
	if _, taken := r.named[name]; taken {
		return fmt.Errorf("%w: %q", ErrDuplicateRouteName, name)
	}
	r.named[name] = rt
	rt.name = name
	return nil
}

// checkMutable panics when route configuration is attempted after the
// router has frozen. op names the mutating call for the panic message.
func (r *Router) checkMutable(op string) {
	if r.frozen.Load() {
		panic(fmt.Sprintf("router: %s called after the router was frozen", op))
	}
}

// Freeze makes the route table immutable. It is called automatically when
// the router starts serving; calling it earlier is allowed and makes the
// freeze point explicit in program order. Freeze is idempotent.
func (r *Router) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether the route table has been frozen.
func (r *Router) Frozen() bool {
	return r.frozen.Load()
}

// implemented returns the router's implemented method list. The slice
// must not be modified.
func (r *Router) implemented() []string {
	return r.methods
}

// matchedLayer is one layer selected for a request's dispatch chain.
type matchedLayer struct {
	route    *Route
	captures []string
}

// matchResult is the outcome of matching one path and method against the
// layer list.
type matchResult struct {
	// path holds every layer whose specification matched the path,
	// regardless of method. AllowedMethods builds Allow sets from it.
	path []*Route

	// pathAndMethod holds the layers that matched both path and method,
	// in registration order. The dispatch chain is built from it.
	pathAndMethod []matchedLayer

	// route reports whether any methoded layer matched. When false the
	// chain, if it runs at all, is middleware only and the request falls
	// through once it finishes.
	route bool
}

// match walks the layer list in registration order and partitions the
// layers that match. Middleware layers with an empty method set join the
// chain for any method but do not complete a match on their own.
func (r *Router) match(path, method string) matchResult {
	if r.cache != nil && r.frozen.Load() {
		if m, ok := r.cache.get(method, path); ok {
			return m
		}
	}

	r.mu.RLock()
	stack := r.stack
	r.mu.RUnlock()

	var m matchResult
	for _, rt := range stack {
		caps, ok := rt.matcher.Match(path)
		if !ok {
			continue
		}
		m.path = append(m.path, rt)
		if !rt.methods.Matches(method) {
			continue
		}
		if rt.opts.ignoreCaptures {
			caps = nil
		}
		m.pathAndMethod = append(m.pathAndMethod, matchedLayer{route: rt, captures: caps})
		if !rt.methods.Empty() {
			m.route = true
		}
	}

	if r.cache != nil && r.frozen.Load() {
		r.cache.put(method, path, m)
	}
	return m
}
