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
	"fmt"
	"net/http"
	"strings"
)

// registerConfig carries per-registration overrides resolved from
// RouteOptions. Tri-state fields fall back to the router's configuration
// when unset.
type registerConfig struct {
	name           string
	sensitive      *bool
	strict         *bool
	prefix         bool
	ignoreCaptures bool
}

// RouteOption adjusts a single registration made through Register.
type RouteOption func(*registerConfig)

// Name names the route at registration time. Unlike the fluent SetName,
// a duplicate name surfaces as an error from Register and the route is
// not added.
func Name(name string) RouteOption {
	return func(cfg *registerConfig) { cfg.name = name }
}

// Sensitive overrides the router's case sensitivity for this route.
func Sensitive(enabled bool) RouteOption {
	return func(cfg *registerConfig) { cfg.sensitive = &enabled }
}

// Strict overrides the router's trailing-slash handling for this route.
func Strict(enabled bool) RouteOption {
	return func(cfg *registerConfig) { cfg.strict = &enabled }
}

// PrefixMatch registers the route as a segment-aligned prefix matcher
// instead of a full-path matcher, the way UseAt registers middleware.
func PrefixMatch() RouteOption {
	return func(cfg *registerConfig) { cfg.prefix = true }
}

// IgnoreCaptures keeps the route's captured values out of parameter
// binding. The route still matches; c.Param simply never sees its
// captures.
func IgnoreCaptures() RouteOption {
	return func(cfg *registerConfig) { cfg.ignoreCaptures = true }
}

// Register adds a layer answering the given methods at path and returns
// it for further fluent configuration. It is the error-returning core
// behind the verb helpers.
//
// Registration fails when the specification does not compile, a handler
// is nil, the Name option duplicates an existing name, or the router has
// already frozen.
//
// Example:
//
//	rt, err := r.Register(
//	    router.Methods(http.MethodGet, http.MethodPost),
//	    "/things/:id",
//	    []router.HandlerFunc{show},
//	    router.Name("thing"),
//	)
func (r *Router) Register(methods MethodSet, path string, handlers []HandlerFunc, opts ...RouteOption) (*Route, error) {
	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return r.register(methods, path, handlers, cfg)
}

// register is the registration core shared by Register, the verb
// helpers, UseAt, and Mount.
func (r *Router) register(methods MethodSet, path string, handlers []HandlerFunc, cfg registerConfig) (*Route, error) {
	if r.frozen.Load() {
		return nil, fmt.Errorf("%w: cannot register %q", ErrRouterFrozen, path)
	}
	if len(handlers) == 0 {
		return nil, fmt.Errorf("%w: no handlers for %q", ErrNilHandler, path)
	}

	opts := routeOptions{
		sensitive:      r.sensitive,
		strict:         r.strict,
		prefix:         cfg.prefix,
		ignoreCaptures: cfg.ignoreCaptures,
	}
	if cfg.sensitive != nil {
		opts.sensitive = *cfg.sensitive
	}
	if cfg.strict != nil {
		opts.strict = *cfg.strict
	}

	spec := path
	if r.prefix != "" {
		if spec == "/" && !opts.strict {
			spec = r.prefix
		} else {
			spec = r.prefix + spec
		}
	}

	rt, err := newRoute(r, spec, methods, handlers, opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if cfg.name != "" {
		if err := r.registerNameLocked(cfg.name, rt); err != nil {
			r.mu.Unlock()
			return nil, err
		}
	}
	for _, p := range r.params {
		rt.Param(p.name, p.fn)
	}
	dup := false
	shadowedBy := ""
	for _, prev := range r.stack {
		if prev.spec == rt.spec && !prev.methods.Empty() && !rt.methods.Empty() &&
			prev.methods.String() == rt.methods.String() {
			dup = true
			break
		}
		// A literal route whose full path an earlier dispatchable route
		// also matches under covering methods is reachable only through
		// that route's continuation. Token specs are skipped: the spec
		// string is not a request path for them.
		if shadowedBy == "" && !prev.methods.Empty() && !rt.methods.Empty() &&
			len(rt.ParamNames()) == 0 && prev.spec != rt.spec &&
			prev.Match(rt.spec) && coversMethods(prev.methods, rt.methods, r.methods) {
			shadowedBy = prev.spec
		}
	}
	r.stack = append(r.stack, rt)
	if r.cache != nil {
		r.cache.invalidate()
	}
	r.mu.Unlock()

	r.emit(DiagRouteRegistered, "route registered", map[string]any{
		"methods": methods.String(),
		"path":    rt.spec,
	})
	if dup {
		r.emit(DiagDuplicatePattern, "pattern already registered with the same methods", map[string]any{
			"methods": methods.String(),
			"path":    rt.spec,
		})
	}
	if shadowedBy != "" {
		r.emit(DiagRouteShadowed, "route only reachable through an earlier route's continuation", map[string]any{
			"methods":     methods.String(),
			"path":        rt.spec,
			"shadowed_by": shadowedBy,
		})
	}
	if n := len(rt.ParamNames()); n > paramSlots {
		r.emit(DiagHighParamCount, "route captures more parameters than the context fast path", map[string]any{
			"path":   rt.spec,
			"params": n,
		})
	}
	return rt, nil
}

// coversMethods reports whether every concrete method of b is also
// answered by a, given the router's implemented list.
func coversMethods(a, b MethodSet, implemented []string) bool {
	for _, m := range b.Expand(implemented) {
		if !a.Matches(m) {
			return false
		}
	}
	return true
}

// mustRegister backs the verb helpers, which panic on registration
// errors the way route construction traditionally does at startup.
func (r *Router) mustRegister(methods MethodSet, path string, handlers []HandlerFunc) *Route {
	rt, err := r.register(methods, path, handlers, registerConfig{})
	if err != nil {
		panic(fmt.Sprintf("router: register %s %q: %v", methods, path, err))
	}
	return rt
}

// GET registers handlers for GET requests at path. HEAD requests match
// as well; net/http drops the body for them automatically.
//
// Panics on a malformed specification. Use Register to handle
// registration errors explicitly.
func (r *Router) GET(path string, handlers ...HandlerFunc) *Route {
	return r.mustRegister(Methods(http.MethodGet), path, handlers)
}

// HEAD registers handlers for HEAD requests at path.
func (r *Router) HEAD(path string, handlers ...HandlerFunc) *Route {
	return r.mustRegister(Methods(http.MethodHead), path, handlers)
}

// POST registers handlers for POST requests at path.
func (r *Router) POST(path string, handlers ...HandlerFunc) *Route {
	return r.mustRegister(Methods(http.MethodPost), path, handlers)
}

// PUT registers handlers for PUT requests at path.
func (r *Router) PUT(path string, handlers ...HandlerFunc) *Route {
	return r.mustRegister(Methods(http.MethodPut), path, handlers)
}

// PATCH registers handlers for PATCH requests at path.
func (r *Router) PATCH(path string, handlers ...HandlerFunc) *Route {
	return r.mustRegister(Methods(http.MethodPatch), path, handlers)
}

// DELETE registers handlers for DELETE requests at path.
func (r *Router) DELETE(path string, handlers ...HandlerFunc) *Route {
	return r.mustRegister(Methods(http.MethodDelete), path, handlers)
}

// OPTIONS registers handlers for OPTIONS requests at path. Most
// applications answer OPTIONS through AllowedMethods instead.
func (r *Router) OPTIONS(path string, handlers ...HandlerFunc) *Route {
	return r.mustRegister(Methods(http.MethodOptions), path, handlers)
}

// All registers handlers answering every implemented method at path.
func (r *Router) All(path string, handlers ...HandlerFunc) *Route {
	return r.mustRegister(AnyMethod(), path, handlers)
}

// Handle registers handlers for an explicit method set at path, panicking
// on error like the verb helpers.
func (r *Router) Handle(methods MethodSet, path string, handlers ...HandlerFunc) *Route {
	return r.mustRegister(methods, path, handlers)
}

// HandlePaths registers the same method set and handlers at several
// paths, returning one route per path. Registration stops at the first
// error; earlier routes stay registered.
func (r *Router) HandlePaths(methods MethodSet, paths []string, handlers ...HandlerFunc) ([]*Route, error) {
	routes := make([]*Route, 0, len(paths))
	for _, p := range paths {
		rt, err := r.register(methods, p, handlers, registerConfig{})
		if err != nil {
			return routes, err
		}
		routes = append(routes, rt)
	}
	return routes, nil
}

// Redirect registers a route at source that answers every method with a
// redirect to destination. Either argument may be a route name instead of
// a path; names are resolved when Redirect is called. The status code
// defaults to 301.
//
//	r.GET("/new-home", handler).SetName("home")
//	r.Redirect("/old-home", "home", http.StatusTemporaryRedirect)
func (r *Router) Redirect(source, destination string, code ...int) *Route {
	status := http.StatusMovedPermanently
	if len(code) > 0 {
		status = code[0]
	}

	src := source
	if !strings.HasPrefix(src, "/") {
		rt, ok := r.Lookup(src)
		if !ok {
			panic(fmt.Sprintf("router: Redirect: unknown route name %q", src))
		}
		src = rt.Path()
	}
	target := destination
	if !strings.HasPrefix(target, "/") {
		rt, ok := r.Lookup(target)
		if !ok {
			panic(fmt.Sprintf("router: Redirect: unknown route name %q", target))
		}
		u, err := rt.URL(nil, nil)
		if err != nil {
			panic(fmt.Sprintf("router: Redirect: cannot build URL for %q: %v", target, err))
		}
		target = u
	}

	return r.All(src, func(c *Context) error {
		c.Redirect(status, target)
		return nil
	})
}
