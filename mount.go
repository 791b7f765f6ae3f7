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
	"net/http"
	"strings"
)

// mountCfg holds configuration for a mounted subrouter.
type mountCfg struct {
	extraMiddleware []HandlerFunc
	namePrefix      string
	notFoundHandler HandlerFunc
}

// MountOption configures how a subrouter is mounted.
type MountOption func(*mountCfg)

// WithMiddleware adds middleware scoped to the mounted prefix. It runs
// ahead of the grafted routes for every request under the prefix.
func WithMiddleware(m ...HandlerFunc) MountOption {
	return func(cfg *mountCfg) {
		cfg.extraMiddleware = append(cfg.extraMiddleware, m...)
	}
}

// NamePrefix adds a prefix to all route names grafted from the subrouter.
// Useful for keeping names unique when the same subrouter is mounted more
// than once.
//
// Example:
//
//	r.Mount("/admin", sub, router.NamePrefix("admin."))
//	// Route named "users" becomes "admin.users"
func NamePrefix(prefix string) MountOption {
	return func(cfg *mountCfg) {
		cfg.namePrefix = prefix
	}
}

// WithNotFound sets a custom 404 handler for requests under the mount
// prefix that fall through every layer.
func WithNotFound(h HandlerFunc) MountOption {
	return func(cfg *mountCfg) {
		cfg.notFoundHandler = h
	}
}

// Mount grafts a subrouter's layers onto this router under the given
// prefix. Layers are deep-copied with the prefix prepended to their
// specifications, so the full pattern such as "/admin/users/:id" is what
// matches, appears in listings, and reaches observability. The subrouter
// is left untouched and can be mounted again elsewhere.
//
// A child route registered at "/" becomes the prefix itself, so the
// subrouter's root answers at "/admin", not "/admin/".
//
// The parent's middleware applies to grafted routes the same way it
// applies to everything else: layers run in registration order, so
// middleware registered before Mount runs before the grafted handlers.
// Parameter validators registered with r.Param are applied to grafted
// routes that capture the name, unless the subrouter already supplied a
// validator of its own.
//
// Route names transfer with first-wins semantics: a grafted name already
// taken on the parent keeps pointing at the earlier route. Use NamePrefix
// to namespace grafted names.
//
// Example:
//
//	admin := router.MustNew()
//	admin.GET("/users/:id", getUser).SetName("user")
//
//	r.Mount("/admin", admin,
//	    router.WithMiddleware(requireAdmin),
//	    router.NamePrefix("admin."),
//	)
//	// GET /admin/users/42 runs requireAdmin, then getUser.
//	// r.URLFor("admin.user", ...) builds "/admin/users/42".
func (r *Router) Mount(prefix string, sub *Router, opts ...MountOption) {
	if sub == nil {
		return
	}
	r.checkMutable("Mount")

	// Normalize prefix: ensure it starts with / and doesn't end with /.
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix != "" && prefix[0] != '/' {
		prefix = "/" + prefix
	}

	cfg := &mountCfg{}
	for _, opt := range opts {
		opt(cfg)
	}

	// The router's own prefix compounds with the mount prefix, the same
	// way it is prepended to direct registrations: a router built with
	// WithPrefix("/api") mounting at "/admin" serves the grafted routes
	// under /api/admin, and URLFor builds the full path.
	full := r.prefix + prefix

	if len(cfg.extraMiddleware) > 0 {
		at := prefix
		if at == "" {
			at = "(.*)"
		}
		r.UseAt(at, cfg.extraMiddleware...)
	}

	sub.mu.RLock()
	children := append([]*Route(nil), sub.stack...)
	sub.mu.RUnlock()

	r.mu.Lock()
	for _, child := range children {
		clone := child.clone(r)
		clone.namePrefix = cfg.namePrefix + clone.namePrefix
		if full != "" {
			clone.SetPrefix(full)
		}
		for _, p := range r.params {
			if !clone.hasParamStep(p.name) {
				clone.Param(p.name, p.fn)
			}
		}
		if child.name != "" {
			full := cfg.namePrefix + child.name
			clone.name = full
			if _, taken := r.named[full]; !taken {
				r.named[full] = clone
			}
		}
		r.stack = append(r.stack, clone)
	}
	if r.cache != nil {
		r.cache.invalidate()
	}
	r.mu.Unlock()

	for _, child := range children {
		r.emit(DiagRouteRegistered, "route registered", map[string]any{
			"methods": child.methods.String(),
			"path":    full + child.spec,
			"mounted": true,
		})
	}

	if cfg.notFoundHandler != nil {
		r.noRouteMu.Lock()
		parent := r.noRoute
		r.noRouteMu.Unlock()
		scope := full
		if scope == "" {
			scope = "/"
		}
		r.NoRoute(func(c *Context) error {
			if strings.HasPrefix(c.Request.URL.Path, scope) {
				return cfg.notFoundHandler(c)
			}
			if parent != nil {
				return parent(c)
			}
			c.NotFound()
			return nil
		})
	}
}

// Handler adapts the router for composition with plain http.Handler
// stacks: requests that fall through every layer without a response are
// passed to next instead of receiving the router's 404.
//
//	mux := http.NewServeMux()
//	mux.Handle("/metrics", promhttp.Handler())
//	http.ListenAndServe(":8080", api.Handler(mux))
func (r *Router) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.serveHTTP(w, req, next)
	})
}
