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

// Package router provides a cascading HTTP router for Go.
//
// Unlike first-match routers, this router runs every layer that matches
// a request, composed into a single handler chain. Layers are routes and
// path-scoped middleware in one ordered list; each handler decides via
// c.Next whether the chain continues. A request that matches no route
// falls through untouched, which keeps routers composable with each
// other and with plain http.Handlers.
//
// # Key Features
//
//   - Pattern matching with named, optional, and custom-shaped parameters
//   - Cascade dispatch: all matching layers run, in registration order
//   - Path-scoped middleware with parameter binding (Use, UseAt)
//   - Parameter validators that run once per request per name (Param)
//   - Route groups and subrouter mounting with deep-copy grafting
//   - Named routes and reverse URL generation (URLFor, Route.URL)
//   - Method introspection for 405/OPTIONS handling (AllowedMethods)
//   - Context pooling for request handling
//   - Content negotiation (Accept, Accept-Language, Accept-Encoding)
//   - Conditional requests (ETag, Last-Modified, If-* preconditions)
//   - OpenTelemetry tracing and metrics via pluggable recorders
//
// # Quick Start
//
//	package main
//
//	import (
//	    "net/http"
//	    "strata.dev/router"
//	)
//
//	func main() {
//	    r := router.MustNew()
//
//	    r.GET("/", func(c *router.Context) error {
//	        return c.JSON(http.StatusOK, map[string]string{"message": "Hello World"})
//	    })
//
//	    r.GET("/users/:id", func(c *router.Context) error {
//	        return c.JSON(http.StatusOK, map[string]string{"user_id": c.Param("id")})
//	    })
//
//	    http.ListenAndServe(":8080", r)
//	}
//
// # Patterns
//
// Route specifications are segment-based with named parameters:
//
//	/users/:id            one required parameter
//	/files/:path*         zero or more trailing segments
//	/files/:path+         one or more trailing segments
//	/archive/:year(\d{4}) parameter constrained by a shape
//	/users/:id?           optional parameter
//
// A route's handlers receive decoded parameter values through
// c.Param("id") and friends.
//
// # Middleware and the Cascade
//
// Middleware is a layer without methods. It matches by path prefix and
// joins the same chain as routes, in registration order:
//
//	r.Use(requestid.New(), recovery.New())
//	r.UseAt("/admin", requireAdmin)
//
// A handler calls c.Next to run the rest of the chain and may act both
// before and after it:
//
//	func timing(c *router.Context) error {
//	    start := time.Now()
//	    err := c.Next()
//	    c.Logger().Info("handled", "took", time.Since(start))
//	    return err
//	}
//
// # Lifecycle
//
// Routes may be registered and configured freely until the router
// starts serving. The first request freezes the route table; afterwards
// registration fails and fluent configuration panics. This makes
// configuration and serving mutually exclusive phases with no locking
// on the hot path.
//
// # Composition
//
// Routers compose three ways:
//
//	r.Mount("/admin", adminRouter)      // graft routes, cheapest
//	r.UseAt("/api", apiRouter.Middleware()) // keep the child live
//	http.ListenAndServe(":8080", r.Handler(legacyMux)) // fall through
//
// # Reverse Routing
//
// Named routes generate their own URLs, so links never drift from the
// route table:
//
//	r.GET("/users/:id", getUser).SetName("user")
//	url, err := r.URLFor("user", map[string]string{"id": "42"}, nil)
//	// "/users/42"
//
// # Method Introspection
//
// AllowedMethods answers 405 and OPTIONS from the route table itself:
//
//	r.Use(r.AllowedMethods())
//	// GET and POST registered on /tasks:
//	// OPTIONS /tasks    -> 200, Allow: GET, HEAD, POST
//	// DELETE  /tasks    -> 405, Allow: GET, HEAD, POST
//
// # Observability
//
// A pluggable recorder sees the whole request lifecycle, including the
// matched route pattern for low-cardinality metric labels:
//
//	r := router.MustNew()
//	r.SetObservabilityRecorder(telemetry.MustNew(telemetry.WithPrometheus()))
//
// # Examples
//
// See the examples directory for complete working programs covering
// basic routing, mounting, validators, and observability.
package router
