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

// Group organizes related routes under a common path prefix with shared
// middleware. Group middleware is copied into the handler stack of every
// route registered through the group, so it runs after any matching Use
// layers and before the route's own handlers.
//
// Unlike Mount, a Group is a registration convenience on the parent
// router itself: routes it creates belong to the parent and there is no
// second dispatch pass.
//
// Example:
//
//	api := r.Group("/api/v1", authMiddleware)
//	api.GET("/users", listUsers)    // GET /api/v1/users
//	api.POST("/users", createUser)  // POST /api/v1/users
type Group struct {
	router     *Router
	prefix     string
	middleware []HandlerFunc
	namePrefix string
}

// Group creates a route group rooted at prefix. The optional middleware
// run for every route registered through the group.
func (r *Router) Group(prefix string, middleware ...HandlerFunc) *Group {
	return &Group{
		router:     r,
		prefix:     prefix,
		middleware: middleware,
	}
}

// Use appends middleware to the group. Only routes registered after the
// call pick it up; routes already added through the group are unchanged.
func (g *Group) Use(middleware ...HandlerFunc) *Group {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// SetNamePrefix appends prefix to the group's route-name prefix. Names
// assigned with SetName on routes registered through the group are
// stored with the accumulated prefix, enabling hierarchical naming.
//
// Example:
//
//	api := r.Group("/api").SetNamePrefix("api.")
//	v1 := api.Group("/v1").SetNamePrefix("v1.")
//	v1.GET("/users", handler).SetName("users.list") // named "api.v1.users.list"
func (g *Group) SetNamePrefix(prefix string) *Group {
	g.namePrefix += prefix
	return g
}

// Group creates a nested group. The child's prefix is the parent prefix
// plus the provided prefix, and the parent's middleware and name prefix
// are inherited.
func (g *Group) Group(prefix string, middleware ...HandlerFunc) *Group {
	combined := make([]HandlerFunc, 0, len(g.middleware)+len(middleware))
	combined = append(combined, g.middleware...)
	combined = append(combined, middleware...)

	return &Group{
		router:     g.router,
		prefix:     joinSpec(g.prefix, prefix),
		middleware: combined,
		namePrefix: g.namePrefix,
	}
}

// GET registers handlers for GET (and HEAD) requests under the group
// prefix.
func (g *Group) GET(path string, handlers ...HandlerFunc) *Route {
	return g.addRoute(Methods(http.MethodGet), path, handlers)
}

// HEAD registers handlers for HEAD requests under the group prefix.
func (g *Group) HEAD(path string, handlers ...HandlerFunc) *Route {
	return g.addRoute(Methods(http.MethodHead), path, handlers)
}

// POST registers handlers for POST requests under the group prefix.
func (g *Group) POST(path string, handlers ...HandlerFunc) *Route {
	return g.addRoute(Methods(http.MethodPost), path, handlers)
}

// PUT registers handlers for PUT requests under the group prefix.
func (g *Group) PUT(path string, handlers ...HandlerFunc) *Route {
	return g.addRoute(Methods(http.MethodPut), path, handlers)
}

// PATCH registers handlers for PATCH requests under the group prefix.
func (g *Group) PATCH(path string, handlers ...HandlerFunc) *Route {
	return g.addRoute(Methods(http.MethodPatch), path, handlers)
}

// DELETE registers handlers for DELETE requests under the group prefix.
func (g *Group) DELETE(path string, handlers ...HandlerFunc) *Route {
	return g.addRoute(Methods(http.MethodDelete), path, handlers)
}

// OPTIONS registers handlers for OPTIONS requests under the group prefix.
func (g *Group) OPTIONS(path string, handlers ...HandlerFunc) *Route {
	return g.addRoute(Methods(http.MethodOptions), path, handlers)
}

// All registers handlers answering every implemented method under the
// group prefix.
func (g *Group) All(path string, handlers ...HandlerFunc) *Route {
	return g.addRoute(AnyMethod(), path, handlers)
}

// Handle registers handlers for an explicit method set under the group
// prefix.
func (g *Group) Handle(methods MethodSet, path string, handlers ...HandlerFunc) *Route {
	return g.addRoute(methods, path, handlers)
}

// addRoute joins the group prefix with path, prepends the group
// middleware, and registers the result on the parent router.
func (g *Group) addRoute(methods MethodSet, path string, handlers []HandlerFunc) *Route {
	stack := make([]HandlerFunc, 0, len(g.middleware)+len(handlers))
	stack = append(stack, g.middleware...)
	stack = append(stack, handlers...)

	rt := g.router.mustRegister(methods, joinSpec(g.prefix, path), stack)
	rt.namePrefix = g.namePrefix + rt.namePrefix
	return rt
}

// joinSpec concatenates a group prefix and a route path, treating either
// side being empty as the other side alone.
func joinSpec(prefix, path string) string {
	switch {
	case prefix == "":
		return path
	case path == "":
		return prefix
	default:
		var sb strings.Builder
		sb.Grow(len(prefix) + len(path))
		sb.WriteString(prefix)
		sb.WriteString(path)
		return sb.String()
	}
}
