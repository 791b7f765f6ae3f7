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
	"net/url"
	"reflect"
	"runtime"
	"strings"

	"strata.dev/router/pattern"
)

// Lookup returns the route registered under name, including routes that
// were named inside a mounted router.
func (r *Router) Lookup(name string) (*Route, bool) {
	r.mu.RLock()
	rt, ok := r.named[name]
	r.mu.RUnlock()
	return rt, ok
}

// URLFor builds the URL for the named route. Parameter values are
// percent-escaped per path segment; query is appended in encoded form
// when non-empty. Unlike matching, building does not require the router
// to be frozen.
//
//	r.GET("/users/:id", handler).SetName("user")
//	u, _ := r.URLFor("user", map[string]string{"id": "42"}, nil) // "/users/42"
func (r *Router) URLFor(name string, params map[string]string, query url.Values) (string, error) {
	rt, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}
	return rt.URL(params, query)
}

// MustURLFor is URLFor, panicking when the route is unknown or a
// required parameter is missing. Intended for startup wiring and
// templates where a bad name is a programming error.
func (r *Router) MustURLFor(name string, params map[string]string, query url.Values) string {
	u, err := r.URLFor(name, params, query)
	if err != nil {
		panic(fmt.Sprintf("router.MustURLFor: %v", err))
	}
	return u
}

// URL builds a URL from a path specification without a router, compiling
// the specification on the spot.
//
//	u, _ := router.URL("/users/:id/posts/:pid", map[string]string{
//		"id":  "7",
//		"pid": "14",
//	}, nil) // "/users/7/posts/14"
func URL(spec string, params map[string]string, query url.Values) (string, error) {
	m, err := pattern.Compile(spec, pattern.Options{})
	if err != nil {
		return "", err
	}
	path, err := m.Build(params)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path, nil
}

// RouteInfo is a snapshot of one registered route, used for startup
// logging, documentation generation, and debugging.
type RouteInfo struct {
	Methods     []string          // concrete methods the route answers
	Path        string            // path specification as registered
	Name        string            // route name, empty when unnamed
	Handler     string            // resolved name of the final handler
	Description string            // free-form description, empty when unset
	Tags        []string          // grouping tags, nil when unset
	Params      []string          // capture names in path order
	Constraints map[string]string // Where overrides keyed by parameter
}

// RoutesInfo lists the registered routes in registration order, which
// is also match order. Middleware layers added with Use carry no
// methods and are omitted.
func (r *Router) RoutesInfo() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]RouteInfo, 0, len(r.stack))
	for _, rt := range r.stack {
		if rt.methods.Empty() {
			continue
		}
		var constraints map[string]string
		if len(rt.constraints) > 0 {
			constraints = make(map[string]string, len(rt.constraints))
			for k, v := range rt.constraints {
				constraints[k] = v
			}
		}
		var handler string
		if n := len(rt.stack); n > 0 {
			handler = handlerName(rt.stack[n-1].fn)
		}
		infos = append(infos, RouteInfo{
			Methods:     rt.methods.Expand(r.methods),
			Path:        rt.spec,
			Name:        rt.name,
			Handler:     handler,
			Description: rt.description,
			Tags:        rt.Tags(),
			Params:      rt.ParamNames(),
			Constraints: constraints,
		})
	}
	return infos
}

// handlerName resolves a handler function to its package-qualified name
// for introspection output. Anonymous functions keep the runtime's
// funcN suffix, which is still enough to locate them.
func handlerName(fn HandlerFunc) string {
	if fn == nil {
		return "nil"
	}
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "unknown"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
