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

import "net/url"

// chainState tracks one composed handler chain. current is the index of
// the step now running, highWater the furthest index ever entered. The
// two differ so the chain can detect a step calling Next twice: re-entry
// at or below the high-water mark is the double call.
//
// tail, when set, continues an enclosing chain once this one has advanced
// past its last handler. It is how a nested router's chain resumes its
// parent.
type chainState struct {
	handlers  []HandlerFunc
	current   int
	highWater int
	tail      HandlerFunc
}

// Next runs the next handler in the active chain and returns its error.
// When the chain is exhausted it hands off to the enclosing chain, if
// any, and otherwise returns nil so the request can fall through.
//
// Calling Next a second time from the same handler returns
// ErrNextCalledTwice without running anything.
func (c *Context) Next() error {
	s := c.chain
	if s == nil {
		return nil
	}
	if c.router != nil && c.router.checkCancellation {
		if err := c.Request.Context().Err(); err != nil {
			return err
		}
	}
	next := s.current + 1
	if next <= s.highWater {
		return ErrNextCalledTwice
	}
	s.highWater = next

	saved := s.current
	s.current = next
	var err error
	switch {
	case next < len(s.handlers):
		err = s.handlers[next](c)
	case s.tail != nil:
		err = s.tail(c)
	}
	s.current = saved
	return err
}

// runChain executes s from the top on c, restoring whatever chain was
// active before. Handlers see s as the active chain for the duration.
func (c *Context) runChain(s *chainState) error {
	prev := c.chain
	c.chain = s
	err := c.Next()
	c.chain = prev
	return err
}

// Middleware returns the router's dispatch step as a single HandlerFunc,
// for composing this router into another one:
//
//	api := router.MustNew(router.WithPrefix("/api"))
//	api.GET("/status", status)
//
//	root := router.MustNew()
//	root.Use(api.Middleware())
//
// Mount does the same composition by grafting routes directly and is
// cheaper; Middleware keeps the child router live, so routes added to it
// later are still reachable.
func (r *Router) Middleware() HandlerFunc {
	return func(c *Context) error {
		return r.dispatch(c)
	}
}

// Routes is an alias for Middleware, under the name the composed
// dispatch handler traditionally goes by.
func (r *Router) Routes() HandlerFunc {
	return r.Middleware()
}

// dispatch matches the request against the layer list and runs the
// composed chain of every matching layer.
//
// Layers that matched on path alone are recorded on the context for
// AllowedMethods regardless of the outcome. Middleware layers run even
// when no route matched the method, so Use middleware sees every
// request that reaches the router; the request still falls through when
// the chain finishes without writing. The last methoded match is
// exposed as c.Route.
func (r *Router) dispatch(c *Context) error {
	path := c.routedPath
	if path == "" {
		path = c.Request.URL.Path
	}
	m := r.match(path, c.Request.Method)

	c.matched = append(c.matched, m.path...)

	// A nested dispatch must not leak its router past its own chain:
	// handlers of the enclosing chain keep seeing the enclosing router's
	// cancellation setting and diagnostics.
	prevRouter := c.router
	c.router = r

	if len(m.pathAndMethod) == 0 {
		c.router = prevRouter
		return c.Next()
	}

	for _, ml := range m.pathAndMethod {
		if !ml.route.methods.Empty() {
			c.route = ml.route
		}
	}

	n := len(m.pathAndMethod)
	for _, ml := range m.pathAndMethod {
		n += len(ml.route.stack)
	}
	handlers := make([]HandlerFunc, 0, n)
	for _, ml := range m.pathAndMethod {
		ml := ml
		handlers = append(handlers, func(c *Context) error {
			c.bindLayer(ml.route, ml.captures)
			return c.Next()
		})
		for _, step := range ml.route.stack {
			handlers = append(handlers, step.fn)
		}
	}

	s := &chainState{handlers: handlers, current: -1, highWater: -1}
	if outer := c.chain; outer != nil {
		s.tail = func(c *Context) error {
			prev := c.chain
			c.chain = outer
			c.router = prevRouter
			err := c.Next()
			c.router = r
			c.chain = prev
			return err
		}
	}
	err := c.runChain(s)
	c.router = prevRouter
	return err
}

// bindLayer installs a matched layer's captures on the context before its
// handlers run. Parameters merge across layers: a later layer's non-empty
// capture overwrites an earlier one of the same name, while empty
// captures for optional parameters never erase an existing value.
func (c *Context) bindLayer(rt *Route, captures []string) {
	// Entering a new layer: names the earlier layers validated now
	// self-skip, while this layer's own validator stack runs in full.
	c.validatedMark = len(c.validated)

	c.captures = captures
	keys := rt.matcher.Keys()
	for i, k := range keys {
		if i >= len(captures) {
			break
		}
		if captures[i] == "" {
			continue
		}
		c.setParam(k.Name, pathDecode(captures[i]))
	}
}

// pathDecode unescapes a capture value, falling back to the raw text when
// the escape sequence is malformed rather than failing the request.
func pathDecode(v string) string {
	if d, err := url.PathUnescape(v); err == nil {
		return d
	}
	return v
}
