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
	"regexp"
	"strings"

	"strata.dev/router/pattern"
)

// routeStep is one entry in a route's handler stack. Steps produced by
// Param carry the parameter name they validate so later splices keep
// validators ordered by capture position.
type routeStep struct {
	fn    HandlerFunc
	param string
}

// routeOptions are the per-route matching options, resolved from router
// options and registration overrides.
type routeOptions struct {
	sensitive      bool
	strict         bool
	prefix         bool
	ignoreCaptures bool
}

// Route is a single layer of the router: a compiled path specification,
// the method set it answers to, and its handler stack. Routes registered
// through verb helpers carry methods; layers registered through Use carry
// the empty set and act as path-scoped middleware.
//
// A Route is configured fluently at registration time:
//
//	r.GET("/users/:id", show).
//	    SetName("user").
//	    WhereInt("id").
//	    SetDescription("Fetch one user")
//
// Configuration must finish before the router starts serving; fluent
// mutators panic once the router is frozen.
type Route struct {
	router *Router

	spec        string
	methods     MethodSet
	stack       []routeStep
	matcher     *pattern.Matcher
	opts        routeOptions
	constraints map[string]string

	name        string
	namePrefix  string
	description string
	tags        []string
}

// newRoute compiles spec and builds a route owned by r.
func newRoute(r *Router, spec string, methods MethodSet, handlers []HandlerFunc, opts routeOptions) (*Route, error) {
	if spec == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPattern)
	}
	steps := make([]routeStep, 0, len(handlers))
	for i, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("%w: handler %d for %q", ErrNilHandler, i, spec)
		}
		steps = append(steps, routeStep{fn: h})
	}

	rt := &Route{
		router:  r,
		spec:    spec,
		methods: methods,
		stack:   steps,
		opts:    opts,
	}
	if err := rt.compile(); err != nil {
		return nil, err
	}
	return rt, nil
}

// compile rebuilds the matcher from the current spec, options, and
// constraints.
func (rt *Route) compile() error {
	m, err := pattern.Compile(rt.spec, pattern.Options{
		Sensitive:   rt.opts.sensitive,
		Strict:      rt.opts.strict,
		Prefix:      rt.opts.prefix,
		Constraints: rt.constraints,
	})
	if err != nil {
		return err
	}
	rt.matcher = m
	return nil
}

// Match reports whether path satisfies the route's specification.
func (rt *Route) Match(path string) bool {
	_, ok := rt.matcher.Match(path)
	return ok
}

// Captures returns the raw capture values for path, nil when the path
// does not match or the layer ignores captures. Values are returned
// undecoded; parameter binding decodes them.
func (rt *Route) Captures(path string) []string {
	caps, ok := rt.matcher.Match(path)
	if !ok || rt.opts.ignoreCaptures {
		return nil
	}
	return caps
}

// ParamNames returns the route's parameter names in capture order.
func (rt *Route) ParamNames() []string {
	keys := rt.matcher.Keys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Name
	}
	return names
}

// Path returns the route's path specification, including any prefixes
// applied by groups or mounts.
func (rt *Route) Path() string {
	return rt.spec
}

// Methods returns the method set the route answers to.
func (rt *Route) Methods() MethodSet {
	return rt.methods
}

// Name returns the route's name, or "" if unnamed.
func (rt *Route) Name() string {
	return rt.name
}

// Description returns the route description set via SetDescription.
func (rt *Route) Description() string {
	return rt.description
}

// Tags returns a copy of the route's tags.
func (rt *Route) Tags() []string {
	if len(rt.tags) == 0 {
		return nil
	}
	return append([]string(nil), rt.tags...)
}

// SetName names the route for reverse URL generation via Router.URLFor.
// Group and mount name prefixes are applied automatically.
//
// SetName panics if the name is already taken on this router or the
// router is frozen. Names must be unique per router; use Register with
// the Name option for an error-returning variant.
func (rt *Route) SetName(name string) *Route {
	rt.router.checkMutable("SetName")
	full := rt.namePrefix + name
	if err := rt.router.registerName(full, rt); err != nil {
		panic(fmt.Sprintf("router: %v", err))
	}
	return rt
}

// SetDescription attaches a human-readable description, surfaced through
// Routes listings.
func (rt *Route) SetDescription(desc string) *Route {
	rt.router.checkMutable("SetDescription")
	rt.description = desc
	return rt
}

// SetTags attaches classification tags, surfaced through Routes listings.
func (rt *Route) SetTags(tags ...string) *Route {
	rt.router.checkMutable("SetTags")
	rt.tags = append([]string(nil), tags...)
	return rt
}

// SetPrefix rewrites the route's specification under a path prefix and
// recompiles it. A "/" specification on a slash-lenient route collapses
// to the prefix itself, so mounting a child's root route at "/api" yields
// "/api" rather than "/api/".
//
// SetPrefix panics if the combined specification does not compile.
func (rt *Route) SetPrefix(prefix string) *Route {
	rt.router.checkMutable("SetPrefix")
	if rt.spec == "/" && !rt.opts.strict {
		rt.spec = prefix
	} else {
		rt.spec = prefix + rt.spec
	}
	if err := rt.compile(); err != nil {
		panic(fmt.Sprintf("router: %v", err))
	}
	return rt
}

// Where constrains a named parameter to a regular expression, narrowing
// what the route matches:
//
//	r.GET("/users/:id", show).Where("id", `\d+`)
//
// rejects /users/abc before any handler runs. Constraining a name the
// specification does not declare is a no-op. Panics if expr is not a
// valid regular expression or the router is frozen.
func (rt *Route) Where(name, expr string) *Route {
	rt.router.checkMutable("Where")
	if _, err := regexp.Compile(expr); err != nil {
		panic(fmt.Sprintf("router: Where(%q): invalid pattern %q: %v", name, expr, err))
	}
	if rt.constraints == nil {
		rt.constraints = make(map[string]string)
	}
	rt.constraints[name] = expr
	if err := rt.compile(); err != nil {
		panic(fmt.Sprintf("router: Where(%q): %v", name, err))
	}
	return rt
}

// WhereInt constrains the parameter to decimal digits.
func (rt *Route) WhereInt(name string) *Route {
	return rt.Where(name, `\d+`)
}

// WhereFloat constrains the parameter to a decimal number with an
// optional fractional part.
func (rt *Route) WhereFloat(name string) *Route {
	return rt.Where(name, `\d+(?:\.\d+)?`)
}

// WhereUUID constrains the parameter to the canonical UUID form.
func (rt *Route) WhereUUID(name string) *Route {
	return rt.Where(name, `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
}

// WhereEnum constrains the parameter to one of the given literal values.
func (rt *Route) WhereEnum(name string, values ...string) *Route {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return rt.Where(name, strings.Join(quoted, "|"))
}

// WhereDate constrains the parameter to an RFC 3339 full-date such as
// 2026-01-31.
func (rt *Route) WhereDate(name string) *Route {
	return rt.Where(name, `\d{4}-\d{2}-\d{2}`)
}

// Param splices a validator for the named parameter into the route's
// handler stack. Validators run before the route's handlers, ordered by
// the parameter's capture position regardless of the order they were
// added in. A name the route does not capture is a no-op.
//
// During a request the validator receives the decoded parameter value
// and must call c.Next to continue the chain:
//
//	rt.Param("id", func(c *router.Context, id string) error {
//	    if _, err := strconv.Atoi(id); err != nil {
//	        return router.NewHTTPError(http.StatusBadRequest, "id must be numeric")
//	    }
//	    return c.Next()
//	})
//
// Validators added to the same route for one name all run, in the order
// they were added. Across the matched layers of one request a name is
// validated by the first layer that captures it; later layers skip it.
func (rt *Route) Param(name string, fn ParamFunc) *Route {
	rt.router.checkMutable("Param")
	names := rt.ParamNames()
	pos := -1
	for i, n := range names {
		if n == name {
			pos = i
			break
		}
	}
	if pos < 0 {
		return rt
	}

	step := routeStep{
		param: name,
		fn:    paramHandler(name, fn),
	}

	index := func(n string) int {
		for i, cand := range names {
			if cand == n {
				return i
			}
		}
		return len(names)
	}

	at := len(rt.stack)
	for i, s := range rt.stack {
		if s.param == "" || index(s.param) > pos {
			at = i
			break
		}
	}
	rt.stack = append(rt.stack, routeStep{})
	copy(rt.stack[at+1:], rt.stack[at:])
	rt.stack[at] = step
	return rt
}

// paramHandler adapts a ParamFunc into a chain step. The step skips
// itself when the parameter is absent from the bound set or when an
// earlier layer already validated the name this request.
func paramHandler(name string, fn ParamFunc) HandlerFunc {
	return func(c *Context) error {
		v, ok := c.boundParam(name)
		if !ok || !c.beginParamValidation(name) {
			return c.Next()
		}
		return fn(c, v)
	}
}

// URL generates a URL for the route from the given parameter values.
// Optional parameters may be omitted; every required parameter must be
// present or URL returns an error wrapping ErrMissingRouteParameter.
// A non-nil query is appended as an encoded query string.
func (rt *Route) URL(params map[string]string, query url.Values) (string, error) {
	path, err := rt.matcher.Build(params)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path, nil
}

// URLPositional is like URL but fills parameters in capture order.
func (rt *Route) URLPositional(values ...string) (string, error) {
	return rt.matcher.BuildPositional(values...)
}

// clone returns a copy of the route suitable for grafting onto another
// router. The handler stack, constraints, and tags are copied so later
// configuration of either route leaves the other untouched.
func (rt *Route) clone(owner *Router) *Route {
	dup := &Route{
		router:      owner,
		spec:        rt.spec,
		methods:     rt.methods,
		stack:       append([]routeStep(nil), rt.stack...),
		matcher:     rt.matcher,
		opts:        rt.opts,
		name:        rt.name,
		namePrefix:  rt.namePrefix,
		description: rt.description,
		tags:        append([]string(nil), rt.tags...),
	}
	if len(rt.constraints) > 0 {
		dup.constraints = make(map[string]string, len(rt.constraints))
		for k, v := range rt.constraints {
			dup.constraints[k] = v
		}
	}
	return dup
}

// hasParamStep reports whether a validator for name is already spliced
// into the stack. Used when re-applying router-level validators to
// mounted routes.
func (rt *Route) hasParamStep(name string) bool {
	for _, s := range rt.stack {
		if s.param == name {
			return true
		}
	}
	return false
}
