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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMountGraftsRoutesUnderPrefix(t *testing.T) {
	t.Parallel()

	admin := MustNew()
	admin.GET("/users/:id", func(c *Context) error {
		return c.String(http.StatusOK, "user "+c.Param("id"))
	})

	r := MustNew()
	r.Mount("/admin", admin)

	w := perform(r, http.MethodGet, "/admin/users/42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user 42", w.Body.String())

	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodGet, "/users/42").Code)
}

func TestMountParameterizedPrefix(t *testing.T) {
	t.Parallel()

	posts := MustNew()
	posts.GET("/:pid", func(c *Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"fid": c.Param("fid"),
			"pid": c.Param("pid"),
		})
	})

	forums := MustNew()
	forums.Mount("/forums/:fid/posts", posts)

	w := perform(forums, http.MethodGet, "/forums/123/posts/55")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"fid":"123","pid":"55"}`, w.Body.String())
}

func TestMountRootRouteCollapses(t *testing.T) {
	t.Parallel()

	sub := MustNew()
	sub.GET("/", ok("sub root"))

	r := MustNew()
	r.Mount("/api", sub)

	w := perform(r, http.MethodGet, "/api")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sub root", w.Body.String())
}

func TestMountLeavesSubrouterUntouched(t *testing.T) {
	t.Parallel()

	sub := MustNew()
	sub.GET("/ping", ok("pong"))

	r1 := MustNew()
	r1.Mount("/a", sub)
	r2 := MustNew()
	r2.Mount("/b", sub)

	assert.Equal(t, http.StatusOK, perform(r1, http.MethodGet, "/a/ping").Code)
	assert.Equal(t, http.StatusOK, perform(r2, http.MethodGet, "/b/ping").Code)
	assert.Equal(t, http.StatusOK, perform(sub, http.MethodGet, "/ping").Code)
}

func TestMountWithMiddleware(t *testing.T) {
	t.Parallel()

	var guarded bool
	sub := MustNew()
	sub.GET("/secret", ok("s"))

	r := MustNew()
	r.Mount("/admin", sub, WithMiddleware(func(c *Context) error {
		guarded = true
		return c.Next()
	}))
	r.GET("/open", ok("o"))

	perform(r, http.MethodGet, "/admin/secret")
	assert.True(t, guarded)

	guarded = false
	perform(r, http.MethodGet, "/open")
	assert.False(t, guarded, "mount middleware is scoped to the prefix")
}

func TestMountNamePrefix(t *testing.T) {
	t.Parallel()

	sub := MustNew()
	sub.GET("/users/:id", ok("u")).SetName("user")

	r := MustNew()
	r.Mount("/admin", sub, NamePrefix("admin."))

	u, err := r.URLFor("admin.user", map[string]string{"id": "9"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/admin/users/9", u)

	_, err = r.URLFor("user", nil, nil)
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestMountCompoundsRouterPrefix(t *testing.T) {
	t.Parallel()

	sub := MustNew()
	sub.GET("/users/:id", func(c *Context) error {
		return c.String(http.StatusOK, "user "+c.Param("id"))
	}).SetName("user")

	r := MustNew(WithPrefix("/api"))
	r.Mount("/admin", sub)

	w := perform(r, http.MethodGet, "/api/admin/users/7")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user 7", w.Body.String())

	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodGet, "/admin/users/7").Code,
		"grafted routes live under the router's own prefix too")

	u, err := r.URLFor("user", map[string]string{"id": "7"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/admin/users/7", u)
}

func TestMountNotFoundScopeUnderRouterPrefix(t *testing.T) {
	t.Parallel()

	sub := MustNew()
	sub.GET("/known", ok("k"))

	r := MustNew(WithPrefix("/api"))
	r.Mount("/v1", sub, WithNotFound(func(c *Context) error {
		return c.JSON(http.StatusNotFound, map[string]string{"scope": "v1"})
	}))

	w := perform(r, http.MethodGet, "/api/v1/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"scope":"v1"}`, w.Body.String())

	w = perform(r, http.MethodGet, "/api/elsewhere")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found\n", w.Body.String())
}

func TestMountNameCollisionFirstWins(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/original", ok("o")).SetName("thing")

	sub := MustNew()
	sub.GET("/grafted", ok("g")).SetName("thing")

	// Unlike SetName on one router, a mounted duplicate is tolerated:
	// the earlier binding keeps the name.
	r.Mount("/sub", sub)

	u, err := r.URLFor("thing", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/original", u)
}

func TestMountAppliesParentParamValidators(t *testing.T) {
	t.Parallel()

	var parentRan, childRan bool

	r := MustNew()
	r.Param("id", func(c *Context, v string) error {
		parentRan = true
		return c.Next()
	})

	sub := MustNew()
	sub.GET("/items/:id", ok("i"))
	r.Mount("/shop", sub)

	perform(r, http.MethodGet, "/shop/items/5")
	assert.True(t, parentRan)

	// A child-supplied validator takes precedence over the parent's.
	parentRan = false
	sub2 := MustNew()
	sub2.GET("/things/:id", ok("t")).Param("id", func(c *Context, v string) error {
		childRan = true
		return c.Next()
	})
	r2 := MustNew()
	r2.Param("id", func(c *Context, v string) error {
		parentRan = true
		return c.Next()
	})
	r2.Mount("/x", sub2)

	perform(r2, http.MethodGet, "/x/things/5")
	assert.True(t, childRan)
	assert.False(t, parentRan)
}

func TestMountWithNotFound(t *testing.T) {
	t.Parallel()

	sub := MustNew()
	sub.GET("/known", ok("k"))

	r := MustNew()
	r.Mount("/api", sub, WithNotFound(func(c *Context) error {
		return c.JSON(http.StatusNotFound, map[string]string{"scope": "api"})
	}))

	w := perform(r, http.MethodGet, "/api/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"scope":"api"}`, w.Body.String())

	// Outside the prefix the default 404 applies.
	w = perform(r, http.MethodGet, "/elsewhere")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found\n", w.Body.String())
}

func TestMountNilSubrouter(t *testing.T) {
	t.Parallel()

	r := MustNew()
	assert.NotPanics(t, func() { r.Mount("/x", nil) })
}

func TestMountAfterFreezePanics(t *testing.T) {
	t.Parallel()

	sub := MustNew()
	sub.GET("/a", ok("a"))

	r := MustNew()
	r.Freeze()
	assert.Panics(t, func() { r.Mount("/x", sub) })
}
