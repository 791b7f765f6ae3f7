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

func TestGroupPrefixesRoutes(t *testing.T) {
	t.Parallel()

	r := MustNew()
	api := r.Group("/api/v1")
	api.GET("/users", ok("users"))
	api.POST("/users", ok("created"))

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/api/v1/users").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/api/v1/users").Code)
	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodGet, "/users").Code)
}

func TestGroupMiddlewareInHandlerStack(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) HandlerFunc {
		return func(c *Context) error {
			order = append(order, name)
			return c.Next()
		}
	}

	r := MustNew()
	r.Use(mark("use"))
	g := r.Group("/api", mark("group"))
	g.GET("/x", mark("handler"), ok("done"))

	perform(r, http.MethodGet, "/api/x")
	assert.Equal(t, []string{"use", "group", "handler"}, order)
}

func TestGroupUseAffectsOnlyLaterRoutes(t *testing.T) {
	t.Parallel()

	var hits int
	count := func(c *Context) error {
		hits++
		return c.Next()
	}

	r := MustNew()
	g := r.Group("/g")
	g.GET("/before", ok("b"))
	g.Use(count)
	g.GET("/after", ok("a"))

	perform(r, http.MethodGet, "/g/before")
	assert.Equal(t, 0, hits)

	perform(r, http.MethodGet, "/g/after")
	assert.Equal(t, 1, hits)
}

func TestNestedGroups(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) HandlerFunc {
		return func(c *Context) error {
			order = append(order, name)
			return c.Next()
		}
	}

	r := MustNew()
	api := r.Group("/api", mark("api"))
	v1 := api.Group("/v1", mark("v1"))
	v1.GET("/ping", ok("pong"))

	w := perform(r, http.MethodGet, "/api/v1/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"api", "v1"}, order)
}

func TestGroupNamePrefixes(t *testing.T) {
	t.Parallel()

	r := MustNew()
	api := r.Group("/api").SetNamePrefix("api.")
	v1 := api.Group("/v1").SetNamePrefix("v1.")
	v1.GET("/users", ok("u")).SetName("users.list")

	u, err := r.URLFor("api.v1.users.list", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/users", u)
}

func TestGroupAllAndHandle(t *testing.T) {
	t.Parallel()

	r := MustNew()
	g := r.Group("/g")
	g.All("/any", ok("any"))
	g.Handle(Methods(http.MethodPut, http.MethodPatch), "/write", ok("w"))

	assert.Equal(t, http.StatusOK, perform(r, http.MethodDelete, "/g/any").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPut, "/g/write").Code)
	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodGet, "/g/write").Code)
}
