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
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLForUnknownName(t *testing.T) {
	t.Parallel()

	r := MustNew()
	_, err := r.URLFor("ghost", nil, nil)
	assert.ErrorIs(t, err, ErrRouteNotFound)

	assert.Panics(t, func() { r.MustURLFor("ghost", nil, nil) })
}

func TestMustURLFor(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/users/:id", ok("u")).SetName("user")

	assert.Equal(t, "/users/3", r.MustURLFor("user", map[string]string{"id": "3"}, nil))
	assert.Panics(t, func() { r.MustURLFor("user", nil, nil) })
}

func TestStandaloneURL(t *testing.T) {
	t.Parallel()

	u, err := URL("/users/:id/posts/:pid", map[string]string{"id": "7", "pid": "14"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/users/7/posts/14", u)

	u, err = URL("/search", nil, url.Values{"q": {"go router"}})
	require.NoError(t, err)
	assert.Equal(t, "/search?q=go+router", u)

	_, err = URL("/users/:id", nil, nil)
	assert.ErrorIs(t, err, ErrMissingRouteParameter)

	_, err = URL("/bad/(", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestRoutesInfo(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.Use(func(c *Context) error { return c.Next() })
	r.GET("/users/:id", ok("u")).
		SetName("user").
		SetDescription("Fetch one user").
		SetTags("users").
		WhereInt("id")
	r.POST("/users", ok("c"))

	infos := r.RoutesInfo()
	require.Len(t, infos, 2, "middleware layers are omitted")

	assert.Equal(t, []string{"GET", "HEAD"}, infos[0].Methods)
	assert.Equal(t, "/users/:id", infos[0].Path)
	assert.Equal(t, "user", infos[0].Name)
	assert.Equal(t, "Fetch one user", infos[0].Description)
	assert.Equal(t, []string{"users"}, infos[0].Tags)
	assert.Equal(t, []string{"id"}, infos[0].Params)
	assert.Equal(t, map[string]string{"id": `\d+`}, infos[0].Constraints)

	assert.Equal(t, []string{"POST"}, infos[1].Methods)
	assert.Empty(t, infos[1].Name)
	assert.Nil(t, infos[1].Constraints)
}

func TestRoutesInfoHandlerNames(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/named", namedTestHandler)

	infos := r.RoutesInfo()
	require.Len(t, infos, 1)
	assert.Contains(t, infos[0].Handler, "namedTestHandler")
}

func namedTestHandler(c *Context) error {
	return c.String(http.StatusOK, "named")
}
