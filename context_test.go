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
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testContext builds a context around a recorder for direct render tests.
func testContext(method, target string) (*Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c := NewContext(w, httptest.NewRequest(method, target, nil))
	return c, w
}

func TestParamStorageInlineAndOverflow(t *testing.T) {
	t.Parallel()

	c := &Context{}
	for i := range paramSlots + 3 {
		c.setParam("k"+strconv.Itoa(i), "v"+strconv.Itoa(i))
	}

	for i := range paramSlots + 3 {
		assert.Equal(t, "v"+strconv.Itoa(i), c.Param("k"+strconv.Itoa(i)))
	}
	assert.Len(t, c.Params, 3, "names past the inline slots overflow to the map")

	// Overwrites hit the existing tier.
	c.setParam("k0", "updated")
	c.setParam("k"+strconv.Itoa(paramSlots), "updated")
	assert.Equal(t, "updated", c.Param("k0"))
	assert.Equal(t, "updated", c.Param("k"+strconv.Itoa(paramSlots)))
	assert.Len(t, c.Params, 3)
}

func TestParamAbsent(t *testing.T) {
	t.Parallel()

	c := &Context{}
	assert.Empty(t, c.Param("nope"))

	_, bound := c.boundParam("nope")
	assert.False(t, bound)
}

func TestContextReset(t *testing.T) {
	t.Parallel()

	c := &Context{}
	c.setParam("a", "1")
	c.Set("k", "v")
	c.validated = append(c.validated, "a")
	c.reset()

	assert.Empty(t, c.Param("a"))
	_, okGet := c.Get("k")
	assert.False(t, okGet)
	assert.Empty(t, c.validated)
	assert.Nil(t, c.route)
}

func TestSetGet(t *testing.T) {
	t.Parallel()

	c := &Context{}
	_, found := c.Get("missing")
	assert.False(t, found)

	c.Set("user", "jkey")
	v, found := c.Get("user")
	assert.True(t, found)
	assert.Equal(t, "jkey", v)
}

func TestJSONRender(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	err := c.JSON(http.StatusCreated, map[string]int{"n": 1})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, w.Body.String())
}

func TestJSONEncodingFailureLeavesResponseUnwritten(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	err := c.JSON(http.StatusOK, map[string]any{"bad": func() {}})
	require.Error(t, err)
	assert.Empty(t, w.Body.String())
}

func TestStringRenders(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	require.NoError(t, c.String(http.StatusOK, "plain"))
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "plain", w.Body.String())

	c, w = testContext(http.MethodGet, "/")
	require.NoError(t, c.Stringf(http.StatusOK, "%s-%d", "x", 7))
	assert.Equal(t, "x-7", w.Body.String())
}

func TestHTMLRender(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	require.NoError(t, c.HTML(http.StatusOK, "<h1>hi</h1>"))
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>hi</h1>", w.Body.String())
}

func TestYAMLRender(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	require.NoError(t, c.YAML(http.StatusOK, map[string]string{"key": "value"}))
	assert.Equal(t, "application/x-yaml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "key: value\n", w.Body.String())
}

func TestDataRender(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	require.NoError(t, c.Data(http.StatusOK, "", []byte{0x1, 0x2}))
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x1, 0x2}, w.Body.Bytes())
}

func TestIndentedJSON(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	require.NoError(t, c.IndentedJSON(http.StatusOK, map[string]int{"n": 1}))
	assert.Equal(t, "{\n  \"n\": 1\n}", w.Body.String())
}

func TestRedirectHelper(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	c.Redirect(http.StatusFound, "/login")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestNoContent(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	c.NoContent()
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMethodNotAllowedHelper(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodDelete, "/")
	c.MethodNotAllowed([]string{"GET", "HEAD", "POST"})
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, HEAD, POST", w.Header().Get("Allow"))
	assert.Equal(t, "Method Not Allowed\n", w.Body.String())
}

func TestHeaderInjectionSanitized(t *testing.T) {
	t.Parallel()

	rec := &diagRecorder{}
	r := MustNew(WithDiagnostics(rec))
	r.GET("/h", func(c *Context) error {
		c.Header("X-Value", "clean\r\nInjected: yes")
		return c.String(http.StatusOK, "ok")
	})

	w := perform(r, http.MethodGet, "/h")
	assert.Equal(t, "cleanInjected: yes", w.Header().Get("X-Value"))
	assert.Empty(t, w.Header().Get("Injected"))
	assert.Len(t, rec.ofKind(DiagHeaderInjection), 1)
}

func TestQueryHelpers(t *testing.T) {
	t.Parallel()

	c, _ := testContext(http.MethodGet, "/?q=go&empty=")
	assert.Equal(t, "go", c.Query("q"))
	assert.Empty(t, c.Query("missing"))
	assert.Equal(t, "fallback", c.QueryDefault("missing", "fallback"))
	assert.Equal(t, "fallback", c.QueryDefault("empty", "fallback"))
}

func TestCookies(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	c.SetCookie("session", "abc def", 3600, "/", "", true, true)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "abc+def", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "abc+def"})
	c2 := NewContext(httptest.NewRecorder(), req)
	v, err := c2.GetCookie("session")
	require.NoError(t, err)
	assert.Equal(t, "abc def", v)

	_, err = c2.GetCookie("missing")
	assert.ErrorIs(t, err, http.ErrNoCookie)
}

func TestStatusCodeAndWritten(t *testing.T) {
	t.Parallel()

	var before, after bool
	var code int
	r := MustNew()
	r.GET("/w", func(c *Context) error {
		before = c.Written()
		if err := c.String(http.StatusAccepted, "done"); err != nil {
			return err
		}
		after = c.Written()
		code = c.StatusCode()
		return nil
	})

	perform(r, http.MethodGet, "/w")
	assert.False(t, before)
	assert.True(t, after)
	assert.Equal(t, http.StatusAccepted, code)
}

func TestLoggerNeverNil(t *testing.T) {
	t.Parallel()

	c := &Context{}
	assert.NotNil(t, c.Logger())

	var logged *Context
	r := MustNew()
	r.GET("/l", func(c *Context) error {
		logged = c
		assert.NotNil(t, c.Logger())
		return c.String(http.StatusOK, "ok")
	})
	perform(r, http.MethodGet, "/l")
	require.NotNil(t, logged)
}

func TestDataFromReader(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	payload := "streamed content"
	err := c.DataFromReader(http.StatusOK, int64(len(payload)), "text/plain",
		strings.NewReader(payload), map[string]string{"X-Extra": "1"})
	require.NoError(t, err)

	assert.Equal(t, payload, w.Body.String())
	assert.Equal(t, fmt.Sprint(len(payload)), w.Header().Get("Content-Length"))
	assert.Equal(t, "1", w.Header().Get("X-Extra"))
}
