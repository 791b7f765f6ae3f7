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
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultErrorHandlerHTTPError(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/fail", func(c *Context) error {
		return NewHTTPError(http.StatusConflict, "already exists")
	})

	w := perform(r, http.MethodGet, "/fail")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already exists\n", w.Body.String())
}

func TestDefaultErrorHandlerWrappedHTTPError(t *testing.T) {
	t.Parallel()

	cause := errors.New("duplicate key")
	r := MustNew()
	r.GET("/fail", func(c *Context) error {
		return NewHTTPError(http.StatusConflict).WithInternal(cause)
	})

	w := perform(r, http.MethodGet, "/fail")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Conflict\n", w.Body.String(), "the internal cause must not leak")
}

func TestDefaultErrorHandlerOpaqueError(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/boom", func(c *Context) error {
		return errors.New("database exploded")
	})

	w := perform(r, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database exploded")
}

func TestDefaultErrorHandlerCanceled(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/gone", func(c *Context) error {
		return context.Canceled
	})

	w := perform(r, http.MethodGet, "/gone")
	assert.Empty(t, w.Body.String(), "a departed client gets no body")
}

func TestDefaultErrorHandlerDeadline(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/late", func(c *Context) error {
		return context.DeadlineExceeded
	})

	w := perform(r, http.MethodGet, "/late")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCustomErrorHandler(t *testing.T) {
	t.Parallel()

	r := MustNew(WithErrorHandler(func(c *Context, err error) {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			_ = c.JSON(httpErr.Code, map[string]string{"error": httpErr.Message})
			return
		}
		DefaultErrorHandler(c, err)
	}))
	r.GET("/fail", func(c *Context) error {
		return NewHTTPError(http.StatusForbidden, "no access")
	})

	w := perform(r, http.MethodGet, "/fail")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"no access"}`, w.Body.String())
}

func TestNoRouteErrorRoutedToErrorHandler(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.NoRoute(func(c *Context) error {
		return NewHTTPError(http.StatusGone, "moved on")
	})

	w := perform(r, http.MethodGet, "/anything")
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestNoRouteFallsBackTo404WhenNothingWritten(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.NoRoute(func(c *Context) error {
		// Neither writes nor errors.
		return nil
	})

	w := perform(r, http.MethodGet, "/anything")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerFallsThroughToNext(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/api/users", ok("users"))

	mux := http.NewServeMux()
	mux.HandleFunc("/legacy", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	h := r.Handler(mux)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "users", w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/legacy", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestShutdownWithoutServer(t *testing.T) {
	t.Parallel()

	r := MustNew()
	require.NoError(t, r.Shutdown(context.Background()))
}

func TestResponseWriterCapturesStatusAndSize(t *testing.T) {
	t.Parallel()

	var status int
	var size int64
	r := MustNew()
	r.Use(func(c *Context) error {
		err := c.Next()
		if rw, okAssert := c.Response.(*responseWriter); okAssert {
			status = rw.StatusCode()
			size = rw.Size()
		}
		return err
	})
	r.GET("/data", func(c *Context) error {
		return c.String(http.StatusCreated, "12345")
	})

	perform(r, http.MethodGet, "/data")
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(5), size)
}

func TestResponseWriterSuppressesDuplicateWriteHeader(t *testing.T) {
	t.Parallel()

	r := MustNew()
	r.GET("/once", func(c *Context) error {
		c.Status(http.StatusAccepted)
		c.Status(http.StatusTeapot) // ignored
		return nil
	})

	w := perform(r, http.MethodGet, "/once")
	assert.Equal(t, http.StatusAccepted, w.Code)
}
