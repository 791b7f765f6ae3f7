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

package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata.dev/router"
)

func TestRequestID_GeneratesUUIDv7(t *testing.T) {
	t.Parallel()
	r := router.MustNew()
	r.Use(New())
	r.GET("/test", func(c *router.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID, "Expected X-Request-ID header to be set")

	parsed, err := uuid.Parse(requestID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestRequestID_ULIDGenerator(t *testing.T) {
	t.Parallel()
	r := router.MustNew()
	r.Use(New(WithULID()))
	r.GET("/test", func(c *router.Context) error {
		c.NoContent()
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-ID")
	require.Len(t, requestID, 26)
	_, err := ulid.Parse(requestID)
	assert.NoError(t, err)
}

func TestRequestID_ClientIDHandling(t *testing.T) {
	t.Parallel()
	clientID := "client-provided-id-123"

	tests := []struct {
		name         string
		allowClient  bool
		expectClient bool
	}{
		{
			name:         "allow client ID",
			allowClient:  true,
			expectClient: true,
		},
		{
			name:         "disallow client ID",
			allowClient:  false,
			expectClient: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := router.MustNew()
			r.Use(New(WithAllowClientID(tt.allowClient)))
			r.GET("/test", func(c *router.Context) error {
				return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("X-Request-ID", clientID)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			requestID := w.Header().Get("X-Request-ID")
			assert.NotEmpty(t, requestID, "Request ID should be set")

			if tt.expectClient {
				assert.Equal(t, clientID, requestID)
			} else {
				assert.NotEqual(t, clientID, requestID)
			}
		})
	}
}

func TestRequestID_CustomHeader(t *testing.T) {
	t.Parallel()
	r := router.MustNew()
	r.Use(New(WithHeader("X-Correlation-ID")))
	r.GET("/test", func(c *router.Context) error {
		c.NoContent()
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
	assert.Empty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_UniqueAcrossRequests(t *testing.T) {
	t.Parallel()
	r := router.MustNew()
	r.Use(New())
	r.GET("/test", func(c *router.Context) error {
		c.NoContent()
		return nil
	})

	ids := make(map[string]bool)
	for range 100 {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		requestID := w.Header().Get("X-Request-ID")
		require.NotEmpty(t, requestID)
		assert.False(t, ids[requestID], "Duplicate request ID: %s", requestID)
		ids[requestID] = true
	}

	assert.Len(t, ids, 100)
}

func TestRequestID_GetFromHandler(t *testing.T) {
	t.Parallel()
	r := router.MustNew()
	r.Use(New(WithGenerator(func() string { return "generated-123" })))

	var seen string
	r.GET("/test", func(c *router.Context) error {
		seen = Get(c)
		c.NoContent()
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, "generated-123", seen)
	assert.Equal(t, "generated-123", w.Header().Get("X-Request-ID"))
}

func TestRequestID_GetWithoutMiddleware(t *testing.T) {
	t.Parallel()
	r := router.MustNew()

	var seen string
	r.GET("/test", func(c *router.Context) error {
		seen = Get(c)
		c.NoContent()
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Empty(t, seen)
}

func TestRequestID_CombinedOptions(t *testing.T) {
	t.Parallel()
	r := router.MustNew()
	r.Use(New(
		WithHeader("X-Trace-ID"),
		WithAllowClientID(false),
		WithGenerator(func() string {
			return "generated-123"
		}),
	))
	r.GET("/test", func(c *router.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
	})

	// Client-supplied IDs are ignored when disallowed.
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Trace-Id", "client-id")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, "generated-123", w.Header().Get("X-Trace-Id"))
}
