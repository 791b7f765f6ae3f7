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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendHeader(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	c.AppendHeader("Link", `</api/users?page=2>; rel="next"`)
	c.AppendHeader("Link", `</api/users?page=5>; rel="last"`)

	assert.Equal(t, []string{
		`</api/users?page=2>; rel="next"`,
		`</api/users?page=5>; rel="last"`,
	}, w.Header().Values("Link"))
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"json", "application/json"},
		{".json", "application/json"},
		{"html", "text/html"},
		{"xml", "application/xml"},
		{"txt", "text/plain"},
		{"application/vnd.api+json", "application/vnd.api+json"},
		{"unknownext", "application/octet-stream"},
	}

	for _, tt := range tests {
		c, w := testContext(http.MethodGet, "/")
		c.ContentType(tt.in)
		got := w.Header().Get("Content-Type")
		// mime.TypeByExtension may append a charset parameter depending
		// on the host's mime tables.
		assert.Contains(t, got, tt.want, "input %q", tt.in)
	}
}

func TestLocation(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	c.Location("/users/7")
	assert.Equal(t, "/users/7", w.Header().Get("Location"))
}

func TestVary(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	c.Vary("Accept-Encoding")
	c.Vary("Accept-Language", "Cookie")
	assert.Equal(t, "Accept-Encoding, Accept-Language, Cookie", w.Header().Get("Vary"))

	// Duplicate fields are skipped, case-insensitively.
	c.Vary("accept-encoding", "COOKIE")
	assert.Equal(t, "Accept-Encoding, Accept-Language, Cookie", w.Header().Get("Vary"))

	c.Vary()
	assert.Equal(t, "Accept-Encoding, Accept-Language, Cookie", w.Header().Get("Vary"))
}

func TestLink(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	c.Link("/api/users?page=2", "next")
	assert.Equal(t, `</api/users?page=2>; rel="next"`, w.Header().Get("Link"))
}

func TestDownload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0o600))

	t.Run("default filename", func(t *testing.T) {
		t.Parallel()

		c, w := testContext(http.MethodGet, "/")
		require.NoError(t, c.Download(path))
		assert.Equal(t, `attachment; filename="report.txt"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "contents", w.Body.String())
	})

	t.Run("override filename", func(t *testing.T) {
		t.Parallel()

		c, w := testContext(http.MethodGet, "/")
		require.NoError(t, c.Download(path, "january.txt"))
		assert.Equal(t, `attachment; filename="january.txt"`, w.Header().Get("Content-Disposition"))
	})
}

func TestSend(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	require.NoError(t, c.Send([]byte{0x01, 0x02}))
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x01, 0x02}, w.Body.Bytes())

	// An explicit Content-Type is left alone.
	c, w = testContext(http.MethodGet, "/")
	c.Header("Content-Type", "image/png")
	require.NoError(t, c.Send([]byte("png")))
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestSendStatus(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	require.NoError(t, c.SendStatus(http.StatusNotFound))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found", w.Body.String())

	// Once the body is written only the status is recorded.
	c, w = testContext(http.MethodGet, "/")
	require.NoError(t, c.String(http.StatusOK, "already sent"))
	require.NoError(t, c.SendStatus(http.StatusTeapot))
	assert.Equal(t, "already sent", w.Body.String())
}

func TestJSONP(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	require.NoError(t, c.JSONP(http.StatusOK, map[string]string{"key": "value"}, "onLoad"))
	assert.Equal(t, `onLoad({"key":"value"});`, w.Body.String())
	assert.Equal(t, "application/javascript; charset=utf-8", w.Header().Get("Content-Type"))

	c, w = testContext(http.MethodGet, "/")
	require.NoError(t, c.JSONP(http.StatusOK, map[string]string{"key": "value"}))
	assert.Equal(t, `callback({"key":"value"});`, w.Body.String())
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		accept      string
		wantBody    string
		contentType string
	}{
		{
			name:        "json",
			accept:      "application/json",
			wantBody:    `"hello"` + "\n",
			contentType: "application/json",
		},
		{
			name:        "html",
			accept:      "text/html",
			wantBody:    "<p>hello</p>",
			contentType: "text/html",
		},
		{
			name:        "xml",
			accept:      "application/xml",
			wantBody:    "<?xml version=\"1.0\"?>\n<response>hello</response>",
			contentType: "application/xml",
		},
		{
			name:        "plain text",
			accept:      "text/plain",
			wantBody:    "hello",
			contentType: "text/plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, w := testContext(http.MethodGet, "/")
			c.Request.Header.Set("Accept", tt.accept)
			require.NoError(t, c.Format(http.StatusOK, "hello"))
			assert.Equal(t, tt.wantBody, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
		})
	}
}

func TestContextImplementsWriter(t *testing.T) {
	t.Parallel()

	c, w := testContext(http.MethodGet, "/")
	n, err := c.Write([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "raw", w.Body.String())
}
