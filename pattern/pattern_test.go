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

package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		spec     string
		opts     Options
		path     string
		want     []string
		wantMiss bool
	}{
		{
			name: "static path",
			spec: "/users",
			path: "/users",
			want: []string{},
		},
		{
			name: "named parameter",
			spec: "/users/:id",
			path: "/users/42",
			want: []string{"42"},
		},
		{
			name: "named parameter does not span segments",
			spec: "/users/:id",
			path: "/users/42/posts",
			wantMiss: true,
		},
		{
			name: "two parameters",
			spec: "/users/:uid/posts/:pid",
			path: "/users/7/posts/9",
			want: []string{"7", "9"},
		},
		{
			name: "custom constraint accepts",
			spec: `/orders/:id(\d+)`,
			path: "/orders/123",
			want: []string{"123"},
		},
		{
			name:     "custom constraint rejects",
			spec:     `/orders/:id(\d+)`,
			path:     "/orders/abc",
			wantMiss: true,
		},
		{
			name: "optional present",
			spec: "/archive/:year?",
			path: "/archive/2024",
			want: []string{"2024"},
		},
		{
			name: "optional absent",
			spec: "/archive/:year?",
			path: "/archive",
			want: []string{""},
		},
		{
			name: "plus spans segments",
			spec: "/files/:path+",
			path: "/files/a/b/c",
			want: []string{"a/b/c"},
		},
		{
			name:     "plus requires at least one",
			spec:     "/files/:path+",
			path:     "/files",
			wantMiss: true,
		},
		{
			name: "star allows zero",
			spec: "/files/:path*",
			path: "/files",
			want: []string{""},
		},
		{
			name: "star spans segments",
			spec: "/files/:path*",
			path: "/files/a/b",
			want: []string{"a/b"},
		},
		{
			name: "unnamed group",
			spec: "/proxy/(.*)",
			path: "/proxy/one/two",
			want: []string{"one/two"},
		},
		{
			name: "wildcard",
			spec: "/assets/*",
			path: "/assets/css/site.css",
			want: []string{"css/site.css"},
		},
		{
			name: "mixed named and unnamed",
			spec: "/v/:major(\\d+)/(.*)",
			path: "/v/2/extra/bits",
			want: []string{"2", "extra/bits"},
		},
		{
			name: "trailing slash tolerated by default",
			spec: "/users",
			path: "/users/",
			want: []string{},
		},
		{
			name:     "trailing slash rejected when strict",
			spec:     "/users",
			opts:     Options{Strict: true},
			path:     "/users/",
			wantMiss: true,
		},
		{
			name: "case-insensitive by default",
			spec: "/Users",
			path: "/users",
			want: []string{},
		},
		{
			name:     "case-sensitive when requested",
			spec:     "/Users",
			opts:     Options{Sensitive: true},
			path:     "/users",
			wantMiss: true,
		},
		{
			name: "escaped token character is literal",
			spec: `/price/\:usd`,
			path: "/price/:usd",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := Compile(tt.spec, tt.opts)
			require.NoError(t, err)

			got, ok := m.Match(tt.path)
			if tt.wantMiss {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompilePrefixMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    string
		path    string
		wantOK  bool
		capture string
	}{
		{name: "exact", spec: "/api", path: "/api", wantOK: true},
		{name: "segment below", spec: "/api", path: "/api/users", wantOK: true},
		{name: "not a segment boundary", spec: "/api", path: "/apix", wantOK: false},
		{name: "root prefixes everything", spec: "/", path: "/anything/here", wantOK: true},
		{name: "param in prefix", spec: "/tenants/:tid", path: "/tenants/9/users", wantOK: true, capture: "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := Compile(tt.spec, Options{Prefix: true})
			require.NoError(t, err)

			got, ok := m.Match(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.capture != "" {
				require.True(t, ok)
				assert.Equal(t, []string{tt.capture}, got)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec string
	}{
		{name: "unterminated group", spec: "/users/:id(\\d+"},
		{name: "empty group", spec: "/users/:id()"},
		{name: "missing parameter name", spec: "/users/:"},
		{name: "duplicate parameter name", spec: "/a/:id/b/:id"},
		{name: "invalid constraint regexp", spec: "/a/:id([z-a])"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Compile(tt.spec, Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPattern)
		})
	}
}

func TestKeysOrderAndNumbering(t *testing.T) {
	t.Parallel()

	m, err := Compile("/v/:major/(.*)/x/*", Options{})
	require.NoError(t, err)

	keys := m.Keys()
	require.Len(t, keys, 3)
	assert.Equal(t, "major", keys[0].Name)
	assert.Equal(t, "0", keys[1].Name)
	assert.Equal(t, "1", keys[2].Name)
}

func TestNestedCaptureInConstraintStaysAligned(t *testing.T) {
	t.Parallel()

	// A capturing group inside the constraint must not shift the
	// positional mapping of later parameters.
	m, err := Compile(`/a/:pair((x|y)z)/b/:tail`, Options{})
	require.NoError(t, err)

	got, ok := m.Match("/a/xz/b/end")
	require.True(t, ok)
	assert.Equal(t, []string{"xz", "end"}, got)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    string
		params  map[string]string
		want    string
		wantErr error
	}{
		{
			name:   "named substitution",
			spec:   "/users/:id",
			params: map[string]string{"id": "42"},
			want:   "/users/42",
		},
		{
			name:    "missing required",
			spec:    "/users/:id",
			params:  map[string]string{},
			wantErr: ErrMissingParameter,
		},
		{
			name:   "optional omitted with prefix",
			spec:   "/archive/:year?",
			params: map[string]string{},
			want:   "/archive",
		},
		{
			name:   "optional present",
			spec:   "/archive/:year?",
			params: map[string]string{"year": "2024"},
			want:   "/archive/2024",
		},
		{
			name:   "segment value is escaped",
			spec:   "/files/:name",
			params: map[string]string{"name": "a b"},
			want:   "/files/a%20b",
		},
		{
			name:   "repeat keeps slashes",
			spec:   "/files/:path+",
			params: map[string]string{"path": "a/b c/d"},
			want:   "/files/a/b%20c/d",
		},
		{
			name:   "wildcard keeps slashes",
			spec:   "/assets/*",
			params: map[string]string{"0": "css/site.css"},
			want:   "/assets/css/site.css",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := Compile(tt.spec, Options{})
			require.NoError(t, err)

			got, err := m.Build(tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPositional(t *testing.T) {
	t.Parallel()

	m, err := Compile("/users/:uid/posts/:pid", Options{})
	require.NoError(t, err)

	got, err := m.BuildPositional("3", "7")
	require.NoError(t, err)
	assert.Equal(t, "/users/3/posts/7", got)

	_, err = m.BuildPositional("3")
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestBuildRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := Compile("/teams/:team/members/:member(\\d+)", Options{})
	require.NoError(t, err)

	built, err := m.Build(map[string]string{"team": "core", "member": "15"})
	require.NoError(t, err)

	caps, ok := m.Match(built)
	require.True(t, ok)
	assert.Equal(t, []string{"core", "15"}, caps)
}

func TestMustCompilePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		MustCompile("/broken/:id(", Options{})
	})
	assert.NotPanics(t, func() {
		MustCompile("/fine/:id", Options{})
	})
}
