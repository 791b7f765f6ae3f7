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
)

func acceptContext(header, value string) *Context {
	c, _ := testContext(http.MethodGet, "/")
	if value != "" {
		c.Request.Header.Set(header, value)
	}
	return c
}

func TestAccepts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		accept string
		offers []string
		want   string
	}{
		{
			name:   "no header takes first offer",
			accept: "",
			offers: []string{"json", "html"},
			want:   "json",
		},
		{
			name:   "exact listed type",
			accept: "application/json, text/html",
			offers: []string{"json", "html"},
			want:   "json",
		},
		{
			name:   "quality steers the pick",
			accept: "text/html, application/json;q=0.8",
			offers: []string{"json", "html"},
			want:   "html",
		},
		{
			name:   "full wildcard",
			accept: "*/*",
			offers: []string{"json", "xml"},
			want:   "json",
		},
		{
			name:   "subtype wildcard",
			accept: "text/*",
			offers: []string{"json", "txt"},
			want:   "txt",
		},
		{
			name:   "exact beats wildcard at equal quality",
			accept: "text/*, text/plain",
			offers: []string{"txt"},
			want:   "txt",
		},
		{
			name:   "nothing acceptable",
			accept: "image/png",
			offers: []string{"json", "html"},
			want:   "",
		},
		{
			name:   "zero quality excludes",
			accept: "application/json;q=0",
			offers: []string{"json"},
			want:   "",
		},
		{
			name:   "full MIME offers kept verbatim",
			accept: "application/vnd.api+json",
			offers: []string{"application/vnd.api+json", "application/json"},
			want:   "application/vnd.api+json",
		},
		{
			name:   "media type parameters ignored",
			accept: "application/json;version=1",
			offers: []string{"json"},
			want:   "json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := acceptContext("Accept", tt.accept)
			assert.Equal(t, tt.want, c.Accepts(tt.offers...))
		})
	}
}

func TestAcceptsNoOffers(t *testing.T) {
	t.Parallel()

	c := acceptContext("Accept", "application/json")
	assert.Empty(t, c.Accepts())
}

func TestAcceptsCharsets(t *testing.T) {
	t.Parallel()

	c := acceptContext("Accept-Charset", "utf-8, iso-8859-1;q=0.5")
	assert.Equal(t, "utf-8", c.AcceptsCharsets("iso-8859-1", "utf-8"))

	c = acceptContext("Accept-Charset", "")
	assert.Equal(t, "utf-16", c.AcceptsCharsets("utf-16", "utf-8"))
}

func TestAcceptsEncodings(t *testing.T) {
	t.Parallel()

	c := acceptContext("Accept-Encoding", "gzip, deflate;q=0.8, br;q=1.0")
	assert.Equal(t, "gzip", c.AcceptsEncodings("deflate", "gzip"))

	c = acceptContext("Accept-Encoding", "identity")
	assert.Empty(t, c.AcceptsEncodings("gzip"))
}

func TestAcceptsLanguages(t *testing.T) {
	t.Parallel()

	c := acceptContext("Accept-Language", "en-US, fr;q=0.7")
	assert.Equal(t, "en", c.AcceptsLanguages("fr", "en"),
		"prefix match accepts the base language for a regional tag")

	c = acceptContext("Accept-Language", "de")
	assert.Empty(t, c.AcceptsLanguages("fr", "en"))
}

func TestParseQuality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"1", 1000},
		{"1.000", 1000},
		{"0", 0},
		{"0.5", 500},
		{"0.85", 850},
		{"0.001", 1},
		{"1.5", -1},
		{"2", -1},
		{"abc", -1},
		{"", -1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseQuality(tt.in), "q=%q", tt.in)
	}
}
