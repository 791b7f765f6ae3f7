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

// Request information helpers on Context: hosts, URLs, headers, and
// cache freshness.

import (
	"maps"
	"net/http"
	"strings"
	"time"
)

// Method returns the HTTP method of the request.
func (c *Context) Method() string {
	if c.Request == nil {
		return ""
	}
	return c.Request.Method
}

// Path returns the URL path of the request. When an adapter has
// overridden the routed path, this is still the original request path;
// see RoutedPath.
func (c *Context) Path() string {
	if c.Request == nil {
		return ""
	}
	return c.Request.URL.Path
}

// AllParams returns every bound path parameter as a fresh map, for
// logging and debugging.
//
//	// Route: /users/:id/posts/:pid, request: /users/123/posts/456
//	c.AllParams() // map[string]string{"id": "123", "pid": "456"}
func (c *Context) AllParams() map[string]string {
	result := make(map[string]string, c.paramCount)
	for i := range c.paramCount {
		result[c.paramKeys[i]] = c.paramValues[i]
	}
	maps.Copy(result, c.Params)
	return result
}

// AllQueries returns the query parameters as a map, keeping the last
// value of repeated keys. Use c.Request.URL.Query() for all values.
func (c *Context) AllQueries() map[string]string {
	values := c.Request.URL.Query()
	result := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			result[key] = vals[len(vals)-1]
		}
	}
	return result
}

// RequestHeaders returns the request headers as a map with
// canonicalized names, keeping the last value of repeated headers.
func (c *Context) RequestHeaders() map[string]string {
	headers := c.Request.Header
	result := make(map[string]string, len(headers))
	for key, vals := range headers {
		if len(vals) > 0 {
			result[key] = vals[len(vals)-1]
		}
	}
	return result
}

// ResponseHeaders returns the response headers set so far as a map.
func (c *Context) ResponseHeaders() map[string]string {
	headers := c.Response.Header()
	result := make(map[string]string, len(headers))
	for key, vals := range headers {
		if len(vals) > 0 {
			result[key] = vals[len(vals)-1]
		}
	}
	return result
}

// Hostname returns the host from the Host header without the port.
// IPv6 literals keep their brackets.
func (c *Context) Hostname() string {
	host := c.requestHost()
	if colon := strings.LastIndex(host, ":"); colon != -1 {
		if !strings.Contains(host, "]") || colon > strings.Index(host, "]") {
			return host[:colon]
		}
	}
	return host
}

// Port returns the port from the Host header, or "" when unspecified.
func (c *Context) Port() string {
	host := c.requestHost()
	if colon := strings.LastIndex(host, ":"); colon != -1 {
		if !strings.Contains(host, "]") || colon > strings.Index(host, "]") {
			return host[colon+1:]
		}
	}
	return ""
}

func (c *Context) requestHost() string {
	if c.Request.Host != "" {
		return c.Request.Host
	}
	return c.Request.URL.Host
}

// Scheme returns "https" or "http", honoring X-Forwarded-Proto and
// X-Forwarded-Ssl for requests that arrived through a proxy.
func (c *Context) Scheme() string {
	if c.Request.TLS != nil {
		return "https"
	}
	if proto := c.Request.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request.Header.Get("X-Forwarded-Ssl") == "on" {
		return "https"
	}
	return "http"
}

// BaseURL returns scheme://host for building absolute URLs.
func (c *Context) BaseURL() string {
	return c.Scheme() + "://" + c.requestHost()
}

// FullURL returns the complete request URL including the query string.
func (c *Context) FullURL() string {
	path := c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		path += "?" + c.Request.URL.RawQuery
	}
	return c.BaseURL() + path
}

// IsJSON reports whether the request body is declared as JSON.
func (c *Context) IsJSON() bool {
	return strings.Contains(c.Request.Header.Get("Content-Type"), "application/json")
}

// AcceptsJSON reports whether the client accepts a JSON response.
func (c *Context) AcceptsJSON() bool {
	accept := c.Request.Header.Get("Accept")
	return strings.Contains(accept, "application/json") || strings.Contains(accept, "*/*")
}

// AcceptsHTML reports whether the client accepts an HTML response.
func (c *Context) AcceptsHTML() bool {
	accept := c.Request.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}

// IsHTTPS reports whether the request was served over HTTPS, directly
// or behind a TLS-terminating proxy.
func (c *Context) IsHTTPS() bool {
	return c.Scheme() == "https"
}

// IsXHR reports whether the request carries the XMLHttpRequest marker
// set by most AJAX libraries. fetch() does not set it.
func (c *Context) IsXHR() bool {
	return c.Request.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// Subdomains returns the subdomain segments of the Host header in
// left-to-right order. offset is the number of trailing segments
// forming the registered domain, default 2.
//
//	// Host: api.v1.example.com
//	c.Subdomains() // []string{"api", "v1"}
//
// Host headers are client-controlled; never use this for authorization.
func (c *Context) Subdomains(offset ...int) []string {
	off := 2
	if len(offset) > 0 && offset[0] > 0 {
		off = offset[0]
	}

	parts := strings.Split(c.Hostname(), ".")
	if len(parts) <= off {
		return []string{}
	}
	return parts[:len(parts)-off]
}

// IsFresh reports whether the client's cached copy is still valid per
// RFC 7232 conditional request semantics, comparing If-None-Match
// against ETag and If-Modified-Since against Last-Modified. A request
// with Cache-Control: no-cache is never fresh.
//
//	if c.IsFresh() {
//	    c.Status(http.StatusNotModified)
//	    return nil
//	}
func (c *Context) IsFresh() bool {
	if strings.Contains(c.Request.Header.Get("Cache-Control"), "no-cache") {
		return false
	}

	// ETag validation takes precedence over date validation.
	ifNoneMatch := c.Request.Header.Get("If-None-Match")
	etag := c.Response.Header().Get("ETag")
	if ifNoneMatch != "" && etag != "" {
		if ifNoneMatch == "*" {
			return true
		}
		// Weak comparison: W/"v1" matches both W/"v1" and "v1".
		if strings.TrimPrefix(ifNoneMatch, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}

	ifModifiedSince := c.Request.Header.Get("If-Modified-Since")
	lastModified := c.Response.Header().Get("Last-Modified")
	if ifModifiedSince != "" && lastModified != "" {
		ims, err := parseHTTPDate(ifModifiedSince)
		if err != nil {
			return false
		}
		lm, err := parseHTTPDate(lastModified)
		if err != nil {
			return false
		}
		// HTTP dates have one-second granularity.
		if !lm.After(ims) {
			return true
		}
	}

	return false
}

// IsStale is the inverse of IsFresh.
func (c *Context) IsStale() bool {
	return !c.IsFresh()
}

// parseHTTPDate parses the three HTTP date formats of RFC 7231.
func parseHTTPDate(s string) (time.Time, error) {
	return http.ParseTime(s)
}
