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

// ParameterReader reads request parameters, query strings, form values,
// and cookies. Handlers that only read request data can take this
// interface instead of *Context, which keeps them mockable.
//
//	func processRequest(reader router.ParameterReader) {
//	    userID := reader.Param("id")
//	    page := reader.Query("page")
//	}
type ParameterReader interface {
	// Param returns the value of the named path parameter, or "" when
	// the matched route did not bind it.
	Param(key string) string

	// Query returns the value of the named URL query parameter, or ""
	// when absent.
	Query(key string) string

	// QueryDefault returns the named query parameter or defaultValue
	// when absent or empty.
	QueryDefault(key, defaultValue string) string

	// FormValue returns the named form field, for both urlencoded and
	// multipart bodies.
	FormValue(key string) string

	// FormValueDefault returns the named form field or defaultValue
	// when absent or empty.
	FormValueDefault(key, defaultValue string) string

	// AllParams returns every bound path parameter as a fresh map.
	AllParams() map[string]string

	// AllQueries returns the query parameters as a map, keeping the
	// last value of repeated keys.
	AllQueries() map[string]string

	// GetCookie returns the value of the named cookie, or an error when
	// it is not present.
	GetCookie(name string) (string, error)
}

// ResponseWriter writes HTTP responses. All body-producing methods
// return errors explicitly; callers must check them.
//
//	if err := c.JSON(http.StatusOK, user); err != nil {
//	    return err
//	}
type ResponseWriter interface {
	JSON(code int, obj any) error
	IndentedJSON(code int, obj any) error
	String(code int, value string) error
	Stringf(code int, format string, values ...any) error
	HTML(code int, html string) error
	YAML(code int, obj any) error
	Data(code int, contentType string, data []byte) error

	Status(code int)
	Header(key, value string)
	Redirect(code int, location string)
	NoContent()
	SetCookie(name, value string, maxAge int, path, domain string, secure, httpOnly bool)
}

// ContextReader extends ParameterReader with routing results: which
// pattern matched and what path the request was routed under.
type ContextReader interface {
	ParameterReader

	// RoutePattern returns the matched route's specification, such as
	// "/users/:id", or a sentinel like "_not_found".
	RoutePattern() string

	// RoutedPath returns the path the request was dispatched with,
	// which differs from the URL path inside a rerouted dispatch.
	RoutedPath() string
}

// ContextWriter extends ResponseWriter; it exists so response-side
// capabilities can grow without touching ResponseWriter itself.
type ContextWriter interface {
	ResponseWriter
}

// Ensure Context implements all interfaces at compile time.
var (
	_ ParameterReader = (*Context)(nil)
	_ ResponseWriter  = (*Context)(nil)
	_ ContextReader   = (*Context)(nil)
	_ ContextWriter   = (*Context)(nil)
)
