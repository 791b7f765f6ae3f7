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

package bridge

import (
	"net/http"

	"strata.dev/router"
)

// WrapHandler adapts an http.Handler into a HandlerFunc so stdlib
// handlers can terminate cascade routes:
//
//	r.GET("/metrics", bridge.WrapHandler(promhttp.Handler()))
//	r.GET("/static/:file", bridge.WrapHandler(
//	    http.StripPrefix("/static/", http.FileServer(http.Dir("public")))))
func WrapHandler(h http.Handler) router.HandlerFunc {
	return func(c *router.Context) error {
		h.ServeHTTP(c.Response, c.Request)
		return nil
	}
}

// WrapMiddleware adapts middleware in the func(http.Handler)
// http.Handler form into a cascade layer. The adapted middleware's next
// hop resumes the cascade, and a request or writer it swapped in stays
// visible to the layers downstream. A middleware that answers the
// request without calling its next handler short-circuits the cascade
// the same way it would a plain handler stack.
//
//	r.Use(bridge.WrapMiddleware(gzhttp.GzipHandler))
func WrapMiddleware(m func(http.Handler) http.Handler) router.HandlerFunc {
	return func(c *router.Context) error {
		var err error
		m(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			c.Response = w
			c.Request = req
			err = c.Next()
		})).ServeHTTP(c.Response, c.Request)
		return err
	}
}
