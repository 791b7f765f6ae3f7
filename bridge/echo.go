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

	"github.com/labstack/echo/v4"

	"strata.dev/router"
)

// Echo returns middleware that runs r inside an echo server. A request
// the router answers ends the echo chain; a request that matches
// nothing, or whose matched chain finishes without writing, continues
// to echo's own routes untouched.
//
//	e := echo.New()
//	e.Use(bridge.Echo(r))
//	e.GET("/native", nativeHandler)
func Echo(r *router.Router) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			fell := false
			fallthroughMark := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				fell = true
			})

			r.Handler(fallthroughMark).ServeHTTP(c.Response(), c.Request())

			if fell {
				return next(c)
			}
			return nil
		}
	}
}
