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

	"github.com/gin-gonic/gin"

	"strata.dev/router"
)

// Gin returns middleware that runs r inside a gin engine. A request the
// router answers aborts the gin chain; a request that matches nothing,
// or whose matched chain finishes without writing, continues to gin's
// own routes untouched.
//
//	engine := gin.New()
//	engine.Use(bridge.Gin(r))
//	engine.GET("/native", nativeHandler)
//
// The router's error handler and observability hooks apply to the
// requests it answers; requests handed back to gin are the engine's to
// report.
func Gin(r *router.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		fell := false
		next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			fell = true
		})

		r.Handler(next).ServeHTTP(c.Writer, c.Request)

		if fell {
			c.Next()
			return
		}
		c.Abort()
	}
}
