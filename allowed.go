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
	"slices"
	"strings"
)

// allowedConfig holds AllowedMethods behavior toggles.
type allowedConfig struct {
	throw            bool
	methodNotAllowed func() error
	notImplemented   func() error
}

// AllowedOption configures AllowedMethods.
type AllowedOption func(*allowedConfig)

// WithThrow makes AllowedMethods return errors instead of writing 405 and
// 501 responses itself, handing control to the router's error handler.
func WithThrow() AllowedOption {
	return func(cfg *allowedConfig) { cfg.throw = true }
}

// WithMethodNotAllowed supplies the error returned for a 405 in throw
// mode. Implies WithThrow.
func WithMethodNotAllowed(f func() error) AllowedOption {
	return func(cfg *allowedConfig) {
		cfg.throw = true
		cfg.methodNotAllowed = f
	}
}

// WithNotImplemented supplies the error returned for a 501 in throw mode.
// Implies WithThrow.
func WithNotImplemented(f func() error) AllowedOption {
	return func(cfg *allowedConfig) {
		cfg.throw = true
		cfg.notImplemented = f
	}
}

// AllowedMethods returns middleware that answers requests the routes
// themselves did not: it replies 405 Method Not Allowed when the path is
// registered under other methods, 501 Not Implemented when the request
// method is outside the router's implemented set, and answers OPTIONS
// with the Allow set. Register it with Use, typically right after the
// router's dispatch has been composed:
//
//	root.Use(api.Middleware(), api.AllowedMethods())
//
// or on the serving router itself:
//
//	r.Use(r.AllowedMethods())
//
// The middleware inspects the request after the rest of the chain has
// run and acts only when no response was written, so handlers and
// custom 404s always win. The Allow set is the union of the methods of
// every layer that matched the path, in registration order.
//
// In throw mode the 405/501 become errors for the router's error
// handler; the default errors are ErrMethodNotAllowed and
// ErrNotImplemented.
func (r *Router) AllowedMethods(opts ...AllowedOption) HandlerFunc {
	var cfg allowedConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	implemented := r.implemented()

	return func(c *Context) error {
		if err := c.Next(); err != nil {
			return err
		}
		if c.Written() {
			return nil
		}

		var allowed []string
		seen := make(map[string]struct{})
		for _, rt := range c.Matched() {
			for _, m := range rt.Methods().Expand(implemented) {
				if _, dup := seen[m]; dup {
					continue
				}
				seen[m] = struct{}{}
				allowed = append(allowed, m)
			}
		}

		method := c.Request.Method
		if !slices.Contains(implemented, method) {
			if cfg.throw {
				if cfg.notImplemented != nil {
					return cfg.notImplemented()
				}
				return ErrNotImplemented
			}
			c.Header("Allow", strings.Join(allowed, ", "))
			c.WriteErrorResponse(http.StatusNotImplemented, "Not Implemented")
			return nil
		}

		if len(allowed) == 0 {
			return nil
		}

		if method == http.MethodOptions {
			c.Header("Allow", strings.Join(allowed, ", "))
			c.WriteErrorResponse(http.StatusOK, "")
			return nil
		}

		if _, ok := seen[method]; !ok {
			if cfg.throw {
				if cfg.methodNotAllowed != nil {
					return cfg.methodNotAllowed()
				}
				return ErrMethodNotAllowed
			}
			c.MethodNotAllowed(allowed)
		}
		return nil
	}
}
