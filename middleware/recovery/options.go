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

package recovery

import "strata.dev/router"

// WithStackTrace enables or disables stack trace capture.
// Default: true
//
// Example:
//
//	recovery.New(recovery.WithStackTrace(false))
func WithStackTrace(enabled bool) Option {
	return func(cfg *config) {
		cfg.stackTrace = enabled
	}
}

// WithStackSize sets the maximum size of the stack trace buffer in bytes.
// Default: 4KB (4 << 10)
//
// Example:
//
//	recovery.New(recovery.WithStackSize(8 << 10)) // 8KB
func WithStackSize(size int) Option {
	return func(cfg *config) {
		cfg.stackSize = size
	}
}

// WithStackAll captures stacks of all goroutines instead of only the
// panicking one. Useful when diagnosing deadlocks or leaked goroutines,
// at the cost of much larger log entries.
// Default: false
//
// Example:
//
//	recovery.New(recovery.WithStackAll(true))
func WithStackAll(all bool) Option {
	return func(cfg *config) {
		cfg.stackAll = all
	}
}

// WithLogger sets a custom logger function for panic messages.
// The logger receives the context, the recovered value, and the stack trace.
//
// Example:
//
//	recovery.New(recovery.WithLogger(func(c *router.Context, v any, stack []byte) {
//	    myLogger.Error("panic recovered", "error", v, "stack", string(stack))
//	}))
func WithLogger(logger func(c *router.Context, v any, stack []byte)) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithHandler sets a custom function that converts the recovered panic into
// the error returned up the chain. The handler may instead write a response
// itself and return nil.
//
// Example:
//
//	recovery.New(recovery.WithHandler(func(c *router.Context, v any) error {
//	    return c.JSON(http.StatusInternalServerError, map[string]string{
//	        "error": "something went wrong",
//	    })
//	}))
func WithHandler(handler func(c *router.Context, v any) error) Option {
	return func(cfg *config) {
		cfg.handler = handler
	}
}
