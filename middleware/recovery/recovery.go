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

// Package recovery provides middleware for recovering from panics in HTTP
// handlers, preventing server crashes and returning proper error responses.
package recovery

import (
	"fmt"
	"net/http"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"strata.dev/router"
)

// Option defines functional options for recovery middleware configuration.
type Option func(*config)

// config holds the configuration for the recovery middleware.
type config struct {
	// stackTrace enables/disables capturing stack traces on panic
	stackTrace bool

	// stackSize sets the maximum size of the stack trace in bytes
	stackSize int

	// stackAll captures stacks of all goroutines, not just the panicking one
	stackAll bool

	// logger is the custom logger function for panic messages
	logger func(c *router.Context, v any, stack []byte)

	// handler converts the recovered panic into the error returned to the
	// router's error handler
	handler func(c *router.Context, v any) error
}

// defaultConfig returns the default configuration for recovery middleware.
func defaultConfig() *config {
	return &config{
		stackTrace: true,
		stackSize:  4 << 10, // 4KB
		logger:     defaultLogger,
		handler:    defaultHandler,
	}
}

// defaultLogger logs panic information with a stack trace through the
// request logger.
func defaultLogger(c *router.Context, v any, stack []byte) {
	c.Logger().Error("panic recovered",
		"panic", fmt.Sprintf("%v", v),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"stack", string(stack),
	)
}

// defaultHandler converts the panic into a 500 error carrying the panic
// value as its cause, so the router's error handler writes the response
// and error-aware middleware sees it.
func defaultHandler(_ *router.Context, v any) error {
	he := router.NewHTTPError(http.StatusInternalServerError)
	if err, ok := v.(error); ok {
		return he.WithInternal(fmt.Errorf("panic: %w", err))
	}
	return he.WithInternal(fmt.Errorf("panic: %v", v))
}

// New returns a middleware that recovers from panics in request handlers.
// The panic is logged, the active span is marked as failed, and the panic
// is converted into an error returned up the chain, so the router's error
// handler produces the response.
//
// This middleware should typically be registered first (or early) in the
// middleware chain to catch panics from all subsequent handlers.
//
// http.ErrAbortHandler is re-raised untouched; net/http uses it to abort
// a response without logging.
//
// Basic usage:
//
//	r := router.MustNew()
//	r.Use(recovery.New())
//
// With custom configuration:
//
//	r.Use(recovery.New(
//	    recovery.WithStackSize(8 << 10),
//	    recovery.WithLogger(customLogger),
//	))
//
// Custom conversion of panics into responses:
//
//	r.Use(recovery.New(
//	    recovery.WithHandler(func(c *router.Context, v any) error {
//	        return c.JSON(http.StatusInternalServerError, map[string]any{
//	            "error": "internal error",
//	        })
//	    }),
//	))
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) (err error) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}

			// Mark the span with exception.escaped; panics are the only
			// place this attribute is set.
			if span := c.Span(); span != nil && span.SpanContext().IsValid() {
				span.SetStatus(codes.Error, "panic recovered")
				span.SetAttributes(
					attribute.Bool("exception.escaped", true),
					attribute.String("exception.type", fmt.Sprintf("%T", v)),
					attribute.String("exception.message", fmt.Sprintf("%v", v)),
				)
				if actualErr, ok := v.(error); ok {
					span.RecordError(actualErr)
				}
			}

			var stack []byte
			if cfg.stackTrace {
				buf := make([]byte, cfg.stackSize)
				n := runtime.Stack(buf, cfg.stackAll)
				stack = buf[:n]
			}

			if cfg.logger != nil {
				cfg.logger(c, v, stack)
			}

			if cfg.handler != nil {
				err = cfg.handler(c, v)
			}
		}()

		return c.Next()
	}
}
