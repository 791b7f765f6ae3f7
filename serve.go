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
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ServeHTTP implements the http.Handler interface for Router.
//
// For each request:
//
//  1. Freezes the route table on first use, making configuration and
//     serving mutually exclusive phases
//  2. Resets a pooled context for the request
//  3. Walks the layer list and composes every matching layer into one
//     handler chain (see dispatch)
//  4. Runs the chain; handlers cascade via c.Next
//  5. Answers 404 when the chain finishes without writing a response,
//     or routes a returned error to the error handler
//  6. Returns the context to the pool
//
// A request whose path matches no layer at all does not run the chain.
// To fall through to another handler instead of the 404, compose with
// Handler or Mount.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.serveHTTP(w, req, nil)
}

// serveHTTP runs one request through the cascade. next, when non-nil,
// receives requests that fall through every layer without a response
// being written; nil means this router owns the request and answers the
// 404 itself.
func (r *Router) serveHTTP(w http.ResponseWriter, req *http.Request, next http.Handler) {
	// Auto-freeze on first request. Registration after this point fails,
	// which eliminates data races between configuration and serving.
	// Freeze is an atomic store, safe to repeat per request.
	r.Freeze()

	ctx := req.Context()
	var obsState any

	// Observability lifecycle: start.
	if r.observability != nil {
		var enrichedCtx context.Context
		enrichedCtx, obsState = r.observability.OnRequestStart(ctx, req)

		// Only attach the enriched context when it actually changed,
		// avoiding a request copy when the recorder does not enrich.
		if enrichedCtx != ctx {
			ctx = enrichedCtx
			req = req.WithContext(ctx)
		}

		if obsState != nil {
			w = r.observability.WrapResponseWriter(w, obsState)
		}
	}

	// Our own wrapper goes outermost so Written and StatusCode on the
	// context keep working no matter what the recorder wrapped.
	rw := &responseWriter{ResponseWriter: w}

	c := getContextFromGlobalPool()
	c.initForRequest(rw, req, r)
	c.logger = r.requestLogger(ctx, req)

	if provider, ok := r.observability.(ContextRecorderProvider); ok {
		c.metricsRecorder = provider.ContextMetricsRecorder()
		c.tracingRecorder = provider.ContextTracingRecorder()
	}

	err := r.dispatch(c)

	switch {
	case err != nil:
		r.handleError(c, err)
	case !rw.Written():
		if next != nil {
			next.ServeHTTP(rw, req)
		} else {
			r.handleNotFound(c)
		}
	}

	// The pattern is only known once the cascade has finished.
	routePattern := c.RoutePattern()
	releaseGlobalContext(c)

	// Observability lifecycle: end.
	if obsState != nil {
		r.observability.OnRequestEnd(ctx, obsState, rw, routePattern)
	}
}

// requestLogger builds the request-scoped logger, falling back to the
// router's logger when no recorder is installed or it declines.
func (r *Router) requestLogger(ctx context.Context, req *http.Request) *slog.Logger {
	if r.observability != nil {
		if logger := r.observability.BuildRequestLogger(ctx, req); logger != nil {
			return logger
		}
	}
	if r.logger != nil {
		return r.logger
	}
	return noopLogger
}

// handleError routes a chain error to the configured error handler.
func (r *Router) handleError(c *Context, err error) {
	if r.errorHandler != nil {
		r.errorHandler(c, err)
		return
	}
	DefaultErrorHandler(c, err)
}

// DefaultErrorHandler writes the response for an error returned by a
// handler chain. An *HTTPError keeps its code and message; a canceled
// request context produces no response body since the client is gone;
// anything else becomes a plain 500 without leaking the error text.
//
// Custom handlers installed via WithErrorHandler can delegate to it for
// the cases they do not care about.
func DefaultErrorHandler(c *Context, err error) {
	if c.Written() {
		c.Logger().Error("handler error after response started",
			"error", err,
			"path", c.Request.URL.Path,
		)
		return
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Internal != nil {
			c.Logger().Error("request failed",
				"error", httpErr.Internal,
				"status", httpErr.Code,
				"path", c.Request.URL.Path,
			)
		}
		c.WriteErrorResponse(httpErr.Code, httpErr.Message)
		return
	}

	if errors.Is(err, context.Canceled) {
		c.Logger().Debug("request canceled by client", "path", c.Request.URL.Path)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		c.WriteErrorResponse(http.StatusServiceUnavailable, "Service Unavailable")
		return
	}

	c.Logger().Error("unhandled error from handler chain",
		"error", err,
		"path", c.Request.URL.Path,
	)
	c.WriteErrorResponse(http.StatusInternalServerError, "Internal Server Error")
}

// handleNotFound answers a request that fell through every layer. The
// NoRoute handler runs first when installed; the default is a plain
// text 404.
func (r *Router) handleNotFound(c *Context) {
	r.noRouteMu.RLock()
	handler := r.noRoute
	r.noRouteMu.RUnlock()

	if handler != nil {
		if err := handler(c); err != nil {
			r.handleError(c, err)
		}
		if c.Written() {
			return
		}
	}
	c.NotFound()
}

// Serve starts the HTTP server on the specified address. It enables h2c
// when configured via WithH2C and blocks until the server exits. For
// graceful shutdown, call Shutdown from another goroutine.
//
// The server is configured with production-safe timeouts to prevent
// slowloris attacks and resource exhaustion; override them with
// WithServerTimeouts.
//
// Example:
//
//	r := router.MustNew()
//	r.GET("/", func(c *router.Context) error {
//	    return c.String(http.StatusOK, "Hello, World!")
//	})
//
//	go func() {
//	    if err := r.Serve(":8080"); err != nil && err != http.ErrServerClosed {
//	        log.Fatal(err)
//	    }
//	}()
//
//	quit := make(chan os.Signal, 1)
//	signal.Notify(quit, os.Interrupt)
//	<-quit
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	r.Shutdown(ctx)
func (r *Router) Serve(addr string) error {
	h := http.Handler(r)

	if r.enableH2C {
		h = h2c.NewHandler(h, &http2.Server{})
		r.emit(DiagH2CEnabled, "H2C enabled; use only in dev or behind a trusted LB", nil)
	}

	timeouts := r.serverTimeouts
	if timeouts == nil {
		timeouts = defaultServerTimeouts()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: timeouts.readHeader,
		ReadTimeout:       timeouts.read,
		WriteTimeout:      timeouts.write,
		IdleTimeout:       timeouts.idle,
	}

	r.serverMu.Lock()
	r.server = srv
	r.serverMu.Unlock()

	return srv.ListenAndServe()
}

// ServeTLS starts the HTTPS server. HTTP/2 is enabled automatically via
// ALPN. Like Serve, it blocks until the server exits and uses the
// production-safe timeout defaults.
func (r *Router) ServeTLS(addr, certFile, keyFile string) error {
	timeouts := r.serverTimeouts
	if timeouts == nil {
		timeouts = defaultServerTimeouts()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: timeouts.readHeader,
		ReadTimeout:       timeouts.read,
		WriteTimeout:      timeouts.write,
		IdleTimeout:       timeouts.idle,
	}

	r.serverMu.Lock()
	r.server = srv
	r.serverMu.Unlock()

	return srv.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown gracefully shuts down the server without interrupting active
// connections, following the http.Server.Shutdown pattern. It returns
// nil when no server is running.
func (r *Router) Shutdown(ctx context.Context) error {
	r.serverMu.Lock()
	srv := r.server
	r.server = nil
	r.serverMu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}
