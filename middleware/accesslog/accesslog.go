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

// Package accesslog provides structured HTTP access logging middleware
// with outcome-aware sampling.
package accesslog

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"strata.dev/router"
	"strata.dev/router/middleware/requestid"
)

// statusClientClosedRequest is logged when the client canceled the request
// before a response was written. nginx convention.
const statusClientClosedRequest = 499

// statusSizer is a capability interface for response writers that track
// status and size. The router's own writer implements it; a wrapper is
// only installed when something replaced c.Response with a plain writer.
type statusSizer interface {
	StatusCode() int
	Size() int64
}

// New creates an access log middleware with structured logging.
//
// The logger must be provided via WithLogger. Without one the middleware
// only forwards the request.
//
// The middleware runs the rest of the chain first and decides what to log
// afterwards, when the outcome is known: errors and slow requests are
// always logged, everything else is subject to sampling. A chain error
// that has not written a response yet is logged with the status the
// default error handler will produce for it.
//
// The cascade only runs for requests that match a route, so requests that
// fall through to the 404 handler never reach this middleware.
//
// Example:
//
//	import "log/slog"
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	r := router.MustNew()
//	r.Use(accesslog.New(
//		accesslog.WithLogger(logger),
//		accesslog.WithExcludePaths("/health", "/metrics"),
//		accesslog.WithSlowThreshold(500 * time.Millisecond),
//	))
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) error {
		path := c.Request.URL.Path

		if cfg.excludePaths[path] {
			return c.Next()
		}
		for _, prefix := range cfg.excludePrefixes {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		start := time.Now()

		var ss statusSizer
		if existing, ok := c.Response.(statusSizer); ok {
			ss = existing
		} else {
			wrapped := &responseWriter{ResponseWriter: c.Response}
			c.Response = wrapped
			ss = wrapped
		}

		err := c.Next()

		duration := time.Since(start)
		status := resolveStatus(c, ss, err)

		isError := status >= 400
		isSlow := cfg.slowThreshold > 0 && duration >= cfg.slowThreshold

		// Errors and slow requests bypass sampling; the rest honor the
		// filters.
		shouldLog := true
		if !isError && !isSlow {
			if cfg.logErrorsOnly {
				shouldLog = false
			} else if cfg.sampleRate < 1.0 {
				// Deterministic sampling keyed on the request ID, so the
				// same request makes the same decision on every replica.
				shouldLog = sampleByHash(requestid.Get(c), cfg.sampleRate)
			}
		}

		if !shouldLog || cfg.logger == nil {
			return err
		}

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"bytes_sent", ss.Size(),
			"user_agent", c.Request.UserAgent(),
			"client_ip", c.ClientIP(),
			"host", c.Request.Host,
			"proto", c.Request.Proto,
		}

		if rid := requestid.Get(c); rid != "" {
			fields = append(fields, "request_id", rid)
		}
		if routePattern := c.RoutePattern(); routePattern != "" {
			fields = append(fields, "route", routePattern)
		}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}
		if isSlow {
			fields = append(fields, "slow", true)
		}

		switch {
		case status >= 500:
			cfg.logger.Error("access", fields...)
		case status >= 400 || isSlow:
			cfg.logger.Warn("access", fields...)
		default:
			cfg.logger.Info("access", fields...)
		}

		return err
	}
}

// resolveStatus reports the status the client will observe. When the chain
// returned an error that has not been written yet, the error handler runs
// after this middleware, so the status is derived from the error the same
// way the default error handler derives it.
func resolveStatus(c *router.Context, ss statusSizer, err error) int {
	if err == nil || c.Written() {
		return ss.StatusCode()
	}

	var he *router.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sampleByHash provides deterministic sampling based on a hash of the ID.
// Same request ID always makes the same sampling decision across replicas.
func sampleByHash(id string, rate float64) bool {
	if id == "" {
		return true
	}

	h := sha256.Sum256([]byte(id))
	hashValue := binary.BigEndian.Uint64(h[:8])

	threshold := uint64(rate * float64(^uint64(0)))

	return hashValue <= threshold
}

// responseWriter wraps http.ResponseWriter to track status and size when
// the one on the context cannot.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

var (
	_ http.ResponseWriter = (*responseWriter)(nil)
	_ http.Flusher        = (*responseWriter)(nil)
	_ http.Hijacker       = (*responseWriter)(nil)
	_ statusSizer         = (*responseWriter)(nil)
)

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)

	return n, err
}

func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}

	return rw.statusCode
}

func (rw *responseWriter) Size() int64 {
	return rw.size
}

// Flush implements http.Flusher.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}

	return nil, nil, errors.New("hijacker not supported")
}
