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

package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"strata.dev/router"
)

var (
	_ router.ObservabilityRecorder   = (*Recorder)(nil)
	_ router.ContextRecorderProvider = (*Recorder)(nil)
)

// Attribute keys for request-scoped log records, following OpenTelemetry
// log conventions.
const (
	logKeyHTTPMethod = "http.method"
	logKeyHTTPTarget = "http.target"
	logKeyRequestID  = "req.id"
	logKeyClientIP   = "network.client.ip"
	logKeyTraceID    = "trace_id"
	logKeySpanID     = "span_id"
)

const headerAttrPrefix = "http.request.header."

// requestState carries everything OnRequestEnd needs to close out a
// request. A nil baseAttrs slice means metrics were skipped for this
// request; a nil span means it was not sampled.
type requestState struct {
	start     time.Time
	req       *http.Request
	span      trace.Span
	baseAttrs []attribute.KeyValue
}

// OnRequestStart begins telemetry for a request: it extracts inbound
// trace context, starts a server span when the request is sampled, and
// records the active-request and request-size metrics. Excluded paths
// return a nil state and are invisible to every signal.
func (r *Recorder) OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any) {
	if r.shouldExclude(req.URL.Path) {
		return ctx, nil
	}

	// Inbound trace context applies even to unsampled requests so that
	// downstream calls and log lines keep the caller's trace identity.
	ctx = r.propagator.Extract(ctx, propagation.HeaderCarrier(req.Header))

	state := &requestState{start: time.Now(), req: req}

	if r.sampleRequest() {
		ctx, state.span = r.startSpan(ctx, req)
	}

	if r.metricsReady.Load() {
		state.baseAttrs = r.beginRequestMetrics(ctx, req)
	} else {
		r.warnNotStarted.Do(func() {
			r.emitWarning("request received before Start; metrics are dropped until the provider is initialized")
		})
	}

	return ctx, state
}

func (r *Recorder) shouldExclude(path string) bool {
	if r.excludePaths[path] {
		return true
	}
	for _, prefix := range r.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

// sampleRequest decides whether the current request gets a span. The
// counter multiplied by a large prime scatters sequential requests
// uniformly across the threshold space, so a 10% rate samples roughly
// every tenth request without a random source.
func (r *Recorder) sampleRequest() bool {
	if r.sampleRate >= 1.0 {
		return true
	}
	if r.sampleRate <= 0.0 {
		return false
	}

	return r.samplingCounter.Add(1)*samplingMultiplier <= r.samplingThreshold
}

// startSpan opens a server span named after the raw path. The name is
// provisional: OnRequestEnd renames it to the route pattern once the
// cascade has decided which route owns the request.
func (r *Recorder) startSpan(ctx context.Context, req *http.Request) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindServer))

	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}

	attrs := make([]attribute.KeyValue, 0, 7+len(r.recordHeaders))
	attrs = append(attrs,
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL.String()),
		attribute.String("http.scheme", scheme),
		attribute.String("http.host", req.Host),
		attribute.String("http.user_agent", req.UserAgent()),
		r.serviceNameAttr,
		r.serviceVersionAttr,
	)

	for _, header := range r.recordHeaders {
		if value := req.Header.Get(header); value != "" {
			attrs = append(attrs, attribute.String(headerAttrPrefix+strings.ToLower(header), value))
		}
	}

	span.SetAttributes(attrs...)

	return ctx, span
}

func (r *Recorder) beginRequestMetrics(ctx context.Context, req *http.Request) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 2, 8)
	attrs[0] = r.serviceNameAttr
	attrs[1] = r.serviceVersionAttr

	r.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	if req.ContentLength > 0 {
		r.requestSize.Record(ctx, req.ContentLength, metric.WithAttributes(attrs...))
	}

	return attrs
}

// WrapResponseWriter returns a writer that tracks status code and bytes
// written. Requests excluded in OnRequestStart pass through untouched.
func (r *Recorder) WrapResponseWriter(w http.ResponseWriter, state any) http.ResponseWriter {
	if state == nil {
		return w
	}

	return &responseWriter{ResponseWriter: w}
}

// BuildRequestLogger returns a logger carrying request identity and, when
// a span is active, trace correlation fields. Handlers reach it through
// Context.Logger.
func (r *Recorder) BuildRequestLogger(ctx context.Context, req *http.Request) *slog.Logger {
	if r.logger == nil {
		return router.NoopLogger()
	}

	logger := r.logger.With(
		logKeyHTTPMethod, req.Method,
		logKeyHTTPTarget, req.URL.Path,
	)

	if id := req.Header.Get("X-Request-ID"); id != "" {
		logger = logger.With(logKeyRequestID, id)
	}
	if req.RemoteAddr != "" {
		logger = logger.With(logKeyClientIP, req.RemoteAddr)
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		logger = logger.With(
			logKeyTraceID, span.SpanContext().TraceID().String(),
			logKeySpanID, span.SpanContext().SpanID().String(),
		)
	}

	return logger
}

// OnRequestEnd closes out the request: it finishes the span, records the
// request metrics, and writes the access log line when enabled.
func (r *Recorder) OnRequestEnd(ctx context.Context, state any, writer http.ResponseWriter, routePattern string) {
	s, ok := state.(*requestState)
	if !ok || s == nil {
		return
	}

	duration := time.Since(s.start)

	statusCode := http.StatusOK
	var responseSize int64
	if info, ok := writer.(router.ResponseInfo); ok {
		statusCode = info.StatusCode()
		responseSize = info.Size()
	}

	if s.span != nil {
		r.finishSpan(s, statusCode, routePattern)
	}

	if s.baseAttrs != nil {
		r.finishRequestMetrics(ctx, s, statusCode, responseSize, duration, routePattern)
	}

	if r.logAccessRequests && r.logger != nil {
		r.logAccess(ctx, s.req, statusCode, responseSize, duration, routePattern)
	}
}

// finishSpan renames the span to the route pattern, which is unknown
// until dispatch completes, and closes it with the response status.
func (r *Recorder) finishSpan(s *requestState, statusCode int, routePattern string) {
	span := s.span
	if span.IsRecording() {
		if routePattern != "" {
			span.SetName(s.req.Method + " " + routePattern)
			span.SetAttributes(attribute.String("http.route", routePattern))
		}
		span.SetAttributes(attribute.Int("http.status_code", statusCode))

		if statusCode >= 400 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
	span.End()
}

func (r *Recorder) finishRequestMetrics(ctx context.Context, s *requestState, statusCode int, responseSize int64, duration time.Duration, routePattern string) {
	// The up-down counter must see the same attribute set it was
	// incremented with or the active series never returns to zero.
	r.activeRequests.Add(ctx, -1, metric.WithAttributes(s.baseAttrs...))

	route := routePattern
	if route == "" {
		route = "_unmatched"
	}

	attrs := append(s.baseAttrs,
		attribute.Int("http.status_code", statusCode),
		attribute.String("http.status_class", statusClass(statusCode)),
		attribute.String("http.route", route),
	)
	opts := metric.WithAttributes(attrs...)

	r.requestDuration.Record(ctx, duration.Seconds(), opts)
	r.requestCount.Add(ctx, 1, opts)

	if statusCode >= 400 {
		r.errorCount.Add(ctx, 1, opts)
	}
	if responseSize > 0 {
		r.responseSize.Record(ctx, responseSize, opts)
	}
}

func statusClass(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// logAccess writes one line per completed request. Unlike chain
// middleware it also covers requests that never matched a route.
func (r *Recorder) logAccess(ctx context.Context, req *http.Request, statusCode int, responseSize int64, duration time.Duration, routePattern string) {
	isError := statusCode >= 400
	isSlow := r.slowThreshold > 0 && duration >= r.slowThreshold

	if r.logErrorsOnly && !isError && !isSlow {
		return
	}

	fields := []any{
		"method", req.Method,
		"path", req.URL.Path,
		"status", statusCode,
		"duration_ms", float64(duration.Microseconds()) / 1000.0,
		"bytes_sent", responseSize,
		"user_agent", req.UserAgent(),
		"remote_addr", req.RemoteAddr,
		"host", req.Host,
		"proto", req.Proto,
	}

	if routePattern != "" {
		fields = append(fields, "route", routePattern)
	}
	if id := req.Header.Get("X-Request-ID"); id != "" {
		fields = append(fields, "request_id", id)
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		fields = append(fields, "trace_id", span.SpanContext().TraceID().String())
	}
	if isSlow {
		fields = append(fields, "slow", true)
	}

	switch {
	case statusCode >= 500:
		r.logger.ErrorContext(ctx, "access", fields...)
	case isError || isSlow:
		r.logger.WarnContext(ctx, "access", fields...)
	default:
		r.logger.InfoContext(ctx, "access", fields...)
	}
}

// ContextMetricsRecorder returns the handler-level metrics recorder that
// the router wires into every request context.
func (r *Recorder) ContextMetricsRecorder() router.ContextMetricsRecorder {
	return r.contextMetrics
}

// ContextTracingRecorder returns nil. The active span already travels in
// the request context, where the context's span accessors find it, and a
// recorder shared across requests could not tell one span from another.
func (r *Recorder) ContextTracingRecorder() router.ContextTracingRecorder {
	return nil
}

// responseWriter tracks status code and bytes written for the metrics
// and access log signals.
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
	_ router.ResponseInfo = (*responseWriter)(nil)
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
