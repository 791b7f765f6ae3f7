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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

// paramSlots is the number of parameters held in the context's fixed
// arrays before overflowing to the Params map.
const paramSlots = 8

// Context carries the state of one HTTP request through the handler
// chain: the request and response objects, bound path parameters, the
// layers that matched, and the continuation driving the chain.
//
// Context is NOT safe for concurrent use. It is bound to the goroutine
// serving the request; for async work, copy the values you need before
// starting the goroutine. Contexts are pooled and reused, so references
// must not outlive the handler.
//
// Parameter storage is hybrid: the first paramSlots parameters live in
// fixed arrays and the rest overflow to the Params map, which stays nil
// for the common case.
type Context struct {
	// Request is the incoming HTTP request.
	Request *http.Request

	// Response is the response writer, wrapped so status and size can
	// be observed after the chain runs.
	Response http.ResponseWriter

	// Params holds overflow parameters when a request binds more than
	// paramSlots names. Use Param for lookups; it checks both tiers.
	Params map[string]string

	chain  *chainState
	router *Router

	route    *Route
	matched  []*Route
	captures []string

	routedPath string

	paramCount  int32
	paramKeys   [paramSlots]string
	paramValues [paramSlots]string

	// validated lists the parameter names whose validators have run.
	// Entries before validatedMark were recorded by earlier layers of
	// the cascade; the rest by the layer now running.
	validated     []string
	validatedMark int

	store map[string]any

	logger *slog.Logger

	metricsRecorder ContextMetricsRecorder
	tracingRecorder ContextTracingRecorder
}

// NewContext creates a context for the given response writer and
// request, outside the router's pooled request flow. Intended for tests
// and for adapters that drive handlers directly.
func NewContext(w http.ResponseWriter, req *http.Request) *Context {
	return &Context{
		Request:  req,
		Response: w,
	}
}

// Param returns the decoded value bound to the named path parameter, or
// the empty string when the name is not bound.
//
//	r.GET("/users/:id", func(c *router.Context) error {
//	    return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
//	})
func (c *Context) Param(key string) string {
	for i := range c.paramCount {
		if c.paramKeys[i] == key {
			return c.paramValues[i]
		}
	}
	return c.Params[key]
}

// boundParam reports whether the named parameter is bound, and its
// value. Unlike Param it distinguishes an empty value from an absent
// one.
func (c *Context) boundParam(key string) (string, bool) {
	for i := range c.paramCount {
		if c.paramKeys[i] == key {
			return c.paramValues[i], true
		}
	}
	v, ok := c.Params[key]
	return v, ok
}

// setParam binds value to the named parameter, overwriting an existing
// binding of the same name. The first paramSlots distinct names use
// array storage; later names overflow to the map.
func (c *Context) setParam(key, value string) {
	for i := range c.paramCount {
		if c.paramKeys[i] == key {
			c.paramValues[i] = value
			return
		}
	}
	if c.Params != nil {
		if _, ok := c.Params[key]; ok {
			c.Params[key] = value
			return
		}
	}
	if int(c.paramCount) < paramSlots {
		c.paramKeys[c.paramCount] = key
		c.paramValues[c.paramCount] = value
		c.paramCount++
		return
	}
	if c.Params == nil {
		c.Params = make(map[string]string, 2)
	}
	c.Params[key] = value
}

// beginParamValidation records that a validator for name is about to
// run, and reports whether it should. It returns false when an earlier
// layer already validated the name this request; validators spliced into
// the running layer's own stack all report true, so several validators
// for one name run in order.
func (c *Context) beginParamValidation(name string) bool {
	for _, done := range c.validated[:c.validatedMark] {
		if done == name {
			return false
		}
	}
	c.validated = append(c.validated, name)
	return true
}

// Set stores a value on the context under key, for passing request-scoped
// data between handlers. Typical producers are Param validators and
// authentication middleware.
func (c *Context) Set(key string, value any) {
	if c.store == nil {
		c.store = make(map[string]any, 4)
	}
	c.store[key] = value
}

// Get returns the value stored under key by Set and whether it exists.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.store[key]
	return v, ok
}

// Logger returns the request-scoped logger. The observability recorder
// supplies it at request start with request metadata attached; without a
// recorder it is the router's logger, and never nil.
func (c *Context) Logger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return noopLogger
}

// Route returns the route whose handlers complete the current chain: the
// last layer that matched on both path and method. Middleware layers see
// the value for the request they are running in. Returns nil when
// dispatch has not bound a route, such as inside a NoRoute handler.
func (c *Context) Route() *Route {
	return c.route
}

// Matched returns every layer whose path matched the request so far,
// including middleware layers and layers matched by nested dispatches.
// AllowedMethods derives the Allow set from it.
func (c *Context) Matched() []*Route {
	return c.matched
}

// Captures returns the raw, undecoded capture values of the most
// recently bound layer. Captures of a layer registered with
// IgnoreCaptures are nil.
func (c *Context) Captures() []string {
	return c.captures
}

// RoutePattern returns the path specification of the bound route, for
// metrics labels and access logs. When no route matched it returns
// "_unmatched" if at least one middleware layer matched the path, and
// "_not_found" otherwise.
func (c *Context) RoutePattern() string {
	if c.route != nil {
		return c.route.spec
	}
	if len(c.matched) > 0 {
		return "_unmatched"
	}
	return "_not_found"
}

// RoutedPath returns the path dispatch matches against when it differs
// from the request URL path, and the empty string otherwise.
func (c *Context) RoutedPath() string {
	return c.routedPath
}

// SetRoutedPath overrides the path used for matching without touching
// the request URL. Adapters that strip a mount prefix before handing the
// request to the router use it to keep the original URL intact.
func (c *Context) SetRoutedPath(path string) {
	c.routedPath = path
}

// Written reports whether the response status has been written.
func (c *Context) Written() bool {
	if rw, ok := c.Response.(*responseWriter); ok {
		return rw.Written()
	}
	return false
}

// StatusCode returns the status code written to the response, or zero
// when the status has not been written yet.
func (c *Context) StatusCode() int {
	if rw, ok := c.Response.(*responseWriter); ok && rw.Written() {
		return rw.StatusCode()
	}
	return 0
}

// writeHeader writes the status code unless the response has already
// been written, avoiding the superfluous WriteHeader warning from
// net/http when handlers and middleware both touch the response.
func (c *Context) writeHeader(code int) {
	if rw, ok := c.Response.(*responseWriter); ok {
		if !rw.Written() {
			rw.WriteHeader(code)
		}
		return
	}
	c.Response.WriteHeader(code)
}

// Status writes the HTTP status code. Call it before writing any body.
func (c *Context) Status(code int) {
	c.writeHeader(code)
}

// Header sets a response header, stripping CR and LF from the value.
// A value carrying newlines is a header injection attempt; it is
// sanitized rather than rejected, and reported through diagnostics.
func (c *Context) Header(key, value string) {
	c.Response.Header().Set(key, c.sanitizeHeaderValue(key, value))
}

// sanitizeHeaderValue strips CR and LF from header values to block
// response splitting, emitting a diagnostic when it does.
func (c *Context) sanitizeHeaderValue(key, value string) string {
	if !strings.ContainsAny(value, "\r\n") {
		return value
	}
	if c.router != nil {
		c.router.emit(DiagHeaderInjection, "header injection attempt blocked and sanitized", map[string]any{
			"key":            key,
			"original_value": value,
			"path":           c.Request.URL.Path,
			"client_ip":      c.ClientIP(),
			"user_agent":     c.Request.UserAgent(),
		})
	}
	value = strings.ReplaceAll(value, "\r", "")
	return strings.ReplaceAll(value, "\n", "")
}

// Query returns the value of the named URL query parameter, or the
// empty string when absent.
func (c *Context) Query(key string) string {
	if c.Request == nil {
		return ""
	}
	return c.Request.URL.Query().Get(key)
}

// QueryDefault returns the named query parameter or def when absent or
// empty.
func (c *Context) QueryDefault(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// FormValue returns the named form field from the request body, for
// both urlencoded and multipart forms.
func (c *Context) FormValue(key string) string {
	return c.Request.FormValue(key)
}

// FormValueDefault returns the named form field or def when absent or
// empty.
func (c *Context) FormValueDefault(key, def string) string {
	if v := c.FormValue(key); v != "" {
		return v
	}
	return def
}

// SetCookie adds a Set-Cookie header. The value is query-escaped.
func (c *Context) SetCookie(name, value string, maxAge int, path, domain string, secure, httpOnly bool) {
	http.SetCookie(c.Response, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		MaxAge:   maxAge,
		Path:     path,
		Domain:   domain,
		Secure:   secure,
		HttpOnly: httpOnly,
	})
}

// GetCookie returns the unescaped value of the named request cookie.
func (c *Context) GetCookie(name string) (string, error) {
	cookie, err := c.Request.Cookie(name)
	if err != nil {
		return "", err
	}
	return url.QueryUnescape(cookie.Value)
}

// JSON sends obj encoded as JSON with the given status code. The value
// is encoded before any byte reaches the wire, so an encoding failure
// leaves the response unwritten and is returned to the caller.
//
//	if err := c.JSON(http.StatusOK, user); err != nil {
//	    c.Logger().Error("failed to write json", "err", err)
//	    return err
//	}
func (c *Context) JSON(code int, obj any) error {
	var buf strings.Builder
	buf.Grow(256)
	if err := json.NewEncoder(&buf).Encode(obj); err != nil {
		return fmt.Errorf("JSON encoding failed for type %T: %w", obj, err)
	}

	c.Response.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.writeHeader(code)
	_, err := io.WriteString(c.Response, buf.String())
	return err
}

// IndentedJSON sends obj as indented JSON for human-readable output.
// Use JSON for compact responses.
func (c *Context) IndentedJSON(code int, obj any) error {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Errorf("IndentedJSON encoding failed for type %T: %w", obj, err)
	}

	c.Response.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.writeHeader(code)
	_, err = c.Response.Write(data)
	return err
}

// String sends a plain text response. The value is written as-is; use
// Stringf for formatting.
func (c *Context) String(code int, value string) error {
	if c.Response.Header().Get("Content-Type") == "" {
		c.Response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	c.writeHeader(code)
	if _, err := io.WriteString(c.Response, value); err != nil {
		return fmt.Errorf("writing string response: %w", err)
	}
	return nil
}

// Stringf sends a formatted plain text response using fmt.Sprintf
// verbs.
func (c *Context) Stringf(code int, format string, values ...any) error {
	if c.Response.Header().Get("Content-Type") == "" {
		c.Response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	c.writeHeader(code)
	if _, err := fmt.Fprintf(c.Response, format, values...); err != nil {
		return fmt.Errorf("writing formatted string response: %w", err)
	}
	return nil
}

// HTML sends an HTML response.
func (c *Context) HTML(code int, html string) error {
	c.Response.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.writeHeader(code)
	if _, err := io.WriteString(c.Response, html); err != nil {
		return fmt.Errorf("writing HTML response: %w", err)
	}
	return nil
}

// YAML sends obj encoded as YAML, for configuration endpoints and
// tooling that prefers YAML output.
func (c *Context) YAML(code int, obj any) error {
	data, err := yaml.Marshal(obj)
	if err != nil {
		return fmt.Errorf("YAML encoding failed for type %T: %w", obj, err)
	}

	c.Response.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")
	c.writeHeader(code)
	_, err = c.Response.Write(data)
	return err
}

// Data sends raw bytes with the given content type, defaulting to
// application/octet-stream.
func (c *Context) Data(code int, contentType string, data []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response.Header().Set("Content-Type", contentType)
	c.writeHeader(code)
	if _, err := c.Response.Write(data); err != nil {
		return fmt.Errorf("writing data response: %w", err)
	}
	return nil
}

// DataFromReader streams the reader to the response. Pass a negative
// contentLength when the size is unknown.
func (c *Context) DataFromReader(code int, contentLength int64, contentType string, reader io.Reader, extraHeaders map[string]string) error {
	if contentType != "" {
		c.Response.Header().Set("Content-Type", contentType)
	}
	if contentLength >= 0 {
		c.Response.Header().Set("Content-Length", strconv.FormatInt(contentLength, 10))
	}
	for key, value := range extraHeaders {
		c.Response.Header().Set(key, value)
	}
	c.writeHeader(code)
	if _, err := io.Copy(c.Response, reader); err != nil {
		return fmt.Errorf("streaming from reader failed: %w", err)
	}
	return nil
}

// Redirect sends a redirect to location with the given status code.
//
//	c.Redirect(http.StatusFound, "/login")
func (c *Context) Redirect(code int, location string) {
	c.Header("Location", location)
	c.Status(code)
}

// NoContent sends a 204 No Content response.
func (c *Context) NoContent() {
	c.Status(http.StatusNoContent)
}

// WriteErrorResponse writes a plain text error response unless a status
// has already been written. An empty message writes the status alone.
func (c *Context) WriteErrorResponse(status int, message string) {
	if message != "" {
		c.Response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	c.writeHeader(status)
	if message != "" {
		_, _ = io.WriteString(c.Response, message+"\n")
	}
}

// NotFound writes a 404 Not Found response.
func (c *Context) NotFound() {
	c.WriteErrorResponse(http.StatusNotFound, "Not Found")
}

// MethodNotAllowed writes a 405 Method Not Allowed response with the
// required Allow header. The allowed methods are listed in the order
// given, which for AllowedMethods is registration order.
func (c *Context) MethodNotAllowed(allowed []string) {
	c.Header("Allow", strings.Join(allowed, ", "))
	c.WriteErrorResponse(http.StatusMethodNotAllowed, "Method Not Allowed")
}

// RequestContext returns the request's context.Context, for passing to
// databases, HTTP clients, and anything else that takes a context.
func (c *Context) RequestContext() context.Context {
	if c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}

// TraceContext returns the context carrying the active trace for manual
// span creation or propagation. Without tracing it is the request
// context, so cancellation still propagates.
func (c *Context) TraceContext() context.Context {
	if c.tracingRecorder != nil {
		return c.tracingRecorder.TraceContext()
	}
	return c.RequestContext()
}

// Span returns the active OpenTelemetry span, which is a no-op span
// when tracing is not enabled.
func (c *Context) Span() trace.Span {
	return trace.SpanFromContext(c.RequestContext())
}

// TraceID returns the active trace ID, or the empty string when tracing
// is not enabled.
func (c *Context) TraceID() string {
	if c.tracingRecorder != nil {
		return c.tracingRecorder.TraceID()
	}
	if sc := trace.SpanContextFromContext(c.RequestContext()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// SpanID returns the active span ID, or the empty string when tracing
// is not enabled.
func (c *Context) SpanID() string {
	if c.tracingRecorder != nil {
		return c.tracingRecorder.SpanID()
	}
	if sc := trace.SpanContextFromContext(c.RequestContext()); sc.HasSpanID() {
		return sc.SpanID().String()
	}
	return ""
}

// SetSpanAttribute adds an attribute to the active span. No-op without
// tracing.
func (c *Context) SetSpanAttribute(key string, value any) {
	if c.tracingRecorder != nil {
		c.tracingRecorder.SetSpanAttribute(key, value)
	}
}

// AddSpanEvent adds an event to the active span. No-op without tracing.
func (c *Context) AddSpanEvent(name string, attrs ...attribute.KeyValue) {
	if c.tracingRecorder != nil {
		c.tracingRecorder.AddSpanEvent(name, attrs...)
	}
}

// RecordMetric records a custom histogram value through the context's
// metrics recorder. No-op without one.
func (c *Context) RecordMetric(name string, value float64, attributes ...attribute.KeyValue) {
	if c.metricsRecorder != nil {
		c.metricsRecorder.RecordMetric(c.RequestContext(), name, value, attributes...)
	}
}

// IncrementCounter increments a custom counter through the context's
// metrics recorder. No-op without one.
func (c *Context) IncrementCounter(name string, attributes ...attribute.KeyValue) {
	if c.metricsRecorder != nil {
		c.metricsRecorder.IncrementCounter(c.RequestContext(), name, attributes...)
	}
}

// SetGauge sets a custom gauge through the context's metrics recorder.
// No-op without one.
func (c *Context) SetGauge(name string, value float64, attributes ...attribute.KeyValue) {
	if c.metricsRecorder != nil {
		c.metricsRecorder.SetGauge(c.RequestContext(), name, value, attributes...)
	}
}

// initForRequest readies a pooled context for a new request. Fields not
// assigned here were zeroed by reset when the context was released.
func (c *Context) initForRequest(w http.ResponseWriter, req *http.Request, r *Router) {
	c.Request = req
	c.Response = w
	c.router = r
}

// reset returns the context to its zero state for pooling. Slice and
// map capacity is kept so reuse does not reallocate.
func (c *Context) reset() {
	c.Request = nil
	c.Response = nil
	c.chain = nil
	c.router = nil

	c.route = nil
	c.matched = c.matched[:0]
	c.captures = nil
	c.routedPath = ""

	if c.paramCount > 0 {
		n := min(c.paramCount, paramSlots)
		for i := range n {
			c.paramKeys[i] = ""
			c.paramValues[i] = ""
		}
		c.paramCount = 0
	}
	if c.Params != nil {
		clear(c.Params)
	}

	c.validated = c.validated[:0]
	c.validatedMark = 0
	if c.store != nil {
		clear(c.store)
	}

	c.logger = nil
	c.metricsRecorder = nil
	c.tracingRecorder = nil
}
