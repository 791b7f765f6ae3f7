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
	"log/slog"
	"net/http"
)

// ObservabilityRecorder provides unified observability lifecycle hooks
// for HTTP requests. Implementations typically combine metrics,
// distributed tracing, and access logging; the telemetry package ships
// one built on OpenTelemetry and Prometheus.
//
// Lifecycle per request:
//  1. OnRequestStart(ctx, req) → (enrichedCtx, state). The enriched
//     context is always installed on the request, so trace propagation
//     reaches downstream calls even for excluded requests. A nil state
//     excludes the request from the remaining hooks.
//  2. WrapResponseWriter(w, state), only when state != nil.
//  3. BuildRequestLogger(ctx, req) supplies the logger handlers see via
//     Context.Logger.
//  4. The handler chain runs. The matched pattern is not known until it
//     finishes: layers match during dispatch, not before it.
//  5. OnRequestEnd(ctx, state, writer, routePattern), only when
//     state != nil. routePattern is the bound route's specification or
//     the "_not_found"/"_unmatched" sentinels; implementations should
//     label metrics with it rather than the raw path to keep
//     cardinality bounded.
//
// All methods must be safe for concurrent use.
type ObservabilityRecorder interface {
	// OnRequestStart is called before dispatch. It returns an enriched
	// context and an opaque state token; nil state excludes the request
	// from wrapping and OnRequestEnd but not from context enrichment.
	OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any)

	// WrapResponseWriter wraps the response writer to capture response
	// metadata. Called only with a non-nil state. The returned writer
	// should implement ResponseInfo.
	WrapResponseWriter(w http.ResponseWriter, state any) http.ResponseWriter

	// BuildRequestLogger returns the request-scoped logger, typically
	// the recorder's base logger with method, path, and trace identity
	// attached. Returning nil falls back to the router's logger.
	BuildRequestLogger(ctx context.Context, req *http.Request) *slog.Logger

	// OnRequestEnd finishes the request's observability: record
	// metrics, end spans, emit the access log entry. The writer is the
	// one returned by WrapResponseWriter; implementations type-assert
	// it to ResponseInfo for status and size.
	OnRequestEnd(ctx context.Context, state any, writer http.ResponseWriter, routePattern string)
}

// ResponseInfo is implemented by response writers that track response
// metadata, letting OnRequestEnd extract status and size without
// knowing the concrete writer type.
type ResponseInfo interface {
	StatusCode() int
	Size() int64
}

// ContextRecorderProvider is an optional interface for
// ObservabilityRecorder implementations that also supply handler-level
// recorders. When the router's recorder implements it, every Context is
// wired with the returned recorders, enabling Context.RecordMetric,
// Context.TraceID, and friends.
type ContextRecorderProvider interface {
	ContextMetricsRecorder() ContextMetricsRecorder
	ContextTracingRecorder() ContextTracingRecorder
}
