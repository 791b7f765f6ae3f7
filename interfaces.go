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

	"go.opentelemetry.io/otel/attribute"
)

// Request-level observability flows through ObservabilityRecorder (see
// observability.go). The interfaces here cover the handler level:
// custom metrics and span interaction from inside a handler, reached
// through the Context methods of the same names.

// ContextMetricsRecorder records custom metrics emitted by handlers
// through Context.RecordMetric, Context.IncrementCounter, and
// Context.SetGauge.
type ContextMetricsRecorder interface {
	// RecordMetric records a value on the named histogram.
	RecordMetric(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue)

	// IncrementCounter increments the named counter.
	IncrementCounter(ctx context.Context, name string, attributes ...attribute.KeyValue)

	// SetGauge sets the named gauge.
	SetGauge(ctx context.Context, name string, value float64, attributes ...attribute.KeyValue)
}

// ContextTracingRecorder exposes the active trace to handlers through
// Context.TraceID, Context.SpanID, and friends.
type ContextTracingRecorder interface {
	// TraceID returns the active trace ID, or "" when tracing is off.
	TraceID() string

	// SpanID returns the active span ID, or "" when tracing is off.
	SpanID() string

	// SetSpanAttribute adds an attribute to the active span.
	SetSpanAttribute(key string, value any)

	// AddSpanEvent adds an event to the active span.
	AddSpanEvent(name string, attrs ...attribute.KeyValue)

	// TraceContext returns the context carrying the active trace, or
	// the request context when tracing is off.
	TraceContext() context.Context
}
