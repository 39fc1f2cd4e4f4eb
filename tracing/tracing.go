// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package tracing provides an OpenTelemetry middleware which records a
// client span for every pass through the pipeline and propagates the
// trace context to the server in the request headers.
//
// Installed inside the retry middleware, the middleware records one
// span per attempt.
package tracing

import (
	"net/http"

	"github.com/gogama/pipex/pipeline"
	"github.com/gogama/pipex/request"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of the middleware's tracer.
const ScopeName = "github.com/gogama/pipex/tracing"

// Options configures a tracing middleware.
type Options struct {
	// TracerProvider creates the tracer. If nil, the global provider is
	// used.
	TracerProvider trace.TracerProvider
	// Propagator injects the trace context into request headers. If nil,
	// the global propagator is used.
	Propagator propagation.TextMapPropagator
	// SpanName names the span of a request. If nil, the span is named
	// after the request method, for example "HTTP GET".
	SpanName func(req *request.Request) string
}

// Middleware records client spans.
type Middleware struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	spanName   func(*request.Request) string
}

// New constructs a tracing middleware.
func New(opts Options) *Middleware {
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	prop := opts.Propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}
	name := opts.SpanName
	if name == nil {
		name = func(req *request.Request) string { return "HTTP " + req.Method }
	}
	return &Middleware{
		tracer:     tp.Tracer(ScopeName),
		propagator: prop,
		spanName:   name,
	}
}

// Handle implements pipeline.Middleware.
func (m *Middleware) Handle(req *request.Request, exec *request.Execution, next pipeline.Handler) (*request.Response, error) {
	ctx, span := m.tracer.Start(exec.Context(), m.spanName(req),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(req.Method),
			semconv.URLFull(req.URL),
			attribute.String("pipex.execution.id", exec.ID),
			attribute.Int("pipex.attempt", exec.Attempt),
		),
	)
	defer span.End()

	h := make(http.Header)
	m.propagator.Inject(ctx, propagation.HeaderCarrier(h))
	if len(h) > 0 {
		req = req.With(request.Overrides{Header: h})
	}

	resp, err := next.Handle(req, exec)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	} else {
		status = request.StatusCode(err)
	}
	if status != 0 {
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	}
	if err != nil {
		span.RecordError(err)
		if e, ok := request.AsError(err); ok {
			span.SetAttributes(attribute.String("error.type", e.Kind.String()))
		}
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}
