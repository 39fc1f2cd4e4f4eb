// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/gogama/pipex"
	"github.com/gogama/pipex/pipeline"
	"github.com/gogama/pipex/request"
	"github.com/gogama/pipex/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTracing() (*Middleware, *tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	m := New(Options{TracerProvider: tp, Propagator: propagation.TraceContext{}})
	return m, sr, tp.Tracer("test")
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestMiddleware(t *testing.T) {
	m, sr, tracer := newTracing()
	var traceparent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("Traceparent")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cl, err := pipex.New(pipex.Config{BaseURL: server.URL, HTTPDoer: server.Client()},
		pipex.PluginFunc(func(r *pipex.Registry) error {
			r.Use(m)
			return nil
		}))
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		ctx, parent := tracer.Start(context.Background(), "parent")
		_, err := cl.Get(ctx, "/ok")
		parent.End()
		require.NoError(t, err)

		spans := sr.Ended()
		require.Len(t, spans, 2)
		s := spans[0]
		assert.Equal(t, "HTTP GET", s.Name())
		assert.Equal(t, trace.SpanKindClient, s.SpanKind())
		assert.Equal(t, parent.SpanContext().SpanID(), s.Parent().SpanID())
		assert.Equal(t, codes.Unset, s.Status().Code)
		a := attrs(s)
		assert.Equal(t, "GET", a["http.request.method"].AsString())
		assert.Equal(t, "/ok", a["url.full"].AsString())
		assert.Equal(t, int64(200), a["http.response.status_code"].AsInt64())
		assert.Len(t, a["pipex.execution.id"].AsString(), 36)

		require.NotEmpty(t, traceparent)
		assert.Contains(t, traceparent, s.SpanContext().TraceID().String())
		assert.Contains(t, traceparent, s.SpanContext().SpanID().String())
	})
	t.Run("HTTP error", func(t *testing.T) {
		_, err := cl.Get(context.Background(), "/missing")
		require.Error(t, err)
		spans := sr.Ended()
		s := spans[len(spans)-1]
		assert.Equal(t, codes.Error, s.Status().Code)
		a := attrs(s)
		assert.Equal(t, int64(404), a["http.response.status_code"].AsInt64())
		assert.Equal(t, "http", a["error.type"].AsString())
		require.Len(t, s.Events(), 1)
		assert.Equal(t, "exception", s.Events()[0].Name)
	})
}

func TestMiddleware_SpanPerAttempt(t *testing.T) {
	m, sr, _ := newTracing()
	calls := 0
	terminal := pipeline.HandlerFunc(func(req *request.Request, _ *request.Execution) (*request.Response, error) {
		calls++
		if calls < 3 {
			return nil, &request.Error{Kind: request.KindNetwork, Err: syscall.ECONNRESET}
		}
		return &request.Response{StatusCode: 204}, nil
	})
	h := pipeline.Compose(terminal, retry.New(retry.Options{Retries: 3}), m)

	req, err := request.New("DELETE", "https://example.com/x", nil)
	require.NoError(t, err)
	exec, cancel := request.NewExecution(context.Background(), "exec-1", 0)
	defer cancel()
	_, err = h.Handle(req, exec)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 3)
	for i, s := range spans {
		a := attrs(s)
		assert.Equal(t, int64(i), a["pipex.attempt"].AsInt64())
		assert.Equal(t, "exec-1", a["pipex.execution.id"].AsString())
	}
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "network", attrs(spans[0])["error.type"].AsString())
	assert.Equal(t, codes.Unset, spans[2].Status().Code)
}

func TestMiddleware_SpanName(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	m := New(Options{
		TracerProvider: tp,
		SpanName:       func(req *request.Request) string { return req.Method + " " + req.URL },
	})
	req, err := request.New("GET", "/items", nil)
	require.NoError(t, err)
	exec, cancel := request.NewExecution(context.Background(), "id", 0)
	defer cancel()
	_, _ = m.Handle(req, exec, pipeline.HandlerFunc(func(*request.Request, *request.Execution) (*request.Response, error) {
		return &request.Response{StatusCode: 200}, nil
	}))
	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "GET /items", sr.Ended()[0].Name())
}
