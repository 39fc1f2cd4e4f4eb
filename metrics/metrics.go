// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics provides a plugin which records Prometheus metrics
// about the requests made by a pipex client.
//
// The following metrics are recorded, each prefixed with the configured
// namespace and subsystem:
//
//	requests_total            counter   {method, outcome, status}
//	request_duration_seconds  histogram {method, outcome}
//	request_attempts          histogram {method}
//	requests_in_flight        gauge
//
// The outcome label is the name of the terminal event: "end", "error"
// or "abort". The status label is the HTTP status code, or "none" if
// the request did not receive a response.
package metrics

import (
	"strconv"
	"strings"

	"github.com/gogama/pipex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace is the namespace used when Options.Namespace is
// empty.
const DefaultNamespace = "pipex"

// Options configures a Collector.
type Options struct {
	Namespace string
	Subsystem string
	// Registerer receives the collector's metrics. If nil,
	// prometheus.DefaultRegisterer is used.
	Registerer prometheus.Registerer
	// Buckets are the request duration histogram buckets. If nil,
	// prometheus.DefBuckets is used.
	Buckets []float64
}

// Collector records client metrics. It is a pipex.Plugin and may be
// applied to several clients, which then share its metrics.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	attempts *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// New creates a collector and registers its metrics. It panics if the
// metrics are already registered with the registerer, like
// prometheus.MustRegister.
func New(opts Options) *Collector {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := opts.Buckets
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	factory := promauto.With(reg)
	return &Collector{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of logical requests by outcome",
			},
			[]string{"method", "outcome", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Logical request duration in seconds, including retries",
				Buckets:   buckets,
			},
			[]string{"method", "outcome"},
		),
		attempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "request_attempts",
				Help:      "Number of attempts made per logical request",
				Buckets:   []float64{1, 2, 3, 5, 8},
			},
			[]string{"method"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "requests_in_flight",
				Help:      "Number of logical requests currently being dispatched",
			},
		),
	}
}

// Apply implements pipex.Plugin.
func (c *Collector) Apply(r *pipex.Registry) error {
	for _, evt := range pipex.Events() {
		r.On(evt, c)
	}
	return nil
}

// Handle implements pipex.Listener.
func (c *Collector) Handle(evt pipex.Event, info *pipex.EventInfo) {
	if evt == pipex.Start {
		c.inFlight.Inc()
		return
	}
	c.inFlight.Dec()

	method := ""
	if info.Request != nil {
		method = info.Request.Method
	}
	status := "none"
	if info.Response != nil {
		status = strconv.Itoa(info.Response.StatusCode)
	}
	outcome := strings.ToLower(evt.Name())
	c.requests.WithLabelValues(method, outcome, status).Inc()
	c.duration.WithLabelValues(method, outcome).Observe(info.Duration.Seconds())
	c.attempts.WithLabelValues(method).Observe(float64(info.Attempt + 1))
}
