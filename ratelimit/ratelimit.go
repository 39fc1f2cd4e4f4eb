// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package ratelimit provides a middleware which limits the rate at
// which requests pass through a pipeline, using token-bucket limiters
// from golang.org/x/time/rate.
//
// The middleware limits every pass through it. Installed after (inside)
// the retry middleware it limits individual attempts; installed before
// it, it limits logical requests.
package ratelimit

import (
	"net/url"
	"sync"
	"time"

	"github.com/gogama/pipex/pipeline"
	"github.com/gogama/pipex/request"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures a rate limiting middleware.
type Options struct {
	// Limit is the sustained number of requests per second.
	Limit rate.Limit
	// Burst is the bucket size. If zero, it is one.
	Burst int
	// PerHost gives every target host its own limiter. Requests whose
	// URL has no host (relative URLs) share one limiter.
	PerHost bool
	// Logger receives debug logs about waits. If nil, nothing is logged.
	Logger *zap.Logger
}

// Middleware delays requests so that they do not exceed a rate.
type Middleware struct {
	limit   rate.Limit
	burst   int
	perHost bool
	logger  *zap.Logger

	lock     sync.Mutex
	limiters map[string]*rate.Limiter
}

// New constructs a rate limiting middleware.
func New(opts Options) *Middleware {
	if opts.Limit <= 0 {
		panic("pipex/ratelimit: Limit must be positive")
	}
	m := &Middleware{
		limit:    opts.Limit,
		burst:    opts.Burst,
		perHost:  opts.PerHost,
		logger:   opts.Logger,
		limiters: make(map[string]*rate.Limiter),
	}
	if m.burst <= 0 {
		m.burst = 1
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.With(zap.String("component", "ratelimit"))
	return m
}

// Every converts a minimum interval between requests to a rate.Limit.
func Every(interval time.Duration) rate.Limit {
	return rate.Every(interval)
}

// Handle implements pipeline.Middleware. It waits for the limiter,
// observing the execution's cancellation signal. A wait which cannot
// finish before the execution's deadline fails immediately with a
// timeout error.
func (m *Middleware) Handle(req *request.Request, exec *request.Execution, next pipeline.Handler) (*request.Response, error) {
	l := m.limiter(req)
	if !l.Allow() {
		m.logger.Debug("waiting for rate limiter", zap.String("id", exec.ID))
		if err := l.Wait(exec.Context()); err != nil {
			if ierr := exec.Interruption(req); ierr != nil {
				return nil, ierr
			}
			return nil, &request.Error{
				Kind:   request.KindTimeout,
				Method: req.Method,
				URL:    req.URL,
				Err:    err,
			}
		}
	}
	return next.Handle(req, exec)
}

func (m *Middleware) limiter(req *request.Request) *rate.Limiter {
	key := ""
	if m.perHost {
		if u, err := url.Parse(req.URL); err == nil {
			key = u.Host
		}
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	l, ok := m.limiters[key]
	if !ok {
		l = rate.NewLimiter(m.limit, m.burst)
		m.limiters[key] = l
	}
	return l
}
