// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"time"

	"github.com/gogama/pipex/pipeline"
	"github.com/gogama/pipex/request"
	"go.uber.org/zap"
)

// DefaultRetries is the retry count used when Options.Retries is zero
// and no per-call override is present.
const DefaultRetries = 0

// An Override, stored in a request's metadata under
// request.MetaRetry, overrides the retry middleware's configuration
// for one logical request.
//
// The metadata value may also be a plain int (equivalent to
// Override{Retries: n}) or the bool false (equivalent to
// Override{Disable: true}).
type Override struct {
	// Retries replaces the configured retry count. Negative values
	// are treated as zero.
	Retries int
	// Disable turns retries off for the request. It takes precedence
	// over Retries.
	Disable bool
}

// A SleepFunc waits for d to elapse or ctx to be done, whichever comes
// first. It returns a non-nil error if ctx was done before d elapsed.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a retry middleware.
type Options struct {
	// Retries is the maximum number of retries after the initial
	// attempt. Negative values are treated as zero.
	Retries int
	// RetryOn decides whether a failed attempt is retried. If nil,
	// DefaultDecider is used.
	RetryOn Decider
	// Delay computes the wait before each retry. If nil, NoWait is
	// used.
	Delay Waiter
	// Budget optionally limits retries across all requests using the
	// middleware.
	Budget *Budget
	// Sleep waits between attempts. If nil, a timer-based sleep is
	// used. Tests may install a controllable clock here.
	Sleep SleepFunc
	// Logger receives debug logs about retries. If nil, nothing is
	// logged.
	Logger *zap.Logger
}

// Middleware is the retry middleware. On a failed attempt it consults
// its decider and, if a retry is warranted and the retry count has not
// been exhausted, waits and re-invokes the whole downstream pipeline.
//
// Attempt counting uses the execution's Attempt field, which the
// middleware increments immediately before each retry. When retries are
// exhausted, the error of the final attempt is returned unmodified.
// Cancellation errors are never retried, and a cancellation during the
// wait before a retry ends the request with the cancellation error.
type Middleware struct {
	retries int
	decider Decider
	waiter  Waiter
	budget  *Budget
	sleep   SleepFunc
	logger  *zap.Logger
}

// New constructs a retry middleware.
func New(opts Options) *Middleware {
	m := &Middleware{
		retries: opts.Retries,
		decider: opts.RetryOn,
		waiter:  opts.Delay,
		budget:  opts.Budget,
		sleep:   opts.Sleep,
		logger:  opts.Logger,
	}
	if m.retries < 0 {
		m.retries = 0
	}
	if m.decider == nil {
		m.decider = DefaultDecider
	}
	if m.waiter == nil {
		m.waiter = NoWait
	}
	if m.sleep == nil {
		m.sleep = Sleep
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.With(zap.String("component", "retry"))
	return m
}

// Handle implements pipeline.Middleware.
func (m *Middleware) Handle(req *request.Request, exec *request.Execution, next pipeline.Handler) (*request.Response, error) {
	retries := m.retriesFor(req)
	for n := 0; ; n++ {
		resp, err := next.Handle(req, exec)
		if err == nil {
			return resp, nil
		}
		if n >= retries || request.IsCancellation(err) || exec.Context().Err() != nil {
			return nil, err
		}
		if !m.decider.Decide(err, req, exec) {
			return nil, err
		}
		if m.budget != nil && !m.budget.Allow() {
			m.logger.Debug("retry budget exhausted",
				zap.String("id", exec.ID),
				zap.Int("attempt", exec.Attempt),
				zap.Error(err))
			return nil, err
		}

		exec.Attempt++
		d := m.waiter.Wait(err, req, exec)
		m.logger.Debug("retrying",
			zap.String("id", exec.ID),
			zap.String("method", req.Method),
			zap.String("url", req.URL),
			zap.Int("attempt", exec.Attempt),
			zap.Duration("delay", d),
			zap.Error(err))
		if d > 0 {
			if serr := m.sleep(exec.Context(), d); serr != nil {
				if ierr := exec.Interruption(req); ierr != nil {
					return nil, ierr
				}
				return nil, err
			}
		}
	}
}

func (m *Middleware) retriesFor(req *request.Request) int {
	n := m.retries
	switch o := req.MetaValue(request.MetaRetry).(type) {
	case int:
		n = o
	case bool:
		if !o {
			n = 0
		}
	case Override:
		n = o.Retries
		if o.Disable {
			n = 0
		}
	case *Override:
		if o != nil {
			n = o.Retries
			if o.Disable {
				n = 0
			}
		}
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Sleep is the default SleepFunc. It waits on a timer, returning early
// with ctx's error if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
