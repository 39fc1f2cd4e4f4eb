// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/pipex/request"
	"github.com/gogama/pipex/transient"
)

// A Decider decides if a failed attempt should be retried.
//
// The retry middleware only consults its Decider while the retry count
// has not been exhausted, and never for cancellation errors, so
// deciders need not check for either condition.
//
// Implementations of Decider must be safe for concurrent use by
// multiple goroutines.
//
// Use the built-in constructors Times, StatusCode, and Before, and the
// built-in decider TransientErr; or implement your Decider. Use
// DeciderFunc to convert an ordinary function into a Decider, and to
// compose deciders logically using DeciderFunc.And and DeciderFunc.Or.
type Decider interface {
	Decide(err error, req *request.Request, exec *request.Execution) bool
}

// The DeciderFunc type is an adapter to allow the use of ordinary
// functions as retry deciders. It implements the Decider interface, and
// also provides the logical composition methods And and Or.
//
// Every DeciderFunc must be safe for concurrent use by multiple
// goroutines.
type DeciderFunc func(err error, req *request.Request, exec *request.Execution) bool

// DefaultDecider is a general-purpose retry decider suitable for
// common use cases. It will retry in the case of a transient error
// (TransientErr), which includes an HTTP response with one of the
// following status codes: 429 (Too Many Requests); 502 (Bad Gateway);
// 503 (Service Unavailable); or 504 (Gateway Timeout).
var DefaultDecider DeciderFunc = StatusCode(429, 502, 503, 504).Or(TransientErr)

// TransientErr is a decider that indicates a retry if the error is
// transient according to transient.Categorize.
var TransientErr DeciderFunc = transientErr

// Decide returns true if a retry should be done, and false otherwise.
func (f DeciderFunc) Decide(err error, req *request.Request, exec *request.Execution) bool {
	return f(err, req, exec)
}

// And composes two retry deciders into a new decider which returns true
// if both sub-deciders return true, and false otherwise.
//
// Short-circuit logic is used, so g will not be evaluated if f returns
// false.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(err error, req *request.Request, exec *request.Execution) bool {
		return f(err, req, exec) && g(err, req, exec)
	}
}

// Or composes two retry deciders into a new decider which returns
// true if either of the two sub-deciders returns true, but false if
// they both return false.
//
// Short-circuit logic is used, so g will not be evaluated if f returns
// true.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(err error, req *request.Request, exec *request.Execution) bool {
		return f(err, req, exec) || g(err, req, exec)
	}
}

// Times constructs a retry decider which allows retries while the
// execution attempt index exec.Attempt is less than n.
func Times(n int) DeciderFunc {
	return func(_ error, _ *request.Request, exec *request.Execution) bool {
		return exec.Attempt < n
	}
}

// Before constructs a retry decider allowing retries until a certain
// amount of time has elapsed since the start of the logical request.
// The returned decider returns true while the execution duration is
// less than d, and false afterward.
func Before(d time.Duration) DeciderFunc {
	return func(_ error, _ *request.Request, exec *request.Execution) bool {
		return exec.Duration() < d
	}
}

// StatusCode constructs a retry decider allowing retries based on the
// HTTP response status code. If the error is an HTTP error whose status
// code is contained in the list ss, the decider returns true.
// Otherwise, it returns false.
func StatusCode(ss ...int) DeciderFunc {
	ss2 := make([]int, len(ss))
	copy(ss2, ss)
	return func(err error, _ *request.Request, _ *request.Execution) bool {
		sc := request.StatusCode(err)
		for _, s := range ss2 {
			if sc == s {
				return true
			}
		}
		return false
	}
}

// Methods constructs a retry decider allowing retries only for the
// given HTTP methods. Compose it with other deciders to restrict retries
// to idempotent requests:
//
// 	retry.Methods("GET", "HEAD", "PUT", "DELETE").And(retry.DefaultDecider)
func Methods(methods ...string) DeciderFunc {
	m := make(map[string]bool, len(methods))
	for _, method := range methods {
		m[method] = true
	}
	return func(_ error, req *request.Request, _ *request.Execution) bool {
		return m[req.Method]
	}
}

func transientErr(err error, _ *request.Request, _ *request.Execution) bool {
	return transient.Categorize(err) != transient.Not
}
