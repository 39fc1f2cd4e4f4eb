// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gogama/pipex/request"
)

// A Waiter specifies how long to wait before retrying a failed attempt.
//
// The retry middleware increments exec.Attempt before calling Wait, so
// exec.Attempt is 1 when computing the wait before the first retry, 2
// before the second, and so on. A zero or negative duration means no
// wait.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
type Waiter interface {
	Wait(err error, req *request.Request, exec *request.Execution) time.Duration
}

// WaiterFunc adapts an ordinary function to the Waiter interface.
type WaiterFunc func(err error, req *request.Request, exec *request.Execution) time.Duration

// Wait calls f(err, req, exec).
func (f WaiterFunc) Wait(err error, req *request.Request, exec *request.Execution) time.Duration {
	return f(err, req, exec)
}

// DefaultWaiter is the default retry wait policy. It uses a jittered
// exponential backoff formula with a base wait of 50 milliseconds and a
// maximum wait of 1 second.
var DefaultWaiter = NewExpWaiter(50*time.Millisecond, 1*time.Second, time.Now())

// NoWait is a Waiter that never waits.
var NoWait = NewFixedWaiter(0)

// NewFixedWaiter constructs a Waiter that always returns the given
// duration.
//
// Use NewFixedWaiter to obtain a constant retry backoff.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(_ error, _ *request.Request, _ *request.Execution) time.Duration {
	return time.Duration(w)
}

// NewLinearWaiter constructs a Waiter which waits step times the
// attempt number: step before the first retry, 2*step before the
// second, and so on.
func NewLinearWaiter(step time.Duration) Waiter {
	return WaiterFunc(func(_ error, _ *request.Request, exec *request.Execution) time.Duration {
		return time.Duration(exec.Attempt) * step
	})
}

// NewExpWaiter constructs a Waiter implementing an exponential backoff
// formula with optional jitter.
//
// The formula implemented is the "Full Jitter" approach described in:
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
//
// Parameters base and max control the exponential calculation of the
// ceiling:
//
//	ceil := min(base * 2**(attempt-1), max)
//
// Base and max must be positive values, and max must be at least equal
// to base.
//
// Parameter jitter is used to generate a random number between 0 and
// ceil. To make a waiter that does not jitter and simply returns
// ceil on each attempt, pass nil for jitter. Otherwise you may specify
// either a random number generator seed value (as a time.Time, int, or
// int64) or a random number generator (as a rand.Source). If a seed
// value is specified, it is used to seed a random number generator
// for calculating jitter. If a rand.Source is specified, it is used to
// calculate jitter.
func NewExpWaiter(base, max time.Duration, jitter interface{}) Waiter {
	if base < 1 {
		panic("pipex/retry: base must be positive")
	}
	if max < base {
		panic("pipex/retry: max must be at least base")
	}
	r := jitterToRand(jitter)
	return &jitterExpWaiter{
		base: base,
		max:  max,
		rand: r,
	}
}

type jitterExpWaiter struct {
	base time.Duration
	max  time.Duration
	rand *rand.Rand
	lock sync.Mutex
}

func (w *jitterExpWaiter) Wait(_ error, _ *request.Request, exec *request.Execution) time.Duration {
	shift := exec.Attempt - 1
	if shift < 0 {
		shift = 0
	}
	var exp int64
	if shift < 63 {
		exp = int64(1) << shift
	} else {
		exp = 1<<63 - 1
	}
	ceil := int64(w.base) * exp
	if ceil/exp != int64(w.base) || ceil < int64(w.base) || int64(w.max) < ceil {
		ceil = int64(w.max)
	}
	duration := ceil
	if ceil > 0 {
		w.lock.Lock()
		defer w.lock.Unlock()
		if w.rand != nil {
			duration = w.rand.Int63n(ceil)
		}
	}
	return time.Duration(duration)
}

func jitterToRand(jitter interface{}) *rand.Rand {
	var s rand.Source
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("pipex/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("pipex/retry: invalid jitter type")
	}
	return rand.New(s)
}
