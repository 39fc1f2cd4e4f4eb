// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"strings"
	"time"

	"github.com/gogama/pipex/request"
)

// A Policy defines a timeout policy which may be plugged into the
// pipex client to direct how to set the timeout of a logical request.
//
// The timeout covers the whole logical request, including every retry
// made by middlewares and every wait between retries.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout for the logical request r. A return
	// value of zero or less means no timeout.
	Timeout(r *request.Request) time.Duration
}

// PolicyFunc adapts an ordinary function to the Policy interface.
type PolicyFunc func(r *request.Request) time.Duration

// Timeout calls f(r).
func (f PolicyFunc) Timeout(r *request.Request) time.Duration {
	return f(r)
}

// DefaultPolicy is the default timeout policy. Requests have no
// timeout unless they set their own Timeout field.
var DefaultPolicy Policy = Fixed(0)

// Infinite is a built-in timeout policy which never times out, even if
// the request sets its own Timeout field.
var Infinite Policy = PolicyFunc(func(*request.Request) time.Duration { return 0 })

// Fixed constructs a timeout policy that uses the request's own Timeout
// field if it is positive, and d otherwise.
//
// Use Fixed to create the typical timeout behavior supported by most
// HTTP client software.
func Fixed(d time.Duration) Policy {
	return fixed(d)
}

type fixed time.Duration

func (d fixed) Timeout(r *request.Request) time.Duration {
	if r != nil && r.Timeout > 0 {
		return r.Timeout
	}
	return time.Duration(d)
}

// ByMethod constructs a timeout policy that chooses the timeout by HTTP
// method. Methods are matched case-insensitively. Requests whose method
// is not in byMethod, and requests which set their own Timeout field,
// are delegated to fallback.
//
// Consider the following timeout policy:
//
// 	p := ByMethod(Fixed(5*time.Second), map[string]time.Duration{
// 		"POST": 30 * time.Second,
// 	})
//
// The policy p gives POST requests 30 seconds and every other request
// 5 seconds.
func ByMethod(fallback Policy, byMethod map[string]time.Duration) Policy {
	if fallback == nil {
		panic("pipex/timeout: nil fallback")
	}
	m := make(map[string]time.Duration, len(byMethod))
	for k, v := range byMethod {
		m[strings.ToUpper(k)] = v
	}
	return &methodPolicy{fallback: fallback, m: m}
}

type methodPolicy struct {
	fallback Policy
	m        map[string]time.Duration
}

func (p *methodPolicy) Timeout(r *request.Request) time.Duration {
	if r != nil && r.Timeout <= 0 {
		if d, ok := p.m[strings.ToUpper(r.Method)]; ok {
			return d
		}
	}
	return p.fallback.Timeout(r)
}
