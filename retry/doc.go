// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides the pipex retry middleware, together with
// flexible policies deciding whether to retry a failed attempt and how
// long to wait before retrying.
//
// A Middleware is constructed with New from Options naming a retry
// count, a decision-maker, Decider, and a wait time calculator, Waiter.
// Both Decider and Waiter have constructors for common use cases, so
// that a useful middleware can be quickly assembled:
//
//     mw := retry.New(retry.Options{
//         Retries: 3,
//         RetryOn: retry.Before(5 * time.Second).
//                      And(retry.StatusCode(500).Or(retry.TransientErr)),
//         Delay:   retry.NewExpWaiter(100*time.Millisecond, 2*time.Second, time.Now()),
//     })
//
// The retry count of an individual request can be overridden through
// its metadata:
//
//     r = r.With(request.Overrides{
//         Meta: map[string]interface{}{request.MetaRetry: retry.Override{Disable: true}},
//     })
//
// Because the retry middleware re-invokes the whole downstream pipeline
// on each attempt, middlewares registered after it (for example auth)
// run again for every retry.
package retry
