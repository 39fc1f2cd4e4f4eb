// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the value types which flow through a pipex
pipeline: Request and Response (immutable, copy-on-write), Execution
(the per-call record holding the attempt counter, timing, cancellation
signal and Bag), and Error (the classified failure type).

Create a request and dispatch it with a client:

	r, err := request.NewWithContext(ctx, "POST", "/users", user)
	...
	resp, err := client.Do(r)
	...

Requests are never modified in place. Middlewares derive changed copies:

	r2 := r.With(request.Overrides{
		Header: http.Header{"Authorization": {"Bearer " + token}},
	})

A header, query or metadata key mapped to nil in the overrides removes
the key from the derived request.

Middlewares exchange per-call data through the execution's Bag using
typed keys:

	var startKey = request.NewKey[time.Time]("my-start")
	...
	startKey.Set(exec.Bag(), time.Now())
	t, ok := startKey.Get(exec.Bag())

Errors are classified by Kind and can be tested with errors.Is against
the sentinels ErrHTTP, ErrNetwork, ErrTimeout, ErrCanceled, ErrConfig,
ErrSerialize and ErrDecode.
*/
package request
