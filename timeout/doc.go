// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines flexible policies for setting the timeout of
// a logical request dispatched by a pipex client. A generic interface
// for timeout policies is provided, Policy, along with several useful
// policy generating functions and built-in policies.
//
// When the timeout elapses, the request's execution is cancelled and
// flagged as timed out, so the request fails with an error of kind
// request.KindTimeout rather than request.KindCanceled.
package timeout
