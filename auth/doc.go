// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package auth provides a pipex middleware attaching a credential to
// outgoing requests and refreshing it when it expires.
//
// The credential lives in a TokenStore. The middleware refreshes it
// proactively, before dispatch, when it expires within a lookahead
// window, and reactively, after a downstream error classified as a
// credential failure (HTTP 401 by default). Concurrent refreshes are
// coalesced into a single call of the refresh function.
//
//     store := tokenstore.NewMemory(nil)
//     mw, err := auth.New(auth.Options{
//         Store:     store,
//         Refresh:   login,
//         Lookahead: 30 * time.Second,
//     })
//
// Register the auth middleware after the retry middleware so that each
// retry presents the current credential.
package auth
