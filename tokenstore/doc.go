// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package tokenstore provides auth.TokenStore implementations: Memory,
// for a single process, and Redis, for a credential shared by several
// processes. FromJWT builds a token record whose expiry is read from a
// JWT's "exp" claim, which lets the auth middleware refresh JWTs
// proactively.
package tokenstore
