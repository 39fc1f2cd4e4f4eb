// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"time"
)

// TokenMeta is the metadata of a credential.
type TokenMeta struct {
	// ExpiresAt is the expiry time of the token. The zero value means
	// the expiry is unknown, in which case the token is never refreshed
	// proactively.
	ExpiresAt time.Time `json:"expiresAt"`
	// Extra holds arbitrary extension fields.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// ExpiresAtMillis returns the expiry as milliseconds since the Unix
// epoch, or zero if the expiry is unknown.
func (m TokenMeta) ExpiresAtMillis() int64 {
	if m.ExpiresAt.IsZero() {
		return 0
	}
	return m.ExpiresAt.UnixMilli()
}

// TokenRecord is a credential together with its metadata.
type TokenRecord struct {
	Token string    `json:"token"`
	Meta  TokenMeta `json:"meta"`
}

// A TokenStore holds the current credential. Implementations must be
// safe for concurrent use by multiple goroutines.
//
// Package tokenstore provides in-memory and Redis implementations.
type TokenStore interface {
	// Get returns the current token record, or nil if there is none.
	Get(ctx context.Context) (*TokenRecord, error)
	// Set replaces the current token record.
	Set(ctx context.Context, rec TokenRecord) error
	// Clear removes the current token record.
	Clear(ctx context.Context) error
}

// A RefreshFunc obtains a new credential. It must not dispatch through
// a client whose auth middleware would classify the refresh request
// itself as needing a refresh, or refreshing recurses.
type RefreshFunc func(ctx context.Context) (TokenRecord, error)
