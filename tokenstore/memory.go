// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tokenstore

import (
	"context"
	"sync"

	"github.com/gogama/pipex/auth"
)

// Memory is an in-process token store. Its zero value is an empty
// store ready to use. Memory is safe for concurrent use by multiple
// goroutines.
type Memory struct {
	lock sync.RWMutex
	rec  *auth.TokenRecord
}

// NewMemory returns a store holding rec, or an empty store if rec is
// nil.
func NewMemory(rec *auth.TokenRecord) *Memory {
	m := &Memory{}
	if rec != nil {
		m.rec = copyRecord(rec)
	}
	return m
}

// Get returns a copy of the current record, or nil.
func (m *Memory) Get(_ context.Context) (*auth.TokenRecord, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.rec == nil {
		return nil, nil
	}
	return copyRecord(m.rec), nil
}

// Set replaces the current record.
func (m *Memory) Set(_ context.Context, rec auth.TokenRecord) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.rec = copyRecord(&rec)
	return nil
}

// Clear removes the current record.
func (m *Memory) Clear(_ context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.rec = nil
	return nil
}

func copyRecord(rec *auth.TokenRecord) *auth.TokenRecord {
	c := *rec
	if rec.Meta.Extra != nil {
		c.Meta.Extra = make(map[string]interface{}, len(rec.Meta.Extra))
		for k, v := range rec.Meta.Extra {
			c.Meta.Extra[k] = v
		}
	}
	return &c
}

var _ auth.TokenStore = (*Memory)(nil)
