// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecution(t *testing.T) {
	t.Run("zero value", func(t *testing.T) {
		var e Execution
		assert.NotNil(t, e.Context())
		assert.False(t, e.Started())
		assert.False(t, e.Ended())
		assert.Equal(t, time.Duration(0), e.Duration())
		assert.NoError(t, e.Interruption(nil))
		assert.False(t, e.TimedOut())
	})
	t.Run("duration", func(t *testing.T) {
		e := Execution{Start: time.Now().Add(-time.Second)}
		assert.True(t, e.Started())
		assert.GreaterOrEqual(t, e.Duration(), time.Second)
		e.End = e.Start.Add(2 * time.Second)
		assert.True(t, e.Ended())
		assert.Equal(t, 2*time.Second, e.Duration())
	})
	t.Run("nil parent panics", func(t *testing.T) {
		assert.PanicsWithValue(t, nilCtxMsg, func() {
			//lint:ignore SA1012 testing nil context
			NewExecution(nil, "x", 0) //nolint:staticcheck
		})
	})
}

func TestExecution_Interruption(t *testing.T) {
	r, err := New("GET", "https://x", nil)
	require.NoError(t, err)

	t.Run("caller cancel", func(t *testing.T) {
		parent, cancelParent := context.WithCancel(context.Background())
		e, cancel := NewExecution(parent, "id", time.Hour)
		defer cancel()
		assert.Equal(t, "id", e.ID)
		cancelParent()
		err := e.Interruption(r)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCanceled)
		assert.False(t, e.TimedOut())
		re, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, "GET", re.Method)
		assert.Equal(t, "https://x", re.URL)
	})
	t.Run("timeout", func(t *testing.T) {
		e, cancel := NewExecution(context.Background(), "id", time.Millisecond)
		defer cancel()
		<-e.Context().Done()
		err := e.Interruption(r)
		assert.ErrorIs(t, err, ErrTimeout)
		assert.True(t, errors.Is(context.Cause(e.Context()), errTimeoutCause))
		assert.True(t, e.TimedOut())
		assert.True(t, TimedOutKey.Value(e.Bag()))
	})
	t.Run("caller deadline is a cancellation", func(t *testing.T) {
		parent, cancelParent := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancelParent()
		e, cancel := NewExecution(parent, "id", time.Hour)
		defer cancel()
		<-e.Context().Done()
		err := e.Interruption(r)
		assert.ErrorIs(t, err, ErrCanceled)
		assert.NotErrorIs(t, err, ErrTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, e.TimedOut())
	})
	t.Run("timeout flag set by another component", func(t *testing.T) {
		e, cancel := NewExecution(context.Background(), "id", 0)
		TimedOutKey.Set(e.Bag(), true)
		cancel()
		assert.ErrorIs(t, e.Interruption(r), ErrTimeout)
	})
	t.Run("not interrupted", func(t *testing.T) {
		e, cancel := NewExecution(context.Background(), "id", time.Hour)
		defer cancel()
		assert.NoError(t, e.Interruption(r))
	})
}
