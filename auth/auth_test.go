// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogama/pipex/pipeline"
	"github.com/gogama/pipex/request"
	"github.com/gogama/pipex/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memStore struct {
	lock   sync.Mutex
	rec    *TokenRecord
	sets   int
	clears int
	err    error
}

func (s *memStore) Get(context.Context) (*TokenRecord, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.rec == nil {
		return nil, nil
	}
	rec := *s.rec
	return &rec, nil
}

func (s *memStore) Set(_ context.Context, rec TokenRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.sets++
	s.rec = &rec
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.clears++
	s.rec = nil
	return nil
}

func (s *memStore) token() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return token(s.rec)
}

func unauthorized(req *request.Request) error {
	return &request.Error{
		Kind:     request.KindHTTP,
		Method:   req.Method,
		URL:      req.URL,
		Response: &request.Response{StatusCode: 401},
	}
}

// server accepts only the given credential header value.
func server(accept string, calls *int32) pipeline.HandlerFunc {
	return func(req *request.Request, _ *request.Execution) (*request.Response, error) {
		atomic.AddInt32(calls, 1)
		if req.Header.Get("Authorization") != accept {
			return nil, unauthorized(req)
		}
		return &request.Response{StatusCode: 200, Data: req.Header.Get("Authorization")}, nil
	}
}

func newReq(t require.TestingT) *request.Request {
	r, err := request.New("GET", "https://api.test/me", nil)
	require.NoError(t, err)
	return r
}

func newExec(t *testing.T, parent context.Context) *request.Execution {
	exec, cancel := request.NewExecution(parent, "id", 0)
	t.Cleanup(cancel)
	return exec
}

func refreshTo(tok string, count *int32) RefreshFunc {
	return func(context.Context) (TokenRecord, error) {
		atomic.AddInt32(count, 1)
		return TokenRecord{Token: tok}, nil
	}
}

func TestNew(t *testing.T) {
	var n int32
	_, err := New(Options{Refresh: refreshTo("x", &n)})
	assert.EqualError(t, err, "pipex/auth: nil token store")
	_, err = New(Options{Store: &memStore{}})
	assert.Same(t, ErrNoRefresh, err)
	m, err := New(Options{Store: &memStore{}, Refresh: refreshTo("x", &n), Header: "x-api-key"})
	require.NoError(t, err)
	assert.Equal(t, "X-Api-Key", m.header)
	assert.Equal(t, DefaultMaxRetry, m.maxRetry)
	m, err = New(Options{Store: &memStore{}, Refresh: refreshTo("x", &n), MaxRetry: -1})
	require.NoError(t, err)
	assert.Equal(t, 0, m.maxRetry)
}

func TestMiddleware_Attach(t *testing.T) {
	var refreshes, calls int32
	t.Run("bearer", func(t *testing.T) {
		store := &memStore{rec: &TokenRecord{Token: "abc"}}
		m, err := New(Options{Store: store, Refresh: refreshTo("x", &refreshes)})
		require.NoError(t, err)
		req := newReq(t)
		resp, err := m.Handle(req, newExec(t, context.Background()), server("Bearer abc", &calls))
		require.NoError(t, err)
		assert.Equal(t, "Bearer abc", resp.Data)
		assert.Empty(t, req.Header.Get("Authorization"), "request not mutated")
	})
	t.Run("custom header and format", func(t *testing.T) {
		store := &memStore{rec: &TokenRecord{Token: "abc"}}
		m, err := New(Options{
			Store:   store,
			Refresh: refreshTo("x", &refreshes),
			Header:  "X-Api-Key",
			Format:  func(tok string) string { return "key=" + tok },
		})
		require.NoError(t, err)
		var seen string
		_, err = m.Handle(newReq(t), newExec(t, context.Background()), pipeline.HandlerFunc(
			func(req *request.Request, _ *request.Execution) (*request.Response, error) {
				seen = req.Header.Get("X-Api-Key")
				return &request.Response{StatusCode: 200}, nil
			}))
		require.NoError(t, err)
		assert.Equal(t, "key=abc", seen)
	})
	t.Run("no token", func(t *testing.T) {
		m, err := New(Options{Store: &memStore{}, Refresh: refreshTo("x", &refreshes)})
		require.NoError(t, err)
		var present bool
		_, err = m.Handle(newReq(t), newExec(t, context.Background()), pipeline.HandlerFunc(
			func(req *request.Request, _ *request.Execution) (*request.Response, error) {
				_, present = req.Header["Authorization"]
				return &request.Response{StatusCode: 200}, nil
			}))
		require.NoError(t, err)
		assert.False(t, present)
	})
	t.Run("store error", func(t *testing.T) {
		boom := errors.New("store down")
		m, err := New(Options{Store: &memStore{err: boom}, Refresh: refreshTo("x", &refreshes)})
		require.NoError(t, err)
		_, err = m.Handle(newReq(t), newExec(t, context.Background()), server("", &calls))
		assert.Same(t, boom, err)
	})
	assert.Equal(t, int32(0), refreshes)
}

// Three concurrent requests each rejected once share a single slow
// refresh and all succeed with the refreshed credential.
func TestMiddleware_SingleFlight(t *testing.T) {
	store := &memStore{rec: &TokenRecord{Token: "old"}}
	var refreshes, calls int32
	var rejected sync.WaitGroup
	rejected.Add(3)
	m, err := New(Options{
		Store: store,
		Refresh: func(context.Context) (TokenRecord, error) {
			atomic.AddInt32(&refreshes, 1)
			rejected.Wait()
			time.Sleep(20 * time.Millisecond)
			return TokenRecord{Token: "new"}, nil
		},
	})
	require.NoError(t, err)

	var once [3]sync.Once
	downstream := func(i int) pipeline.HandlerFunc {
		return func(req *request.Request, _ *request.Execution) (*request.Response, error) {
			atomic.AddInt32(&calls, 1)
			if req.Header.Get("Authorization") != "Bearer new" {
				once[i].Do(rejected.Done)
				return nil, unauthorized(req)
			}
			return &request.Response{StatusCode: 200, Data: req.Header.Get("Authorization")}, nil
		}
	}

	var wg sync.WaitGroup
	results := make([]*request.Response, 3)
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			exec, cancel := request.NewExecution(context.Background(), "id", 0)
			defer cancel()
			results[i], errs[i] = m.Handle(newReq(t), exec, downstream(i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
	for i := 0; i < 3; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "Bearer new", results[i].Data)
	}
	assert.Equal(t, "new", store.token())
}

func TestMiddleware_MaxRetry(t *testing.T) {
	store := &memStore{rec: &TokenRecord{Token: "old"}}
	var refreshes, calls int32
	m, err := New(Options{Store: store, Refresh: refreshTo("still-bad", &refreshes)})
	require.NoError(t, err)
	exec := newExec(t, context.Background())
	_, err = m.Handle(newReq(t), exec, server("never", &calls))
	assert.ErrorIs(t, err, request.ErrHTTP)
	assert.Equal(t, 401, request.StatusCode(err))
	assert.Equal(t, int32(1), refreshes)
	assert.Equal(t, int32(2), calls)
	assert.Equal(t, 1, RefreshCountKey.Value(exec.Bag()))

	t.Run("disabled", func(t *testing.T) {
		var refreshes, calls int32
		m, err := New(Options{Store: store, Refresh: refreshTo("x", &refreshes), MaxRetry: -1})
		require.NoError(t, err)
		_, err = m.Handle(newReq(t), newExec(t, context.Background()), server("never", &calls))
		assert.ErrorIs(t, err, request.ErrHTTP)
		assert.Equal(t, int32(0), refreshes)
		assert.Equal(t, int32(1), calls)
	})
}

func TestMiddleware_RefreshFailure(t *testing.T) {
	boom := errors.New("refresh rejected")
	store := &memStore{rec: &TokenRecord{Token: "old"}}
	var failures []error
	core, logs := observer.New(zap.WarnLevel)
	m, err := New(Options{
		Store:     store,
		Refresh:   func(context.Context) (TokenRecord, error) { return TokenRecord{}, boom },
		OnFailure: func(err error) { failures = append(failures, err) },
		Logger:    zap.New(core),
	})
	require.NoError(t, err)
	var calls int32
	_, err = m.Handle(newReq(t), newExec(t, context.Background()), server("Bearer new", &calls))
	assert.Equal(t, 401, request.StatusCode(err), "triggering error propagates")
	assert.NotErrorIs(t, err, boom)
	assert.Equal(t, []error{boom}, failures)
	assert.Equal(t, 1, store.clears)
	assert.Empty(t, store.token())
	assert.Equal(t, 1, logs.FilterMessage("token refresh failed").Len())
}

func TestMiddleware_Proactive(t *testing.T) {
	now := time.Unix(1000, 0)
	t.Run("refresh within lookahead", func(t *testing.T) {
		store := &memStore{rec: &TokenRecord{Token: "old", Meta: TokenMeta{ExpiresAt: now.Add(10 * time.Second)}}}
		var refreshes, calls int32
		m, err := New(Options{Store: store, Refresh: refreshTo("new", &refreshes), Lookahead: 30 * time.Second})
		require.NoError(t, err)
		m.now = func() time.Time { return now }
		resp, err := m.Handle(newReq(t), newExec(t, context.Background()), server("Bearer new", &calls))
		require.NoError(t, err)
		assert.Equal(t, "Bearer new", resp.Data)
		assert.Equal(t, int32(1), refreshes)
		assert.Equal(t, int32(1), calls)
	})
	t.Run("outside lookahead", func(t *testing.T) {
		store := &memStore{rec: &TokenRecord{Token: "old", Meta: TokenMeta{ExpiresAt: now.Add(time.Hour)}}}
		var refreshes, calls int32
		m, err := New(Options{Store: store, Refresh: refreshTo("new", &refreshes), Lookahead: 30 * time.Second})
		require.NoError(t, err)
		m.now = func() time.Time { return now }
		_, err = m.Handle(newReq(t), newExec(t, context.Background()), server("Bearer old", &calls))
		require.NoError(t, err)
		assert.Equal(t, int32(0), refreshes)
	})
	t.Run("failure returns refresh error", func(t *testing.T) {
		boom := errors.New("boom")
		store := &memStore{rec: &TokenRecord{Token: "old", Meta: TokenMeta{ExpiresAt: now}}}
		var failed error
		m, err := New(Options{
			Store:     store,
			Refresh:   func(context.Context) (TokenRecord, error) { return TokenRecord{}, boom },
			OnFailure: func(err error) { failed = err },
		})
		require.NoError(t, err)
		m.now = func() time.Time { return now }
		var calls int32
		_, err = m.Handle(newReq(t), newExec(t, context.Background()), server("Bearer old", &calls))
		assert.Same(t, boom, err)
		assert.Same(t, boom, failed)
		assert.Equal(t, int32(0), calls)
		assert.Equal(t, 1, store.clears)
	})
}

func TestMiddleware_ReplacedToken(t *testing.T) {
	store := &memStore{rec: &TokenRecord{Token: "old"}}
	var refreshes, calls int32
	m, err := New(Options{Store: store, Refresh: refreshTo("refreshed", &refreshes)})
	require.NoError(t, err)
	downstream := pipeline.HandlerFunc(func(req *request.Request, exec *request.Execution) (*request.Response, error) {
		if req.Header.Get("Authorization") == "Bearer old" {
			// Another request replaced the token in the meantime.
			_ = store.Set(context.Background(), TokenRecord{Token: "other"})
			return nil, unauthorized(req)
		}
		return server("Bearer other", &calls)(req, exec)
	})
	resp, err := m.Handle(newReq(t), newExec(t, context.Background()), downstream)
	require.NoError(t, err)
	assert.Equal(t, "Bearer other", resp.Data)
	assert.Equal(t, int32(0), refreshes)
}

func TestMiddleware_CancelWhileWaiting(t *testing.T) {
	store := &memStore{rec: &TokenRecord{Token: "old"}}
	release := make(chan struct{})
	done := make(chan struct{})
	m, err := New(Options{
		Store: store,
		Refresh: func(ctx context.Context) (TokenRecord, error) {
			defer close(done)
			<-release
			return TokenRecord{Token: "new"}, ctx.Err()
		},
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	exec := newExec(t, ctx)
	var calls int32
	downstream := pipeline.HandlerFunc(func(req *request.Request, exec *request.Execution) (*request.Response, error) {
		time.AfterFunc(10*time.Millisecond, cancel)
		return server("Bearer new", &calls)(req, exec)
	})
	_, err = m.Handle(newReq(t), exec, downstream)
	assert.ErrorIs(t, err, request.ErrCanceled)

	close(release)
	<-done
	assert.Eventually(t, func() bool { return store.token() == "new" }, time.Second, time.Millisecond,
		"refresh detached from the cancelled caller")
}

func TestMiddleware_RefreshTimeout(t *testing.T) {
	store := &memStore{rec: &TokenRecord{Token: "old"}}
	var failed error
	m, err := New(Options{
		Store: store,
		Refresh: func(ctx context.Context) (TokenRecord, error) {
			<-ctx.Done()
			return TokenRecord{}, ctx.Err()
		},
		RefreshTimeout: 10 * time.Millisecond,
		OnFailure:      func(err error) { failed = err },
	})
	require.NoError(t, err)
	var calls int32
	_, err = m.Handle(newReq(t), newExec(t, context.Background()), server("Bearer new", &calls))
	assert.Equal(t, 401, request.StatusCode(err))
	assert.ErrorIs(t, failed, context.DeadlineExceeded)
}

func TestMiddleware_ShouldRefresh(t *testing.T) {
	store := &memStore{rec: &TokenRecord{Token: "old"}}
	var refreshes int32
	m, err := New(Options{
		Store:   store,
		Refresh: refreshTo("new", &refreshes),
		ShouldRefresh: func(err error, _ *request.Request, _ *request.Execution) bool {
			return request.StatusCode(err) == 403
		},
	})
	require.NoError(t, err)
	forbidden := pipeline.HandlerFunc(func(req *request.Request, _ *request.Execution) (*request.Response, error) {
		if req.Header.Get("Authorization") == "Bearer new" {
			return &request.Response{StatusCode: 200}, nil
		}
		return nil, &request.Error{Kind: request.KindHTTP, Response: &request.Response{StatusCode: 403}}
	})
	_, err = m.Handle(newReq(t), newExec(t, context.Background()), forbidden)
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshes)

	var calls int32
	_, err = m.Handle(newReq(t), newExec(t, context.Background()), server("nope", &calls))
	assert.Equal(t, 401, request.StatusCode(err), "401 no longer triggers a refresh")
	assert.Equal(t, int32(1), refreshes)
}

// The refresh counter lives in the execution's bag, so a retry
// middleware re-running auth does not reset it.
func TestMiddleware_WithRetry(t *testing.T) {
	store := &memStore{rec: &TokenRecord{Token: "old"}}
	var refreshes, calls int32
	m, err := New(Options{Store: store, Refresh: refreshTo("bad", &refreshes)})
	require.NoError(t, err)
	r := retry.New(retry.Options{
		Retries: 2,
		RetryOn: retry.StatusCode(401),
	})
	h := pipeline.Compose(server("never", &calls), r, m)
	_, err = h.Handle(newReq(t), newExec(t, context.Background()))
	assert.Equal(t, 401, request.StatusCode(err))
	assert.Equal(t, int32(1), refreshes)
	assert.Equal(t, int32(4), calls)
}

func TestTokenMeta_ExpiresAtMillis(t *testing.T) {
	assert.Equal(t, int64(0), TokenMeta{}.ExpiresAtMillis())
	assert.Equal(t, int64(1500), TokenMeta{ExpiresAt: time.Unix(1, 500*int64(time.Millisecond))}.ExpiresAtMillis())
}
