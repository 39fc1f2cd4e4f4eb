// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gogama/pipex/pipeline"
	"github.com/gogama/pipex/request"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxRetry is the number of reactive refreshes allowed per
// logical request when Options.MaxRetry is zero.
const DefaultMaxRetry = 1

// DefaultHeader is the header the credential is attached to when
// Options.Header is empty.
const DefaultHeader = "Authorization"

// RefreshCountKey counts the reactive refreshes performed for one
// logical request. It is distinct from the retry middleware's attempt
// counter.
var RefreshCountKey = request.NewKey[int]("auth.refresh-count")

// ErrNoRefresh is returned by New when Options.Refresh is nil.
var ErrNoRefresh = errors.New("pipex/auth: nil refresh function")

const flightKey = "refresh"

// Options configures an auth middleware.
type Options struct {
	// Store holds the current credential. Required.
	Store TokenStore
	// Refresh obtains a new credential. Required.
	Refresh RefreshFunc
	// ShouldRefresh classifies a downstream error as a credential
	// failure. If nil, HTTP 401 errors are credential failures.
	//
	// Requests to the refresh endpoint itself must be excluded here if
	// they are dispatched through the same pipeline.
	ShouldRefresh func(err error, req *request.Request, exec *request.Execution) bool
	// MaxRetry is the number of reactive refreshes allowed per logical
	// request. Zero means DefaultMaxRetry. A negative value disables
	// reactive refresh.
	MaxRetry int
	// Lookahead is the proactive refresh window: a token expiring
	// within Lookahead of now is refreshed before the request is sent.
	Lookahead time.Duration
	// Header is the request header carrying the credential. If empty,
	// DefaultHeader is used.
	Header string
	// Format renders the header value from the token. If nil, the
	// value is "Bearer " followed by the token.
	Format func(token string) string
	// OnFailure is invoked with the error of each failed refresh.
	OnFailure func(err error)
	// RefreshTimeout bounds each refresh call. Zero means no bound
	// other than the refresh function's own.
	RefreshTimeout time.Duration
	// Logger receives debug logs about refreshes. If nil, nothing is
	// logged.
	Logger *zap.Logger
}

// Middleware is the auth middleware. It attaches the stored credential
// to each outgoing request and recovers from expired credentials.
//
// Before dispatch, a token expiring within the lookahead window is
// refreshed (proactive refresh); if that refresh fails its error is
// returned. After dispatch, an error classified by ShouldRefresh
// triggers a refresh and one more pass through the downstream pipeline
// with the new credential (reactive refresh), at most MaxRetry times
// per logical request. If a reactive refresh fails, the store is
// cleared, OnFailure is called, and the triggering error is returned.
//
// Concurrent refreshes are coalesced: however many requests need a new
// credential at the same time, the refresh function runs once and they
// all share its result. A request whose credential was rejected after
// another request already replaced it retries with the stored
// credential instead of refreshing again.
//
// The refresh runs detached from the cancellation of the request that
// started it, since other requests may be waiting on it. Each waiting
// request still returns promptly when it is itself cancelled.
type Middleware struct {
	store         TokenStore
	refresh       RefreshFunc
	shouldRefresh func(err error, req *request.Request, exec *request.Execution) bool
	maxRetry      int
	lookahead     time.Duration
	header        string
	format        func(string) string
	onFailure     func(error)
	timeout       time.Duration
	logger        *zap.Logger
	flight        singleflight.Group
	now           func() time.Time
}

// New constructs an auth middleware.
func New(opts Options) (*Middleware, error) {
	if opts.Store == nil {
		return nil, errors.New("pipex/auth: nil token store")
	}
	if opts.Refresh == nil {
		return nil, ErrNoRefresh
	}
	m := &Middleware{
		store:         opts.Store,
		refresh:       opts.Refresh,
		shouldRefresh: opts.ShouldRefresh,
		maxRetry:      opts.MaxRetry,
		lookahead:     opts.Lookahead,
		header:        opts.Header,
		format:        opts.Format,
		onFailure:     opts.OnFailure,
		timeout:       opts.RefreshTimeout,
		logger:        opts.Logger,
		now:           time.Now,
	}
	if m.shouldRefresh == nil {
		m.shouldRefresh = Unauthorized
	}
	if m.maxRetry == 0 {
		m.maxRetry = DefaultMaxRetry
	} else if m.maxRetry < 0 {
		m.maxRetry = 0
	}
	if m.header == "" {
		m.header = DefaultHeader
	}
	m.header = http.CanonicalHeaderKey(m.header)
	if m.format == nil {
		m.format = Bearer
	}
	if m.onFailure == nil {
		m.onFailure = func(error) {}
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.With(zap.String("component", "auth"))
	return m, nil
}

// Unauthorized reports whether err is an HTTP 401 error.
func Unauthorized(err error, _ *request.Request, _ *request.Execution) bool {
	return request.StatusCode(err) == http.StatusUnauthorized
}

// Bearer formats token as a bearer credential.
func Bearer(token string) string {
	return "Bearer " + token
}

// Handle implements pipeline.Middleware.
func (m *Middleware) Handle(req *request.Request, exec *request.Execution, next pipeline.Handler) (*request.Response, error) {
	rec, err := m.store.Get(exec.Context())
	if err != nil {
		return nil, err
	}

	if m.expiring(rec) {
		m.logger.Debug("refreshing token",
			zap.String("id", exec.ID),
			zap.String("trigger", "proactive"),
			zap.Time("expiresAt", rec.Meta.ExpiresAt))
		rec, err = m.doRefresh(req, exec, rec.Token)
		if err != nil {
			return nil, err
		}
	}

	for {
		resp, err := next.Handle(m.attach(req, rec), exec)
		if err == nil || request.IsCancellation(err) || !m.shouldRefresh(err, req, exec) {
			return resp, err
		}

		n := RefreshCountKey.Value(exec.Bag())
		if n >= m.maxRetry {
			return nil, err
		}
		RefreshCountKey.Set(exec.Bag(), n+1)

		rejected := token(rec)
		if cur, serr := m.store.Get(exec.Context()); serr == nil && m.usable(cur, rejected) {
			m.logger.Debug("retrying with replaced token", zap.String("id", exec.ID))
			rec = cur
			continue
		}

		m.logger.Debug("refreshing token",
			zap.String("id", exec.ID),
			zap.String("trigger", "reactive"),
			zap.Error(err))
		var rerr error
		rec, rerr = m.doRefresh(req, exec, rejected)
		if rerr != nil {
			if ierr := exec.Interruption(req); ierr != nil {
				return nil, ierr
			}
			return nil, err
		}
	}
}

// usable reports whether rec holds a token other than the rejected one
// which is not due for a proactive refresh.
func (m *Middleware) usable(rec *TokenRecord, rejected string) bool {
	return rec != nil && rec.Token != "" && rec.Token != rejected && !m.expiring(rec)
}

func (m *Middleware) expiring(rec *TokenRecord) bool {
	if rec == nil || rec.Meta.ExpiresAt.IsZero() {
		return false
	}
	return !m.now().Add(m.lookahead).Before(rec.Meta.ExpiresAt)
}

func (m *Middleware) attach(req *request.Request, rec *TokenRecord) *request.Request {
	if rec == nil || rec.Token == "" {
		return req
	}
	return req.With(request.Overrides{
		Header: http.Header{m.header: {m.format(rec.Token)}},
	})
}

// doRefresh joins the in-flight refresh, starting one if necessary, and
// waits for its result or for the execution to be interrupted.
func (m *Middleware) doRefresh(req *request.Request, exec *request.Execution, rejected string) (*TokenRecord, error) {
	ctx := context.WithoutCancel(exec.Context())
	ch := m.flight.DoChan(flightKey, func() (interface{}, error) {
		return m.runRefresh(ctx, rejected)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		rec := res.Val.(TokenRecord)
		return &rec, nil
	case <-exec.Context().Done():
		return nil, exec.Interruption(req)
	}
}

func (m *Middleware) runRefresh(ctx context.Context, rejected string) (interface{}, error) {
	// A refresh that settled just before this one started already
	// replaced the rejected token.
	if cur, err := m.store.Get(ctx); err == nil && m.usable(cur, rejected) {
		return *cur, nil
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	rec, err := m.refresh(ctx)
	if err == nil {
		err = m.store.Set(ctx, rec)
	}
	if err != nil {
		m.logger.Warn("token refresh failed", zap.Error(err))
		if cerr := m.store.Clear(context.WithoutCancel(ctx)); cerr != nil {
			m.logger.Warn("clearing token store failed", zap.Error(cerr))
		}
		m.onFailure(err)
		return nil, err
	}
	return rec, nil
}

func token(rec *TokenRecord) string {
	if rec == nil {
		return ""
	}
	return rec.Token
}
