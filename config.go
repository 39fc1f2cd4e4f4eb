// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pipex

import (
	"net/http"
	"time"

	"github.com/gogama/pipex/request"
	"github.com/gogama/pipex/strategy"
	"github.com/gogama/pipex/timeout"
	"go.uber.org/zap"
)

// Config configures a Client. Its zero value is a valid configuration.
//
// The configuration seeds the default strategies installed in the
// Registry before plugins run. A plugin which replaces a strategy takes
// over the concern the corresponding fields configure.
type Config struct {
	// BaseURL is the absolute URL that relative request URLs are
	// joined to. If empty, relative request URLs fail with a
	// configuration error.
	BaseURL string

	// Header is the default header set. Request headers take
	// precedence over it key by key.
	Header http.Header

	// Timeout is the default timeout of a logical request, including
	// its retries. Zero means no timeout. A request's own Timeout takes
	// precedence.
	Timeout time.Duration

	// TimeoutPolicy decides the timeout of each logical request. If
	// nil, timeout.Fixed(Timeout) is used.
	TimeoutPolicy timeout.Policy

	// QuerySerializer overrides the default query string encoding.
	QuerySerializer strategy.QuerySerializer

	// DefaultResponseType is the response type used by the default
	// decoder when the request does not override it.
	DefaultResponseType request.ResponseType

	// StrictDecode makes the default decoder fail when the response
	// type cannot be determined instead of leaving the payload raw.
	StrictDecode bool

	// Meta is the default request metadata. Request metadata takes
	// precedence over it key by key.
	Meta map[string]interface{}

	// HTTPDoer is used by the default transport. If nil,
	// http.DefaultClient is used.
	HTTPDoer strategy.HTTPDoer

	// Logger receives the client's logs. It is also available to
	// plugins through Registry.Logger. If nil, nothing is logged.
	Logger *zap.Logger
}

// normalized returns a copy of cfg with the default header keys
// canonicalized and a non-nil logger.
func (cfg Config) normalized() Config {
	if cfg.Header != nil {
		h := make(http.Header, len(cfg.Header))
		for k, vs := range cfg.Header {
			for _, v := range vs {
				h.Add(k, v)
			}
		}
		cfg.Header = h
	}
	if cfg.Meta != nil {
		m := make(map[string]interface{}, len(cfg.Meta))
		for k, v := range cfg.Meta {
			m[k] = v
		}
		cfg.Meta = m
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

func (cfg *Config) timeoutPolicy() timeout.Policy {
	if cfg.TimeoutPolicy != nil {
		return cfg.TimeoutPolicy
	}
	return timeout.Fixed(cfg.Timeout)
}
