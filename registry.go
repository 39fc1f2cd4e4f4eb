// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pipex

import (
	"github.com/gogama/pipex/pipeline"
	"github.com/gogama/pipex/strategy"
	"go.uber.org/zap"
)

const frozenMsg = "pipex: registry is frozen once the client is constructed"

// A Registry is the setup surface plugins configure. It holds exactly
// one implementation of each strategy, the ordered middleware list and
// the event listeners.
//
// A Registry is only valid while the plugins passed to New are being
// applied. Once New returns, the registry is frozen and every mutating
// method panics. Registry is not safe for concurrent use.
type Registry struct {
	strategies  pipeline.Strategies
	middlewares []pipeline.Middleware
	listeners   ListenerGroup
	logger      *zap.Logger
	frozen      bool
}

func newRegistry(cfg *Config) *Registry {
	return &Registry{
		strategies: pipeline.Strategies{
			Transport: &strategy.HTTPTransport{HTTPDoer: cfg.HTTPDoer},
			URLResolver: &strategy.DefaultURLResolver{
				BaseURL:         cfg.BaseURL,
				QuerySerializer: cfg.QuerySerializer,
			},
			BodySerializer: strategy.DefaultBodySerializer{},
			Decoder: &strategy.DefaultResponseDecoder{
				Type:   cfg.DefaultResponseType,
				Strict: cfg.StrictDecode,
			},
			ErrorMapper: strategy.DefaultErrorMapper{},
		},
		logger: cfg.Logger,
	}
}

func (r *Registry) mutate() {
	if r.frozen {
		panic(frozenMsg)
	}
}

// SetTransport replaces the transport. The displaced transport is
// available from Transport beforehand if the replacement wants to
// delegate to it.
func (r *Registry) SetTransport(t strategy.Transport) {
	r.mutate()
	if t == nil {
		panic("pipex: nil transport")
	}
	r.strategies.Transport = t
}

// SetURLResolver replaces the URL resolver.
func (r *Registry) SetURLResolver(u strategy.URLResolver) {
	r.mutate()
	if u == nil {
		panic("pipex: nil URL resolver")
	}
	r.strategies.URLResolver = u
}

// SetBodySerializer replaces the body serializer.
func (r *Registry) SetBodySerializer(s strategy.BodySerializer) {
	r.mutate()
	if s == nil {
		panic("pipex: nil body serializer")
	}
	r.strategies.BodySerializer = s
}

// SetDecoder replaces the response decoder.
func (r *Registry) SetDecoder(d strategy.ResponseDecoder) {
	r.mutate()
	if d == nil {
		panic("pipex: nil response decoder")
	}
	r.strategies.Decoder = d
}

// SetErrorMapper replaces the error mapper.
func (r *Registry) SetErrorMapper(m strategy.ErrorMapper) {
	r.mutate()
	if m == nil {
		panic("pipex: nil error mapper")
	}
	r.strategies.ErrorMapper = m
}

// Use appends a middleware to the pipeline. Middlewares run in the
// order they are added: the first added sees the request first and the
// response last.
func (r *Registry) Use(mw pipeline.Middleware) {
	r.mutate()
	if mw == nil {
		panic("pipex: nil middleware")
	}
	r.middlewares = append(r.middlewares, mw)
}

// On subscribes a listener to a lifecycle event.
func (r *Registry) On(evt Event, l Listener) {
	r.mutate()
	r.listeners.PushBack(evt, l)
}

// Transport returns the current transport.
func (r *Registry) Transport() strategy.Transport { return r.strategies.Transport }

// URLResolver returns the current URL resolver.
func (r *Registry) URLResolver() strategy.URLResolver { return r.strategies.URLResolver }

// BodySerializer returns the current body serializer.
func (r *Registry) BodySerializer() strategy.BodySerializer { return r.strategies.BodySerializer }

// Decoder returns the current response decoder.
func (r *Registry) Decoder() strategy.ResponseDecoder { return r.strategies.Decoder }

// ErrorMapper returns the current error mapper.
func (r *Registry) ErrorMapper() strategy.ErrorMapper { return r.strategies.ErrorMapper }

// Middlewares returns a copy of the middleware list.
func (r *Registry) Middlewares() []pipeline.Middleware {
	return append([]pipeline.Middleware(nil), r.middlewares...)
}

// Logger returns the client's logger. It is never nil.
func (r *Registry) Logger() *zap.Logger { return r.logger }

// A Plugin is a unit of setup logic. Apply is invoked exactly once with
// the registry of the client being constructed, and may replace
// strategies, add middlewares and subscribe listeners.
//
// When two plugins replace the same strategy the later one wins.
type Plugin interface {
	Apply(r *Registry) error
}

// The PluginFunc type is an adapter to allow the use of ordinary
// functions as plugins.
type PluginFunc func(r *Registry) error

// Apply calls f(r).
func (f PluginFunc) Apply(r *Registry) error {
	return f(r)
}
