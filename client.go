// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pipex

import (
	"context"
	"fmt"
	"time"

	"github.com/gogama/pipex/pipeline"
	"github.com/gogama/pipex/request"
	"github.com/gogama/pipex/strategy"
	"github.com/gogama/pipex/timeout"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// A Client dispatches requests through a composed middleware pipeline.
//
// A Client is built once by New from a Config and a list of plugins.
// The plugins configure a Registry: they may replace the default
// strategies (transport, URL resolver, body serializer, response
// decoder, error mapper), add middlewares, and subscribe listeners to
// lifecycle events. When New returns, the pipeline is composed and the
// registry is frozen, so the behavior of a Client never changes while
// requests are in flight.
//
// Client's transport typically has an internal state (cached TCP
// connections) so Client instances should be reused instead of created
// as needed. Client is safe for concurrent use by multiple goroutines.
//
// Compared to the Go standard HTTP client, the main differences are:
//
// • instead of consuming an http.Request, which is only suitable for
// making a one-off request attempt, Client.Do consumes an immutable
// request.Request which is suitable for making multiple attempts if
// necessary; and
//
// • instead of producing an http.Response, Client returns a
// request.Response with a fully-buffered and decoded body, and treats
// any status outside [200, 300) as an error.
type Client struct {
	cfg       Config
	plugins   []Plugin
	handler   pipeline.Handler
	transport strategy.Transport
	listeners ListenerGroup
	timeout   timeout.Policy
	logger    *zap.Logger
}

// New constructs a Client from cfg, applying plugins in order to the
// client's registry.
//
// If a plugin returns an error, New stops and returns the error. New
// panics if a plugin is nil.
func New(cfg Config, plugins ...Plugin) (*Client, error) {
	cfg = cfg.normalized()
	reg := newRegistry(&cfg)
	for i, p := range plugins {
		if p == nil {
			panic("pipex: nil plugin")
		}
		if err := p.Apply(reg); err != nil {
			return nil, fmt.Errorf("pipex: plugin %d: %w", i, err)
		}
	}
	reg.frozen = true

	return &Client{
		cfg:       cfg,
		plugins:   plugins,
		handler:   pipeline.Compose(pipeline.Terminal(reg.strategies), reg.middlewares...),
		transport: reg.strategies.Transport,
		listeners: reg.listeners,
		timeout:   cfg.timeoutPolicy(),
		logger:    cfg.Logger.With(zap.String("component", "client")),
	}, nil
}

// Extend returns a new Client with the same configuration and plugins
// as c, followed by the additional plugins. The receiver is unchanged.
func (c *Client) Extend(plugins ...Plugin) (*Client, error) {
	all := make([]Plugin, 0, len(c.plugins)+len(plugins))
	all = append(all, c.plugins...)
	all = append(all, plugins...)
	return New(c.cfg, all...)
}

// Do dispatches a logical request through the pipeline and returns the
// final response.
//
// The client's default header and metadata are merged under those of
// req, and the timeout policy sets the timeout of the whole logical
// request, retries included. One request.Execution is created for the
// call and threaded through every middleware.
//
// Listeners receive Start before the pipeline runs and exactly one of
// End, Error or Abort after it settles.
//
// Errors returned by the default strategies are of type *request.Error.
// Use errors.Is with the request.Err* sentinels to classify them.
func (c *Client) Do(req *request.Request) (*request.Response, error) {
	if req == nil {
		panic("pipex: nil request")
	}
	req = c.prepare(req)
	exec, cancel := request.NewExecution(req.Context(), uuid.NewString(), c.timeout.Timeout(req))
	defer cancel()

	exec.Start = time.Now()
	c.listeners.run(Start, &EventInfo{Request: req, Exec: exec}, c.logger)

	resp, err := c.handler.Handle(req, exec)

	exec.End = time.Now()
	info := &EventInfo{
		Request:  req,
		Response: resp,
		Err:      err,
		Exec:     exec,
		Duration: exec.Duration(),
		Attempt:  exec.Attempt,
	}
	if err != nil && resp == nil {
		if e, ok := request.AsError(err); ok {
			info.Response = e.Response
		}
	}
	c.listeners.run(outcome(err, exec), info, c.logger)
	return resp, err
}

// prepare merges the client defaults under req.
func (c *Client) prepare(req *request.Request) *request.Request {
	var o request.Overrides
	if len(c.cfg.Header) > 0 {
		h := c.cfg.Header.Clone()
		for k, vs := range req.Header {
			h[k] = vs
		}
		o.Header = h
	}
	if len(c.cfg.Meta) > 0 {
		m := make(map[string]interface{}, len(c.cfg.Meta)+len(req.Meta))
		for k, v := range c.cfg.Meta {
			m[k] = v
		}
		for k, v := range req.Meta {
			m[k] = v
		}
		o.Meta = m
	}
	if o.Header == nil && o.Meta == nil {
		return req
	}
	return req.With(o)
}

// Get issues a GET to the specified URL, using the same pipeline
// followed by Do.
//
// To make a request with custom headers, use request.NewWithContext and
// Client.Do.
func (c *Client) Get(ctx context.Context, url string) (*request.Response, error) {
	return Get(ctx, c, url)
}

// Head issues a HEAD to the specified URL, using the same pipeline
// followed by Do.
func (c *Client) Head(ctx context.Context, url string) (*request.Response, error) {
	return Head(ctx, c, url)
}

// Post issues a POST to the specified URL, using the same pipeline
// followed by Do.
//
// The body is serialized by the body serializer strategy. With the
// default serializer, url.Values are form-encoded, raw bodies (string,
// []byte, io.Reader) are sent as is, and anything else is encoded as
// JSON.
func (c *Client) Post(ctx context.Context, url string, body interface{}) (*request.Response, error) {
	return Post(ctx, c, url, body)
}

// Put issues a PUT to the specified URL. The body is handled as for
// Post.
func (c *Client) Put(ctx context.Context, url string, body interface{}) (*request.Response, error) {
	return Put(ctx, c, url, body)
}

// Patch issues a PATCH to the specified URL. The body is handled as for
// Post.
func (c *Client) Patch(ctx context.Context, url string, body interface{}) (*request.Response, error) {
	return Patch(ctx, c, url, body)
}

// Delete issues a DELETE to the specified URL.
func (c *Client) Delete(ctx context.Context, url string) (*request.Response, error) {
	return Delete(ctx, c, url)
}

// CloseIdleConnections invokes the same method on the client's
// transport.
//
// If the transport has no CloseIdleConnections method, this method does
// nothing. The default transport forwards the call to its HTTPDoer.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.transport.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

var _ Executor = (*Client)(nil)

func send(ctx context.Context, d Doer, method, url string, body interface{}) (*request.Response, error) {
	r, err := request.NewWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	return d.Do(r)
}
