// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package strategy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/gogama/pipex/request"
)

// An Outgoing is a request after URL resolution and body serialization,
// ready to be handed to a Transport.
type Outgoing struct {
	// Method is the HTTP method.
	Method string
	// URL is the resolved, absolute URL including the query string.
	URL *url.URL
	// Header contains the header fields to send. The transport may
	// modify it.
	Header http.Header
	// Body is the serialized body, or nil for no body.
	Body []byte
	// Meta is the request's metadata map. It must not be modified.
	Meta map[string]interface{}
}

// A Transport sends an outgoing request and returns the response.
//
// The context is the execution's cancellation signal and must be
// observed. On success the returned response body must be non-nil;
// the caller reads it to the end and closes it.
type Transport interface {
	Send(ctx context.Context, out *Outgoing) (*http.Response, error)
}

// TransportFunc adapts an ordinary function to the Transport interface.
type TransportFunc func(ctx context.Context, out *Outgoing) (*http.Response, error)

// Send calls f(ctx, out).
func (f TransportFunc) Send(ctx context.Context, out *Outgoing) (*http.Response, error) {
	return f(ctx, out)
}

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

// An IdleCloser can close idle connections. The standard http.Client
// is an IdleCloser.
type IdleCloser interface {
	CloseIdleConnections()
}

// HTTPTransport is the default Transport. It sends requests through an
// HTTPDoer, typically an *http.Client, which is responsible for all
// connection handling, redirects and cookies.
//
// HTTPTransport honors the request.MetaUploadProgress and
// request.MetaDownloadProgress callbacks. Download progress is only
// reported when the response carries a Content-Length.
type HTTPTransport struct {
	// HTTPDoer specifies the mechanics of sending HTTP requests and
	// receiving responses.
	//
	// If HTTPDoer is nil, http.DefaultClient from the standard net/http
	// package is used.
	HTTPDoer HTTPDoer
}

// Send converts out into an http.Request bound to ctx and sends it.
func (t *HTTPTransport) Send(ctx context.Context, out *Outgoing) (*http.Response, error) {
	var body io.Reader
	if out.Body != nil {
		body = bytes.NewReader(out.Body)
		if f, ok := progressFunc(out.Meta, request.MetaUploadProgress); ok {
			body = &progressReader{r: body, total: int64(len(out.Body)), f: f}
		}
	}
	r, err := http.NewRequestWithContext(ctx, out.Method, out.URL.String(), body)
	if err != nil {
		return nil, err
	}
	if out.Body != nil {
		r.ContentLength = int64(len(out.Body))
		b := out.Body
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	}
	if out.Header != nil {
		r.Header = out.Header
	}
	resp, err := t.doer().Do(r)
	if err != nil {
		return nil, err
	}
	if f, ok := progressFunc(out.Meta, request.MetaDownloadProgress); ok && resp.ContentLength > 0 {
		resp.Body = &progressReadCloser{
			progressReader: progressReader{r: resp.Body, total: resp.ContentLength, f: f},
			c:              resp.Body,
		}
	}
	return resp, nil
}

// CloseIdleConnections invokes the same method on the transport's
// underlying HTTPDoer.
//
// If the HTTPDoer has no CloseIdleConnections method, this method does
// nothing.
func (t *HTTPTransport) CloseIdleConnections() {
	if ic, ok := t.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (t *HTTPTransport) doer() HTTPDoer {
	if t == nil || t.HTTPDoer == nil {
		return http.DefaultClient
	}

	return t.HTTPDoer
}

func progressFunc(meta map[string]interface{}, key string) (request.ProgressFunc, bool) {
	switch f := meta[key].(type) {
	case request.ProgressFunc:
		return f, f != nil
	case func(done, total int64):
		return f, f != nil
	default:
		return nil, false
	}
}

type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	f     request.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.f(p.done, p.total)
	}
	return n, err
}

type progressReadCloser struct {
	progressReader
	c io.Closer
}

func (p *progressReadCloser) Close() error {
	return p.c.Close()
}
