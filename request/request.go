// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	nilCtxMsg = "pipex/request: nil context"
)

// NoBody is an override value which clears the body of a derived
// Request. Because a nil Overrides.Body means "keep the current body",
// NoBody is the only way to remove a body with With.
var NoBody = noBody{}

type noBody struct{}

// A Request describes one logical HTTP request to be dispatched through
// a client pipeline.
//
// A Request is an immutable value. Middlewares and strategies must not
// modify the fields (or the maps referenced by the fields) of a Request
// they receive; instead they derive a modified copy using With. The
// fields are exported for convenient reading, mirroring http.Request.
//
// Like http.Request, a Request carries a context which is the caller's
// cancellation signal for the whole logical request, including any
// retries made by middlewares.
type Request struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string

	// URL is the raw target URL. It may be relative, in which case it
	// is resolved against the client's base URL by the URL resolver
	// strategy.
	URL string

	// Header contains the request header fields to be sent.
	Header http.Header

	// Body is the request body before serialization. A nil Body means
	// no body is sent. Readers passed to New are buffered into []byte so
	// that the body can be sent again on retry.
	Body interface{}

	// Query contains query parameters appended to the resolved URL.
	Query url.Values

	// Timeout is the timeout for the whole logical request. Zero means
	// the client default applies.
	Timeout time.Duration

	// Meta is an extensible metadata map. Keys starting with "pipex."
	// are reserved for built-in components (see MetaRetry and friends).
	Meta map[string]interface{}

	ctx context.Context
}

// Overrides specifies the fields to change when deriving a Request
// with With. Zero-valued fields leave the corresponding field of the
// receiver unchanged.
//
// Header, Query and Meta are shallow-merged over the receiver's maps: a
// key with a non-nil value replaces the receiver's entry, and a key with
// a nil value removes the receiver's entry.
type Overrides struct {
	Method  string
	URL     string
	Header  http.Header
	Query   url.Values
	Meta    map[string]interface{}
	Body    interface{}
	Timeout time.Duration
}

// New wraps NewWithContext using the background context.
func New(method, url string, body interface{}) (*Request, error) {
	return NewWithContext(context.Background(), method, url, body)
}

// NewWithContext returns a new Request given a method, URL, and
// optional body.
//
// If body is an io.Reader it is read to the end and buffered into a
// []byte; if it is also an io.Closer it is closed after buffering. Any
// other body value is kept as is for the body serializer to handle.
func NewWithContext(ctx context.Context, method, url string, body interface{}) (*Request, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if method == "" {
		method = http.MethodGet
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("pipex/request: invalid method %q", method)
	}
	b, err := bufferBody(body)
	if err != nil {
		return nil, err
	}
	return &Request{
		ctx:    ctx,
		Method: method,
		URL:    url,
		Header: make(http.Header),
		Body:   b,
	}, nil
}

// Context returns the request's caller context. The returned context is
// always non-nil; it defaults to the background context.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of r with its context changed to
// ctx, which must be non-nil.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	return r2
}

// With returns a new Request with the overrides in o applied. The
// receiver is never modified.
func (r *Request) With(o Overrides) *Request {
	r2 := new(Request)
	*r2 = *r
	if o.Method != "" {
		r2.Method = o.Method
	}
	if o.URL != "" {
		r2.URL = o.URL
	}
	if o.Header != nil {
		r2.Header = mergeHeader(r.Header, o.Header)
	}
	if o.Query != nil {
		r2.Query = mergeValues(r.Query, o.Query)
	}
	if o.Meta != nil {
		r2.Meta = mergeMeta(r.Meta, o.Meta)
	}
	switch o.Body.(type) {
	case nil:
	case noBody:
		r2.Body = nil
	default:
		r2.Body = o.Body
	}
	if o.Timeout != 0 {
		r2.Timeout = o.Timeout
	}
	return r2
}

// MetaValue returns the metadata value stored under key, or nil.
func (r *Request) MetaValue(key string) interface{} {
	if r.Meta == nil {
		return nil
	}
	return r.Meta[key]
}

// mergeHeader merges over onto a copy of base, canonicalizing the
// override keys.
func mergeHeader(base, over http.Header) http.Header {
	h := base.Clone()
	if h == nil {
		h = make(http.Header, len(over))
	}
	for k, v := range over {
		k = http.CanonicalHeaderKey(k)
		if v == nil {
			delete(h, k)
			continue
		}
		h[k] = append([]string(nil), v...)
	}
	return h
}

func mergeValues(base, over url.Values) url.Values {
	q := make(url.Values, len(base)+len(over))
	for k, v := range base {
		q[k] = append([]string(nil), v...)
	}
	for k, v := range over {
		if v == nil {
			delete(q, k)
			continue
		}
		q[k] = append([]string(nil), v...)
	}
	return q
}

func mergeMeta(base, over map[string]interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(base)+len(over))
	for k, v := range base {
		m[k] = v
	}
	for k, v := range over {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	return m
}

func validMethod(method string) bool {
	/*
	     Method         = "OPTIONS"                ; Section 9.2
	                    | "GET"                    ; Section 9.3
	                    | "HEAD"                   ; Section 9.4
	                    | "POST"                   ; Section 9.5
	                    | "PUT"                    ; Section 9.6
	                    | "DELETE"                 ; Section 9.7
	                    | "TRACE"                  ; Section 9.8
	                    | "CONNECT"                ; Section 9.9
	                    | extension-method
	   extension-method = token
	     token          = 1*<any CHAR except CTLs or separators>
	*/
	return strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !isTokenRune(r)
}

// isTokenRune classifies a rune as being valid for a token as defined
// in https://tools.ietf.org/html/rfc7230#section-3.2.6
func isTokenRune(r rune) bool {
	if r >= 127 || r <= ' ' {
		return false
	}
	return !strings.ContainsRune(`"(),/:;<=>?@[\]{}`, r)
}
