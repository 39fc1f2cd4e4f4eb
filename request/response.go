// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// A Response is the immutable result of a successful transport round
// trip, after decoding.
//
// Like Request, a Response must not be modified by middlewares; derive a
// copy with With instead.
type Response struct {
	// StatusCode is the HTTP status code, e.g. 200.
	StatusCode int

	// Header contains the response header fields.
	Header http.Header

	// URL is the resolved URL the request was sent to.
	URL string

	// Data is the decoded response payload. Its dynamic type depends on
	// the response type used by the decoder: interface{} trees for JSON
	// and YAML, string for text, []byte for bytes, nil for raw.
	Data interface{}

	// Body is the complete raw response payload as read from the
	// transport.
	Body []byte

	// Raw is the transport-level response. Its body has already been
	// consumed and closed; use Body instead.
	Raw *http.Response

	// Meta is an extensible metadata map.
	Meta map[string]interface{}
}

// ResponseOverrides specifies the fields to change when deriving a
// Response with With. Header and Meta follow the same merge rules as
// Overrides.
type ResponseOverrides struct {
	StatusCode int
	Header     http.Header
	Data       interface{}
	Meta       map[string]interface{}
}

// With returns a new Response with the overrides in o applied. The
// receiver is never modified.
func (r *Response) With(o ResponseOverrides) *Response {
	r2 := new(Response)
	*r2 = *r
	if o.StatusCode != 0 {
		r2.StatusCode = o.StatusCode
	}
	if o.Header != nil {
		r2.Header = mergeHeader(r.Header, o.Header)
	}
	if o.Data != nil {
		r2.Data = o.Data
	}
	if o.Meta != nil {
		r2.Meta = mergeMeta(r.Meta, o.Meta)
	}
	return r2
}

// OK reports whether the status code is in the range [200, 300).
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DataAs returns the decoded data of r as a T. The second return value
// is false if r is nil or its data is not a T.
func DataAs[T any](r *Response) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	v, ok := r.Data.(T)
	return v, ok
}

// DecodeJSON unmarshals the raw body of r into a new T.
func DecodeJSON[T any](r *Response) (T, error) {
	var v T
	if r == nil {
		return v, fmt.Errorf("pipex/request: nil response")
	}
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return v, &Error{Kind: KindDecode, URL: r.URL, Response: r, Err: err}
	}
	return v, nil
}
