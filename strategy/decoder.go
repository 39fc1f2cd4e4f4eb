// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package strategy

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gogama/pipex/request"
	"gopkg.in/yaml.v3"
)

// An Incoming is a transport response whose body has been fully read.
type Incoming struct {
	// URL is the resolved URL the request was sent to.
	URL *url.URL
	// Raw is the transport response. Its body is closed.
	Raw *http.Response
	// Body is the complete response payload.
	Body []byte
}

// A ResponseDecoder converts an incoming response into a
// request.Response.
//
// Decoders are called for every response regardless of status code.
// Errors are reported to the caller as errors of kind
// request.KindDecode.
type ResponseDecoder interface {
	Decode(req *request.Request, in *Incoming) (*request.Response, error)
}

// ResponseDecoderFunc adapts an ordinary function to the
// ResponseDecoder interface.
type ResponseDecoderFunc func(req *request.Request, in *Incoming) (*request.Response, error)

// Decode calls f(req, in).
func (f ResponseDecoderFunc) Decode(req *request.Request, in *Incoming) (*request.Response, error) {
	return f(req, in)
}

// ErrUndeterminedType is the cause of the decode error returned by a
// strict DefaultResponseDecoder when no response type can be chosen.
var ErrUndeterminedType = errors.New("cannot determine response type")

// DefaultResponseDecoder decodes response payloads according to a
// request.ResponseType.
//
// The type used is, in order of precedence: the request's
// request.MetaResponseType metadata; the decoder's Type; the type
// implied by the response Content-Type (JSON, YAML or text). If no
// type can be determined the payload is left raw, or, if Strict is set,
// a decode error is returned.
//
// An empty payload decodes to nil Data for the JSON and YAML types.
type DefaultResponseDecoder struct {
	// Type is the default response type. The zero value is
	// request.ResponseAuto.
	Type request.ResponseType
	// Strict makes an undetermined response type an error instead of a
	// fallback to request.ResponseRaw.
	Strict bool
}

// Decode decodes in.
func (d *DefaultResponseDecoder) Decode(req *request.Request, in *Incoming) (*request.Response, error) {
	resp := &request.Response{
		Body: in.Body,
		Raw:  in.Raw,
	}
	if in.URL != nil {
		resp.URL = in.URL.String()
	}
	if in.Raw != nil {
		resp.StatusCode = in.Raw.StatusCode
		resp.Header = in.Raw.Header
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}

	rt := d.responseType(req)
	if rt == request.ResponseAuto {
		ct := resp.Header.Get("Content-Type")
		switch {
		case IsJSON(ct):
			rt = request.ResponseJSON
		case IsYAML(ct):
			rt = request.ResponseYAML
		case IsText(ct):
			rt = request.ResponseText
		case d.Strict && len(in.Body) > 0:
			return resp, ErrUndeterminedType
		default:
			rt = request.ResponseRaw
		}
	}

	switch rt {
	case request.ResponseJSON:
		if len(bytes.TrimSpace(in.Body)) == 0 {
			return resp, nil
		}
		var v interface{}
		if err := json.Unmarshal(in.Body, &v); err != nil {
			return resp, err
		}
		resp.Data = v
	case request.ResponseYAML:
		if len(bytes.TrimSpace(in.Body)) == 0 {
			return resp, nil
		}
		var v interface{}
		if err := yaml.Unmarshal(in.Body, &v); err != nil {
			return resp, err
		}
		resp.Data = v
	case request.ResponseText:
		resp.Data = string(in.Body)
	case request.ResponseBytes:
		resp.Data = in.Body
	}
	return resp, nil
}

func (d *DefaultResponseDecoder) responseType(req *request.Request) request.ResponseType {
	switch v := req.MetaValue(request.MetaResponseType).(type) {
	case request.ResponseType:
		return v
	case string:
		if rt, ok := request.ParseResponseType(v); ok {
			return rt
		}
	}
	return d.Type
}
