// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"io"
	"net/http"

	"github.com/gogama/pipex/request"
	"github.com/gogama/pipex/strategy"
)

// Strategies holds the strategy components used by the terminal
// handler.
type Strategies struct {
	Transport      strategy.Transport
	URLResolver    strategy.URLResolver
	BodySerializer strategy.BodySerializer
	Decoder        strategy.ResponseDecoder
	ErrorMapper    strategy.ErrorMapper
}

// Terminal returns the innermost handler of a pipeline, which performs
// one network round trip:
//
// 1. If the execution has already been interrupted, the interruption
// is returned without any I/O.
//
// 2. The URL is resolved. Failure is a configuration error, raised
// before any I/O.
//
// 3. The body is serialized. Failure is a serialization error.
//
// 4. The request is sent by the transport and the whole response body
// is read. Failure is passed to the error mapper.
//
// 5. The response is decoded. Failure of a response whose status is in
// [200, 300) is a decode error.
//
// 6. A decoded response with status outside [200, 300) becomes an HTTP
// error carrying the response.
//
// Every error returned has been through the error mapper.
//
// Terminal panics if any strategy is nil.
func Terminal(s Strategies) Handler {
	switch {
	case s.Transport == nil:
		panic("pipex: nil transport")
	case s.URLResolver == nil:
		panic("pipex: nil URL resolver")
	case s.BodySerializer == nil:
		panic("pipex: nil body serializer")
	case s.Decoder == nil:
		panic("pipex: nil response decoder")
	case s.ErrorMapper == nil:
		panic("pipex: nil error mapper")
	}
	return &terminal{s}
}

type terminal struct {
	s Strategies
}

func (t *terminal) Handle(req *request.Request, exec *request.Execution) (*request.Response, error) {
	if err := exec.Interruption(req); err != nil {
		return nil, err
	}

	u, err := t.s.URLResolver.Resolve(req)
	if err != nil {
		return nil, t.mapErr(classify(err, request.KindConfig, req), req, exec)
	}

	body, contentType, err := t.s.BodySerializer.Serialize(req)
	if err != nil {
		return nil, t.mapErr(classify(err, request.KindSerialize, req), req, exec)
	}

	header := req.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}

	raw, err := t.s.Transport.Send(exec.Context(), &strategy.Outgoing{
		Method: req.Method,
		URL:    u,
		Header: header,
		Body:   body,
		Meta:   req.Meta,
	})
	if err != nil {
		return nil, t.mapErr(err, req, exec)
	}

	b, err := readBody(raw)
	if err != nil {
		return nil, t.mapErr(err, req, exec)
	}

	in := &strategy.Incoming{URL: u, Raw: raw, Body: b}
	resp, err := t.s.Decoder.Decode(req, in)
	ok := raw.StatusCode >= 200 && raw.StatusCode < 300
	if err != nil {
		if _, classified := request.AsError(err); classified {
			return nil, t.mapErr(err, req, exec)
		}
		// An undecodable error response is still reported as an HTTP
		// error, with whatever the decoder managed to produce.
		if ok || resp == nil {
			return nil, t.mapErr(&request.Error{
				Kind:     request.KindDecode,
				Method:   req.Method,
				URL:      u.String(),
				Response: resp,
				Err:      err,
			}, req, exec)
		}
	}

	if !ok {
		return nil, t.mapErr(&request.Error{
			Kind:     request.KindHTTP,
			Method:   req.Method,
			URL:      u.String(),
			Response: resp,
		}, req, exec)
	}

	return resp, nil
}

func (t *terminal) mapErr(err error, req *request.Request, exec *request.Execution) error {
	mapped := t.s.ErrorMapper.Map(err, req, exec)
	if mapped == nil {
		return err
	}
	return mapped
}

// classify returns err unchanged if it is already a *request.Error, and
// otherwise wraps it in an error of the given kind.
func classify(err error, kind request.Kind, req *request.Request) error {
	if _, ok := request.AsError(err); ok {
		return err
	}
	return &request.Error{
		Kind:   kind,
		Method: req.Method,
		URL:    req.URL,
		Err:    err,
	}
}

func readBody(raw *http.Response) ([]byte, error) {
	if raw.Body == nil {
		return nil, nil
	}
	defer func() {
		_ = raw.Body.Close()
	}()
	return io.ReadAll(raw.Body)
}
