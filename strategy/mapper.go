// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package strategy

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gogama/pipex/request"
)

// An ErrorMapper normalizes errors raised by the terminal stage of a
// pipeline into *request.Error values.
//
// Mapping must be idempotent: an error which already is, or wraps, a
// *request.Error is returned unchanged. A nil error maps to nil.
type ErrorMapper interface {
	Map(err error, req *request.Request, exec *request.Execution) error
}

// ErrorMapperFunc adapts an ordinary function to the ErrorMapper
// interface.
type ErrorMapperFunc func(err error, req *request.Request, exec *request.Execution) error

// Map calls f(err, req, exec).
func (f ErrorMapperFunc) Map(err error, req *request.Request, exec *request.Execution) error {
	return f(err, req, exec)
}

// DefaultErrorMapper classifies raw errors as follows:
//
// • if the execution's cancellation signal has fired, the error is a
// timeout or cancellation as reported by exec.Interruption;
//
// • if the error reports itself as a timeout (for example because the
// HTTPDoer has its own timeout), it is a timeout, although the
// execution is not flagged as timed out since its own timeout has not
// elapsed;
//
// • otherwise, it is a network error.
//
// Timeout and network errors wrap a *url.Error in the same manner as
// the errors returned by the standard http.Client.
type DefaultErrorMapper struct{}

// Map maps err.
func (DefaultErrorMapper) Map(err error, req *request.Request, exec *request.Execution) error {
	if err == nil {
		return nil
	}
	if _, ok := request.AsError(err); ok {
		return err
	}
	if exec != nil {
		if ierr := exec.Interruption(req); ierr != nil {
			return ierr
		}
	}
	ue := urlErrorWrap(req, err)
	kind := request.KindNetwork
	if ue.Timeout() {
		kind = request.KindTimeout
	}
	return &request.Error{
		Kind:   kind,
		Method: req.Method,
		URL:    req.URL,
		Err:    ue,
	}
}

func urlErrorWrap(req *request.Request, err error) *url.Error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue
	}

	return &url.Error{
		Op:  urlErrorOp(req.Method),
		URL: req.URL,
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
