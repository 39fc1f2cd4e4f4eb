// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"github.com/gogama/pipex/request"
)

// A Handler handles one pass of a request through (the remainder of) a
// pipeline.
//
// A Handler returns either a non-nil Response and a nil error, or a nil
// Response and a non-nil error. HTTP errors carry their response in the
// error (see request.Error).
type Handler interface {
	Handle(req *request.Request, exec *request.Execution) (*request.Response, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(req *request.Request, exec *request.Execution) (*request.Response, error)

// Handle calls f(req, exec).
func (f HandlerFunc) Handle(req *request.Request, exec *request.Execution) (*request.Response, error) {
	return f(req, exec)
}

// A Middleware wraps the rest of a pipeline.
//
// A middleware may derive a new request and pass it to next, call next
// more than once (retry), not call next at all (short-circuit), and
// transform the response or error returned by next. A middleware must
// not modify req or the response returned by next; it derives copies
// with With instead.
type Middleware interface {
	Handle(req *request.Request, exec *request.Execution, next Handler) (*request.Response, error)
}

// MiddlewareFunc adapts an ordinary function to the Middleware
// interface.
type MiddlewareFunc func(req *request.Request, exec *request.Execution, next Handler) (*request.Response, error)

// Handle calls f(req, exec, next).
func (f MiddlewareFunc) Handle(req *request.Request, exec *request.Execution, next Handler) (*request.Response, error) {
	return f(req, exec, next)
}

// Compose builds one handler from a terminal handler and an ordered
// list of middlewares.
//
// Composition is right-to-left: the last middleware wraps terminal,
// the one before it wraps that, and so on. The first middleware in mws
// therefore runs its pre-logic first and its post-logic last.
//
// Compose panics if terminal or any middleware is nil.
func Compose(terminal Handler, mws ...Middleware) Handler {
	if terminal == nil {
		panic("pipex: nil handler")
	}
	h := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			panic("pipex: nil middleware")
		}
		h = &link{mw: mws[i], next: h}
	}
	return h
}

type link struct {
	mw   Middleware
	next Handler
}

func (l *link) Handle(req *request.Request, exec *request.Execution) (*request.Response, error) {
	return l.mw.Handle(req, exec, l.next)
}
