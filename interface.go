// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pipex

import (
	"context"
	"net/http"

	"github.com/gogama/pipex/request"
)

// Doer is the interface that wraps the basic Do method.
//
// Do dispatches a logical request and returns the final response (or
// error). Client implements the Doer interface, and any other Doer
// implementation must behave substantially the same as Client.Do.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Doer interface {
	Do(r *request.Request) (*request.Response, error)
}

// Getter is the interface that wraps the basic Get method.
//
// Any Doer can be used to emulate a Getter via the Get function.
type Getter interface {
	Get(ctx context.Context, url string) (*request.Response, error)
}

// Header is the interface that wraps the basic Head method.
//
// Any Doer can be used to emulate a Header via the Head function.
type Header interface {
	Head(ctx context.Context, url string) (*request.Response, error)
}

// Poster is the interface that wraps the basic Post method.
//
// The body parameter may be nil for an empty body, or any value the
// body serializer strategy accepts.
//
// Any Doer can be used to emulate a Poster via the Post function.
type Poster interface {
	Post(ctx context.Context, url string, body interface{}) (*request.Response, error)
}

// Putter is the interface that wraps the basic Put method.
type Putter interface {
	Put(ctx context.Context, url string, body interface{}) (*request.Response, error)
}

// Patcher is the interface that wraps the basic Patch method.
type Patcher interface {
	Patch(ctx context.Context, url string, body interface{}) (*request.Response, error)
}

// Deleter is the interface that wraps the basic Delete method.
type Deleter interface {
	Delete(ctx context.Context, url string) (*request.Response, error)
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
//
// If the underlying implementation supports it, CloseIdleConnections
// closes any idle which were previously connected from previous
// requests but are now sitting idle in a "keep-alive" state. It does
// not interrupt any connections currently in use.
//
// If the underlying implementation does not support this ability,
// CloseIdleConnections does nothing.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor is the interface that groups the basic Do, Get, Head, Post,
// Put, Patch, Delete, and CloseIdleConnections methods.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Executor interface {
	Doer
	Getter
	Header
	Poster
	Putter
	Patcher
	Deleter
	IdleCloser
}

// Get uses the specified Doer to issue a GET to the specified URL.
func Get(ctx context.Context, d Doer, url string) (*request.Response, error) {
	return send(ctx, d, http.MethodGet, url, nil)
}

// Head uses the specified Doer to issue a HEAD to the specified URL.
func Head(ctx context.Context, d Doer, url string) (*request.Response, error) {
	return send(ctx, d, http.MethodHead, url, nil)
}

// Post uses the specified Doer to issue a POST to the specified URL.
func Post(ctx context.Context, d Doer, url string, body interface{}) (*request.Response, error) {
	return send(ctx, d, http.MethodPost, url, body)
}

// Put uses the specified Doer to issue a PUT to the specified URL.
func Put(ctx context.Context, d Doer, url string, body interface{}) (*request.Response, error) {
	return send(ctx, d, http.MethodPut, url, body)
}

// Patch uses the specified Doer to issue a PATCH to the specified URL.
func Patch(ctx context.Context, d Doer, url string, body interface{}) (*request.Response, error) {
	return send(ctx, d, http.MethodPatch, url, body)
}

// Delete uses the specified Doer to issue a DELETE to the specified URL.
func Delete(ctx context.Context, d Doer, url string) (*request.Response, error) {
	return send(ctx, d, http.MethodDelete, url, nil)
}

// Inflate converts any non-nil Doer into an Executor. This may be
// helpful for interop across library boundaries, i.e. if code that only
// has access to a Doer needs to call a function that requires an
// Executor.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("pipex: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(r *request.Request) (*request.Response, error) {
	return i.doer.Do(r)
}

func (i inflated) Get(ctx context.Context, url string) (*request.Response, error) {
	return Get(ctx, i.doer, url)
}

func (i inflated) Head(ctx context.Context, url string) (*request.Response, error) {
	return Head(ctx, i.doer, url)
}

func (i inflated) Post(ctx context.Context, url string, body interface{}) (*request.Response, error) {
	return Post(ctx, i.doer, url, body)
}

func (i inflated) Put(ctx context.Context, url string, body interface{}) (*request.Response, error) {
	return Put(ctx, i.doer, url, body)
}

func (i inflated) Patch(ctx context.Context, url string, body interface{}) (*request.Response, error) {
	return Patch(ctx, i.doer, url, body)
}

func (i inflated) Delete(ctx context.Context, url string) (*request.Response, error) {
	return Delete(ctx, i.doer, url)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
