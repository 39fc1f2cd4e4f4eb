// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"net/url"
	"strconv"
)

// A Kind classifies an Error.
type Kind int

const (
	// KindHTTP indicates a successful transport round trip whose
	// status code is outside [200, 300). The Error's Response is set.
	KindHTTP Kind = iota + 1
	// KindNetwork indicates a transport-level failure not otherwise
	// classified. The wrapped error is a *url.Error.
	KindNetwork
	// KindTimeout indicates cancellation attributable to a timeout.
	KindTimeout
	// KindCanceled indicates cancellation attributable to the caller.
	KindCanceled
	// KindConfig indicates invalid configuration, for example a
	// relative URL with no base URL to resolve it against.
	KindConfig
	// KindSerialize indicates the request body could not be
	// serialized.
	KindSerialize
	// KindDecode indicates the response body could not be decoded.
	KindDecode
)

var kindNames = []string{
	"",
	"http",
	"network",
	"timeout",
	"canceled",
	"config",
	"serialize",
	"decode",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 1 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Sentinel errors which match any *Error of the same kind when used
// with errors.Is.
var (
	ErrHTTP      error = kindError(KindHTTP)
	ErrNetwork   error = kindError(KindNetwork)
	ErrTimeout   error = kindError(KindTimeout)
	ErrCanceled  error = kindError(KindCanceled)
	ErrConfig    error = kindError(KindConfig)
	ErrSerialize error = kindError(KindSerialize)
	ErrDecode    error = kindError(KindDecode)
)

type kindError Kind

func (k kindError) Error() string {
	return "pipex: " + Kind(k).String() + " error"
}

// An Error is a classified request failure. Every error produced by the
// terminal stage of a pipeline, and every cancellation observed by a
// built-in middleware, is an *Error.
type Error struct {
	// Kind classifies the error.
	Kind Kind
	// Method and URL identify the request which failed.
	Method string
	URL    string
	// Response is the decoded response for KindHTTP errors, and may be
	// set for KindDecode errors. It is nil otherwise.
	Response *Response
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTP && e.Response != nil {
		return "pipex: " + e.Method + " " + e.URL + ": HTTP " + strconv.Itoa(e.Response.StatusCode)
	}
	s := "pipex: " + e.Kind.String() + " error"
	var ue *url.Error
	if e.Err != nil && errors.As(e.Err, &ue) {
		return s + ": " + e.Err.Error()
	}
	if e.URL != "" {
		s += ": " + e.Method + " " + e.URL
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindError)
	return ok && Kind(k) == e.Kind
}

// Timeout reports whether e is a timeout error.
func (e *Error) Timeout() bool {
	return e.Kind == KindTimeout
}

// StatusCode returns the response status code of e, or zero if e has
// no response.
func (e *Error) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusCode returns the HTTP status code carried by err, or zero if err
// is not an HTTP error.
func StatusCode(err error) int {
	if e, ok := AsError(err); ok {
		return e.StatusCode()
	}
	return 0
}

// IsCancellation reports whether err is a timeout or caller
// cancellation, including the raw context errors.
func IsCancellation(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Kind == KindTimeout || e.Kind == KindCanceled
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
