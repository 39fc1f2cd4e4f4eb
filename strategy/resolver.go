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

// A URLResolver turns a request's raw URL and query parameters into an
// absolute URL. A request which cannot be resolved results in an error
// of kind request.KindConfig.
type URLResolver interface {
	Resolve(req *request.Request) (*url.URL, error)
}

// URLResolverFunc adapts an ordinary function to the URLResolver
// interface.
type URLResolverFunc func(req *request.Request) (*url.URL, error)

// Resolve calls f(req).
func (f URLResolverFunc) Resolve(req *request.Request) (*url.URL, error) {
	return f(req)
}

// A QuerySerializer encodes query parameters into a query string,
// without the leading '?'.
type QuerySerializer func(q url.Values) string

var errNoBaseURL = errors.New("relative URL with no base URL")

// DefaultURLResolver joins relative request URLs onto BaseURL and
// appends the request's query parameters to any query already present
// in the URL.
//
// Joining is textual: exactly one slash separates the base URL from the
// relative path, so a BaseURL of "https://api/v1" and a request URL of
// "/users" resolve to "https://api/v1/users". Absolute request URLs are
// used as is.
type DefaultURLResolver struct {
	// BaseURL is the absolute URL relative request URLs are joined to.
	// If empty, relative request URLs are a configuration error.
	BaseURL string
	// QuerySerializer overrides the default query encoding, which is
	// url.Values.Encode.
	QuerySerializer QuerySerializer
}

// Resolve resolves req's URL.
func (r *DefaultURLResolver) Resolve(req *request.Request) (*url.URL, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, configError(req, err)
	}
	if !u.IsAbs() {
		if r.BaseURL == "" {
			return nil, configError(req, errNoBaseURL)
		}
		joined := strings.TrimRight(r.BaseURL, "/")
		if rel := strings.TrimLeft(req.URL, "/"); rel != "" {
			joined += "/" + rel
		}
		u, err = url.Parse(joined)
		if err != nil {
			return nil, configError(req, err)
		}
		if !u.IsAbs() {
			return nil, configError(req, errors.New("base URL is not absolute: "+r.BaseURL))
		}
	}
	if len(req.Query) > 0 {
		var q string
		if r.QuerySerializer != nil {
			q = r.QuerySerializer(req.Query)
		} else {
			q = req.Query.Encode()
		}
		if q != "" {
			if u.RawQuery != "" {
				u.RawQuery += "&" + q
			} else {
				u.RawQuery = q
			}
		}
	}
	return u, nil
}

func configError(req *request.Request, err error) error {
	return &request.Error{
		Kind:   request.KindConfig,
		Method: req.Method,
		URL:    req.URL,
		Err:    err,
	}
}
