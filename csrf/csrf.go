// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package csrf

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/gogama/pipex"
	"github.com/gogama/pipex/pipeline"
	"github.com/gogama/pipex/request"
	"github.com/gogama/pipex/strategy"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultCookie is the cookie read when Options.Cookie is empty.
	DefaultCookie = "XSRF-TOKEN"
	// DefaultHeader is the header written when Options.Header is empty.
	DefaultHeader = "X-XSRF-TOKEN"
)

// A CookieReader looks up the value of the cookie named name which
// would be sent to u. The URL is nil when the middleware cannot
// determine which URL the cookie belongs to.
type CookieReader interface {
	Cookie(u *url.URL, name string) (string, bool)
}

// CookieReaderFunc is a function implementing CookieReader.
type CookieReaderFunc func(u *url.URL, name string) (string, bool)

// Cookie calls f(u, name).
func (f CookieReaderFunc) Cookie(u *url.URL, name string) (string, bool) {
	return f(u, name)
}

// JarReader is a CookieReader backed by a cookie jar.
type JarReader struct {
	Jar http.CookieJar
}

// Cookie returns the value of the first cookie in the jar named name
// for u.
func (r JarReader) Cookie(u *url.URL, name string) (string, bool) {
	if u == nil || r.Jar == nil {
		return "", false
	}
	for _, c := range r.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// NewJar returns an in-memory cookie jar using the public suffix list.
func NewJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// Options configures a CSRF middleware.
type Options struct {
	// Origin is the origin the client acts on behalf of, for example
	// "https://app.example.com". Requests to other origins do not get
	// the token unless AllowCrossOrigin is set. If Origin is empty,
	// no absolute URL is considered same-origin.
	Origin string
	// Resolver resolves request URLs before the origin check, and
	// should be the client's URL resolver. When the middleware is
	// installed as a plugin with Apply, the client's resolver is used
	// and Resolver is ignored. Without a resolver, a relative URL is
	// considered same-origin.
	Resolver strategy.URLResolver
	// Cookie is the name of the cookie holding the token.
	Cookie string
	// Header is the name of the request header receiving the token.
	Header string
	// AllowCrossOrigin attaches the token to every request.
	AllowCrossOrigin bool
	// Reader reads the cookie. If nil, a JarReader over Jar is used.
	Reader CookieReader
	// Jar is the cookie jar read by the default reader. If both Reader
	// and Jar are nil, a new jar is created with NewJar.
	Jar http.CookieJar
	// Logger receives debug logs. If nil, nothing is logged.
	Logger *zap.Logger
}

// Middleware attaches a CSRF token to outgoing requests.
type Middleware struct {
	origin      *url.URL
	cookie      string
	header      string
	crossOrigin bool
	resolver    strategy.URLResolver
	reader      CookieReader
	jar         http.CookieJar
	logger      *zap.Logger
}

// New constructs a CSRF middleware.
func New(opts Options) (*Middleware, error) {
	m := &Middleware{
		cookie:      opts.Cookie,
		header:      opts.Header,
		crossOrigin: opts.AllowCrossOrigin,
		resolver:    opts.Resolver,
		reader:      opts.Reader,
		jar:         opts.Jar,
		logger:      opts.Logger,
	}
	if opts.Origin != "" {
		u, err := url.Parse(opts.Origin)
		if err != nil {
			return nil, fmt.Errorf("pipex/csrf: invalid origin: %w", err)
		}
		if !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("pipex/csrf: origin %q is not absolute", opts.Origin)
		}
		m.origin = &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	}
	if m.cookie == "" {
		m.cookie = DefaultCookie
	}
	if m.header == "" {
		m.header = DefaultHeader
	}
	m.header = http.CanonicalHeaderKey(m.header)
	if m.reader == nil {
		if m.jar == nil {
			jar, err := NewJar()
			if err != nil {
				return nil, fmt.Errorf("pipex/csrf: %w", err)
			}
			m.jar = jar
		}
		m.reader = JarReader{Jar: m.jar}
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.With(zap.String("component", "csrf"))
	return m, nil
}

// Jar returns the cookie jar read by the default reader, or nil if a
// custom Reader was configured without a Jar.
func (m *Middleware) Jar() http.CookieJar {
	return m.jar
}

// Apply implements pipex.Plugin. It installs the middleware so that
// request URLs are resolved with the client's URL resolver, making a
// relative URL against a cross-origin base URL cross-origin.
func (m *Middleware) Apply(r *pipex.Registry) error {
	r.Use(pipeline.MiddlewareFunc(func(req *request.Request, exec *request.Execution, next pipeline.Handler) (*request.Response, error) {
		return m.handle(req, exec, next, r.URLResolver())
	}))
	return nil
}

// Handle implements pipeline.Middleware, resolving URLs with
// Options.Resolver.
func (m *Middleware) Handle(req *request.Request, exec *request.Execution, next pipeline.Handler) (*request.Response, error) {
	return m.handle(req, exec, next, m.resolver)
}

func (m *Middleware) handle(req *request.Request, exec *request.Execution, next pipeline.Handler, resolver strategy.URLResolver) (*request.Response, error) {
	if req.Header.Get(m.header) != "" {
		return next.Handle(req, exec)
	}
	var target *url.URL
	var err error
	if resolver != nil {
		target, err = resolver.Resolve(req)
	} else {
		target, err = url.Parse(req.URL)
	}
	if err != nil {
		// Let the terminal handler report the bad URL.
		return next.Handle(req, exec)
	}
	if !m.crossOrigin && !m.sameOrigin(target) {
		m.logger.Debug("cross-origin request, token not attached",
			zap.String("id", exec.ID), zap.String("url", req.URL))
		return next.Handle(req, exec)
	}
	v, ok := m.reader.Cookie(m.cookieURL(target), m.cookie)
	if !ok || v == "" {
		return next.Handle(req, exec)
	}
	if dec, err := url.PathUnescape(v); err == nil {
		v = dec
	}
	return next.Handle(req.With(request.Overrides{
		Header: http.Header{m.header: {v}},
	}), exec)
}

// sameOrigin reports whether target shares the middleware's origin. A
// target still relative here was not resolved, so it can only be sent
// to wherever the client is pointed.
func (m *Middleware) sameOrigin(target *url.URL) bool {
	if !target.IsAbs() {
		return true
	}
	return m.origin != nil && origin(target) == origin(m.origin)
}

// cookieURL returns the URL whose cookies hold the token: the client's
// origin when known, otherwise the absolute target.
func (m *Middleware) cookieURL(target *url.URL) *url.URL {
	if m.origin != nil {
		return m.origin
	}
	if target.IsAbs() {
		return target
	}
	return nil
}

func origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		switch scheme {
		case "http", "ws":
			port = "80"
		case "https", "wss":
			port = "443"
		}
	}
	return scheme + "://" + host + ":" + port
}
