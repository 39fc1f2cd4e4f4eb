// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package csrf provides a middleware which copies a CSRF token from a
cookie into a request header, the double-submit pattern used by many
web frameworks.

The cookie is read through a CookieReader. By default it is read from a
cookie jar created by the middleware, which should also be installed
on the HTTP client so that cookies set by the server land in it:

	mw, err := csrf.New(csrf.Options{Origin: "https://app.example.com"})
	if err != nil {
		return err
	}
	cl, err := pipex.New(pipex.Config{
		HTTPDoer: &http.Client{Jar: mw.Jar()},
		BaseURL:  "https://app.example.com/api/",
	}, mw)

The token is only attached to same-origin requests unless
Options.AllowCrossOrigin is set. Installed as a plugin, the middleware
checks the URL produced by the client's URL resolver, so a relative URL
is same-origin only when the client's base URL is. Installed with
Registry.Use, it resolves URLs with Options.Resolver instead.
*/
package csrf
