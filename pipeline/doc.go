// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package pipeline contains the middleware contract and the compositor
which folds a list of middlewares around the terminal strategy chain.

A middleware sees the request on the way in and the response or error
on the way out:

	timing := pipeline.MiddlewareFunc(func(req *request.Request, exec *request.Execution, next pipeline.Handler) (*request.Response, error) {
		start := time.Now()
		resp, err := next.Handle(req, exec)
		log.Printf("%s %s took %s", req.Method, req.URL, time.Since(start))
		return resp, err
	})

	h := pipeline.Compose(pipeline.Terminal(strategies), timing, auth, retry)

The first middleware passed to Compose is the outermost layer.
*/
package pipeline
