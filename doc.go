// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package pipex provides a pluggable HTTP request runtime: an onion-style
middleware pipeline wrapping a swappable transport, with extension
points for URL resolution, body serialization, response decoding and
error normalization.

Create a Client to begin making requests.

	client, err := pipex.New(pipex.Config{
		BaseURL: "https://api.example.com/v1",
		Timeout: 10 * time.Second,
	})
	...
	resp, err := client.Get(ctx, "/users/42")
	...
	resp, err := client.Post(ctx, "/users", map[string]string{"name": "Ada"})

Plugins customize the client while it is constructed. A plugin may
replace any strategy, append middlewares, and subscribe to events:

	client, err := pipex.New(cfg,
		pipex.PluginFunc(func(r *pipex.Registry) error {
			am, err := auth.New(auth.Options{Store: store, Refresh: refresh})
			if err != nil {
				return err
			}
			r.Use(retry.New(retry.Options{Retries: 3, Delay: retry.DefaultWaiter}))
			r.Use(am)
			r.On(pipex.Error, pipex.ListenerFunc(
				func(_ pipex.Event, info *pipex.EventInfo) {
					log.Printf("%s %s failed: %v", info.Request.Method, info.Request.URL, info.Err)
				}))
			return nil
		}),
	)

Middlewares run in registration order: the first registered sees the
request first and the response last. Each middleware receives the same
request.Execution for the whole logical request, and may exchange data
with other middlewares through its Bag.

Lifecycle logging, Prometheus metrics and OpenTelemetry tracing are
provided by packages logging, metrics and tracing.

For control over how requests are sent, use a custom HTTPDoer in the
Config, or replace the transport entirely with Registry.SetTransport.

Package pipex provides basic interfaces for each method of the client
(Doer, Getter, Header, Poster, Putter, Patcher, Deleter, and
IdleCloser); a combined interface that composes all the basic methods
(Executor); and utility functions for working with a Doer (Inflate,
Get, Head, Post, Put, Patch, and Delete).
*/
package pipex
