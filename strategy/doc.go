// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package strategy defines the single-method components invoked by the
terminal stage of a pipex pipeline, and their default implementations.

There are five strategies, each independently replaceable through the
client registry:

	Transport        sends a prepared request and returns the response
	URLResolver      turns a request's raw URL and query into an absolute URL
	BodySerializer   turns a request's body into bytes and a content type
	ResponseDecoder  turns a transport response into a request.Response
	ErrorMapper      normalizes raw errors into *request.Error values

The defaults are HTTPTransport, DefaultURLResolver, DefaultBodySerializer,
DefaultResponseDecoder and DefaultErrorMapper. A replacement which only
wants to handle some cases should keep a reference to the strategy it
displaces and fall back to it.
*/
package strategy
