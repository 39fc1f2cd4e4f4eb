// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"net/http"
	"syscall"

	"github.com/gogama/pipex/request"
)

// A Category is the transience category of a particular error, as
// reported by function Categorize().
//
// The category Not means the error is not transient from the perspective
// of completing an HTTP request successfully, or in other words that a
// retry after encountering this error is very unlikely to succeed.
//
// All other categories indicate the error is transient from the
// perspective of completing an HTTP request successfully, or in other
// words that a retry after encountering this error has some prospect
// of success.
type Category int

const (
	// Not indicates any non-transient error.
	//
	// Caller cancellation, configuration, serialization and decode
	// errors, and HTTP errors with a status code not listed below, are
	// never transient.
	Not Category = iota
	// Timeout indicates a client-side timeout. The server may be going
	// through a temporary period of slowness, or the client may succeed
	// on a future attempt waiting longer.
	//
	// Function Categorize() will return Timeout if the error is of kind
	// request.KindTimeout, or if any error in its chain has a Timeout()
	// function that reports true.
	Timeout
	// ConnRefused indicates the remote host refused the connection, and
	// corresponds to the POSIX error code ECONNREFUSED.
	//
	// Although connection refusal may be a permanent condition, it is
	// classified as transient because it can happen if the service
	// running on the remote host is in the process of starting or
	// restarting. In this case the service is temporarily not listening
	// on the specified port, but will be once its startup is complete.
	//
	// Function Categorize() will return ConnRefused if the error is not
	// a Timeout, and the error or any of its wrapped causes is equal to
	// syscall.ECONNREFUSED.
	ConnRefused
	// ConnReset indicates the remote host returned an RST packet on a
	// previously active TCP connection, and corresponds to the POSIX
	// error code ECONNRESET.
	//
	// Connection reset is not uncommon if, due to poor deployment
	// processes, a service on the remote host comes down prematurely
	// (i.e. while it is still in the process of responding to a
	// request). As well it may happen in a variety of cases where the
	// remote host is a load balancer. For these reasons, a connection
	// reset tends to indicate a high probability of success on retry.
	//
	// Function Categorize() will return ConnReset if the error is not a
	// Timeout, and the error or any of its wrapped causes is equal to
	// syscall.ECONNRESET.
	ConnReset
	// Throttled indicates the server asked the client to slow down with
	// HTTP status 429 (Too Many Requests).
	Throttled
	// Unavailable indicates an HTTP error with status 502 (Bad Gateway),
	// 503 (Service Unavailable) or 504 (Gateway Timeout).
	Unavailable
)

var categoryNames = []string{
	"Not",
	"Timeout",
	"ConnRefused",
	"ConnReset",
	"Throttled",
	"Unavailable",
}

// String returns the name of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Category(?)"
	}
	return categoryNames[c]
}

// Categorize returns the transience category of err.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	if e, ok := request.AsError(err); ok {
		switch e.Kind {
		case request.KindTimeout:
			return Timeout
		case request.KindHTTP:
			return categorizeStatus(e.StatusCode())
		case request.KindNetwork:
		default:
			return Not
		}
	}

	if isTimeout(err) {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == syscall.ECONNRESET {
			return ConnReset
		} else if errno == syscall.ECONNREFUSED {
			return ConnRefused
		}
	}

	return Not
}

func categorizeStatus(status int) Category {
	switch status {
	case http.StatusTooManyRequests:
		return Throttled
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Unavailable
	default:
		return Not
	}
}

// isTimeout walks the whole chain because an outer error may implement
// Timeout() and report false while wrapping a timeout.
func isTimeout(err error) bool {
	for err != nil {
		if t, ok := err.(hasTimeout); ok && t.Timeout() {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

type hasTimeout interface {
	Timeout() bool
}
