// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pipex

import (
	"context"
	"errors"
	"time"

	"github.com/gogama/pipex/request"
)

// An Event identifies the lifecycle event type when installing or
// running a Listener. Install event listeners in a Registry to observe
// the requests a Client dispatches.
type Event int

const (
	// Start identifies the event that occurs when the client begins
	// dispatching a logical request, before the first middleware runs.
	//
	// When Client fires Start, the EventInfo's Request and Exec fields
	// are set. Response and Err are nil.
	Start Event = iota
	// End identifies the event that occurs after the pipeline produced
	// a response without error.
	//
	// When Client fires End, Response is non-nil, and Duration and
	// Attempt describe the whole logical request including any retries.
	End
	// Error identifies the event that occurs after the pipeline
	// returned an error which is not a caller cancellation. Timeouts
	// are reported as Error events.
	//
	// When Client fires Error, Err is non-nil. Response may be non-nil
	// if the error carries one (for example an HTTP status error).
	Error
	// Abort identifies the event that occurs when the logical request
	// ended because the caller cancelled it.
	//
	// When Client fires Abort, Err is the cancellation error.
	Abort
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"Start",
	"End",
	"Error",
	"Abort",
}

// Events returns a slice containing all lifecycle events, in the order
// in which they may occur. Exactly one of End, Error and Abort follows
// each Start.
func Events() []Event {
	return []Event{
		Start,
		End,
		Error,
		Abort,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}

// EventInfo is the payload delivered to listeners. Listeners must not
// modify it.
type EventInfo struct {
	Request  *request.Request
	Response *request.Response
	Err      error
	Exec     *request.Execution
	// Duration is the elapsed time of the whole logical request. It is
	// zero for Start.
	Duration time.Duration
	// Attempt is the final value of the execution's attempt counter. It
	// is zero for Start.
	Attempt int
}

// outcome returns the terminal event for a settled request.
func outcome(err error, exec *request.Execution) Event {
	if err == nil {
		return End
	}
	if e, ok := request.AsError(err); ok {
		if e.Kind == request.KindCanceled {
			return Abort
		}
		return Error
	}
	if errors.Is(err, context.Canceled) && !exec.TimedOut() {
		return Abort
	}
	return Error
}
