// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package pipex

import (
	"go.uber.org/zap"
)

// A ListenerGroup is a group of event listener chains which can be
// installed in a Registry.
type ListenerGroup struct {
	listeners [][]Listener
}

// PushBack adds an event listener to the back of the event listener
// chain for a specific event type.
func (g *ListenerGroup) PushBack(evt Event, l Listener) {
	if l == nil {
		panic("pipex: nil listener")
	}

	if g.listeners == nil {
		g.listeners = make([][]Listener, numEvents)
	}

	g.listeners[evt] = append(g.listeners[evt], l)
}

// Len returns the number of listeners installed for evt.
func (g *ListenerGroup) Len(evt Event) int {
	i := int(evt)
	if i < len(g.listeners) {
		return len(g.listeners[i])
	}
	return 0
}

func (g *ListenerGroup) run(evt Event, info *EventInfo, logger *zap.Logger) {
	i := int(evt)
	if i < len(g.listeners) {
		run(g.listeners[i], evt, info, logger)
	}
}

func run(chain []Listener, evt Event, info *EventInfo, logger *zap.Logger) {
	for _, l := range chain {
		runOne(l, evt, info, logger)
	}
}

// runOne isolates a panicking listener from the request and from the
// rest of the chain.
func runOne(l Listener, evt Event, info *EventInfo, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			fields := []zap.Field{zap.Stringer("event", evt), zap.Any("panic", r)}
			if info.Exec != nil {
				fields = append(fields, zap.String("id", info.Exec.ID))
			}
			logger.Error("event listener panicked", fields...)
		}
	}()
	l.Handle(evt, info)
}

// A Listener handles the occurrence of a lifecycle event.
//
// Listeners run synchronously on the goroutine dispatching the request,
// so they should return quickly. A panicking listener is recovered and
// logged; it does not affect the request or other listeners.
type Listener interface {
	Handle(Event, *EventInfo)
}

// The ListenerFunc type is an adapter to allow the use of ordinary
// functions as event listeners. If f is a function with appropriate
// signature, then ListenerFunc(f) is a Listener that calls f.
type ListenerFunc func(Event, *EventInfo)

// Handle calls f(evt, info).
func (f ListenerFunc) Handle(evt Event, info *EventInfo) {
	f(evt, info)
}
