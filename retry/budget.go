// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"sync"
	"time"
)

// A Limit restricts the number of retries which may be started within a
// sliding time window.
type Limit struct {
	// MaxRetries is the maximum number of retries allowed within the
	// period. It must be positive.
	MaxRetries int
	// Period is the length of the sliding window.
	Period time.Duration
}

// A Budget limits the total number of retries made across all the
// logical requests sharing it, protecting a struggling server from a
// retry storm.
//
// A retry is allowed only if every limit of the budget has room for it,
// in which case it is counted against every limit. A Budget is safe for
// concurrent use by multiple goroutines.
type Budget struct {
	limits []limitQueue
	now    func() time.Time
	lock   sync.Mutex
}

// NewBudget constructs a retry budget enforcing all the given limits.
func NewBudget(limits ...Limit) *Budget {
	b := &Budget{
		limits: make([]limitQueue, len(limits)),
		now:    time.Now,
	}
	for i, l := range limits {
		if l.MaxRetries < 1 {
			panic("pipex/retry: MaxRetries must be positive")
		}
		b.limits[i] = newLimitQueue(l.Period, l.MaxRetries)
	}
	return b
}

// Allow reports whether a retry may be started now, and if so, records
// it against every limit.
func (b *Budget) Allow() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	now := b.now()
	for i := range b.limits {
		if !b.limits[i].hasRoom(now) {
			return false
		}
	}
	for i := range b.limits {
		b.limits[i].push(now)
	}
	return true
}

// limitQueue is a ring buffer of the start times of the retries
// counted within the current window.
type limitQueue struct {
	period     time.Duration
	a          []time.Time
	start, len int
}

func newLimitQueue(period time.Duration, cap int) limitQueue {
	return limitQueue{
		period: period,
		a:      make([]time.Time, cap),
	}
}

func (q *limitQueue) hasRoom(t time.Time) bool {
	cutoff := t.Add(-q.period)
	for q.len > 0 && !cutoff.Before(q.a[q.start]) {
		q.start = (q.start + 1) % len(q.a)
		q.len--
	}
	return q.len < len(q.a)
}

func (q *limitQueue) push(t time.Time) {
	q.a[(q.start+q.len)%len(q.a)] = t
	q.len++
}
