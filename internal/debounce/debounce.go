// Package debounce coalesces bursts of calls into single executions.
package debounce

import (
	"sync"
	"time"
)

// Debouncer collapses a burst of Call invocations into one execution of fn
// with the most recent value. With only a quiet period set, fn runs once no
// new value has arrived for quiet. A nonzero deadline also bounds latency:
// fn runs no later than deadline after the first call of a burst, even if
// calls keep arriving faster than the quiet period.
//
// A zero or negative quiet period disables coalescing; Call then invokes fn
// inline. Otherwise fn runs on a timer goroutine and must be safe to call
// from there.
type Debouncer[T any] struct {
	quiet    time.Duration
	deadline time.Duration
	fn       func(T)

	mu        sync.Mutex
	latest    T
	pending   bool
	stopped   bool
	quietT    *time.Timer
	deadlineT *time.Timer
}

// New creates a Debouncer around fn. deadline may be zero to run in
// quiet-period mode only.
func New[T any](quiet, deadline time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{quiet: quiet, deadline: deadline, fn: fn}
}

// Call records v as the pending value and restarts the quiet timer. The
// first call of a burst also arms the deadline timer, which is not moved by
// later calls.
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	if d.quiet <= 0 {
		d.mu.Unlock()
		d.fn(v)
		return
	}

	d.latest = v
	if d.pending {
		d.quietT.Reset(d.quiet)
		d.mu.Unlock()
		return
	}

	d.pending = true
	if d.quietT == nil {
		d.quietT = time.AfterFunc(d.quiet, d.fire)
	} else {
		d.quietT.Reset(d.quiet)
	}
	if d.deadline > 0 {
		if d.deadlineT == nil {
			d.deadlineT = time.AfterFunc(d.deadline, d.fire)
		} else {
			d.deadlineT.Reset(d.deadline)
		}
	}
	d.mu.Unlock()
}

// Flush runs fn with the pending value now, if there is one.
func (d *Debouncer[T]) Flush() {
	d.fire()
}

// Stop cancels any pending execution and makes later Calls no-ops.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = false
	d.stopTimersLocked()
	d.mu.Unlock()
}

// fire is the shared execution path for both timers and for Flush. The
// pending flag guarantees a burst executes at most once even when the quiet
// and deadline timers go off together.
func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	v := d.latest
	d.stopTimersLocked()
	d.mu.Unlock()

	d.fn(v)
}

func (d *Debouncer[T]) stopTimersLocked() {
	if d.quietT != nil {
		d.quietT.Stop()
	}
	if d.deadlineT != nil {
		d.deadlineT.Stop()
	}
}
