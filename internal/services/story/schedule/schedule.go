// Package schedule provides the cooperative execution context shared by one
// story session.
//
// Every session callback (input events and timer expirations alike) runs on a
// single execution context, so session state needs no locking. Timers are the
// only form of suspension and every timer can be cancelled; a cancelled timer
// never runs its callback, even when its expiry was already queued.
package schedule

import "time"

// Timer is a pending callback created by a Scheduler.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from running.
	Stop() bool
}

// Scheduler runs delayed callbacks on the session execution context.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Now() time.Time
}

// StopTimer stops t when it is non-nil and returns nil so callers can clear
// their handle in one statement.
func StopTimer(t Timer) Timer {
	if t != nil {
		t.Stop()
	}
	return nil
}
