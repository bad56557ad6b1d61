package schedule

import "time"

// Debouncer collapses bursts of calls into one callback that runs after the
// burst has been quiet for the configured wait.
type Debouncer struct {
	sched Scheduler
	wait  time.Duration
	timer Timer
}

// NewDebouncer returns a debouncer using sched.
func NewDebouncer(sched Scheduler, wait time.Duration) *Debouncer {
	return &Debouncer{sched: sched, wait: wait}
}

// Trigger cancels any pending callback and schedules fn.
func (d *Debouncer) Trigger(fn func()) {
	d.timer = StopTimer(d.timer)
	var self Timer
	self = d.sched.AfterFunc(d.wait, func() {
		if d.timer != self {
			return
		}
		d.timer = nil
		fn()
	})
	d.timer = self
}

// Pending reports whether a callback is scheduled.
func (d *Debouncer) Pending() bool {
	return d.timer != nil
}

// Cancel drops the pending callback, if any.
func (d *Debouncer) Cancel() {
	d.timer = StopTimer(d.timer)
}
