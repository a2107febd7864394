package capture

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Debouncer runs at most one deferred task. Arming it again before the delay
// elapses replaces the pending task.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu      sync.Mutex
	timer   *clock.Timer
	gen     uint64
	stopped bool
}

// NewDebouncer returns a Debouncer on clk. A nil clk uses the wall clock.
func NewDebouncer(clk clock.Clock, delay time.Duration) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	return &Debouncer{clock: clk, delay: delay}
}

// Arm schedules fn after the delay, cancelling any pending task.
func (d *Debouncer) Arm(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.cancelLocked()
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.stopped || d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop cancels the pending task and makes later Arm calls no-ops.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// Pending reports whether a task is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) cancelLocked() {
	// The generation bump covers a timer that already fired but has not
	// taken the lock yet.
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
