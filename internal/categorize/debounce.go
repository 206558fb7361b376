package categorize

import (
	"sync"
	"time"
)

// Debouncer settles bursts of input: only the last Trigger within the delay
// runs. Each Trigger starts a new generation, and results computed for an
// older generation are dropped by Deliver.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	gen   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger cancels the pending call, if any, and schedules fn after the
// delay. fn receives the generation this call started.
func (d *Debouncer) Trigger(fn func(gen uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { fn(gen) })
	return gen
}

// Cancel drops the pending call and invalidates results in flight.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Generation returns the latest generation.
func (d *Debouncer) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Deliver runs fn only if gen is still the latest generation. fn runs with
// the debouncer locked and must not call back into it.
func (d *Debouncer) Deliver(gen uint64, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return false
	}
	fn()
	return true
}
