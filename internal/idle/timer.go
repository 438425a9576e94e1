// Package idle provides a single-shot inactivity timer that is rearmed on
// every activity.
package idle

import (
	"sync"
	"time"
)

// Timer calls its callback once when no Touch has happened for the
// configured window. Touch after expiry arms it again.
type Timer struct {
	mu     sync.Mutex
	window time.Duration
	t      *time.Timer
	gen    uint64
	armed  bool
	onFire func(tag uint64)
	tag    uint64
}

// New creates a stopped timer. onFire runs on its own goroutine and receives
// the tag passed to the Touch that armed it.
func New(window time.Duration, onFire func(tag uint64)) *Timer {
	return &Timer{window: window, onFire: onFire}
}

// Touch cancels any pending expiry and schedules a new one.
func (it *Timer) Touch(tag uint64) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.t != nil {
		it.t.Stop()
	}
	it.gen++
	gen := it.gen
	it.tag = tag
	it.armed = true
	it.t = time.AfterFunc(it.window, func() { it.fire(gen) })
}

// Stop cancels any pending expiry.
func (it *Timer) Stop() {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.t != nil {
		it.t.Stop()
		it.t = nil
	}
	it.gen++
	it.armed = false
}

// Armed reports whether an expiry is pending.
func (it *Timer) Armed() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.armed
}

func (it *Timer) fire(gen uint64) {
	it.mu.Lock()
	// A Touch or Stop that raced the runtime timer wins.
	if gen != it.gen || !it.armed {
		it.mu.Unlock()
		return
	}
	it.armed = false
	it.t = nil
	tag := it.tag
	it.mu.Unlock()

	if it.onFire != nil {
		it.onFire(tag)
	}
}
