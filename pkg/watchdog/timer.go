// Package watchdog provides the countdown timer used to detect silent
// connection loss. A Timer fires its callback once per elapsed
// countdown; any activity on the connection resets it before expiry.
package watchdog

import (
	"sync"
	"time"
)

// Timer is a resettable single-shot countdown. With auto-restart
// enabled it rearms itself after every firing, turning into a periodic
// watchdog that keeps firing until reset by observed activity.
//
// At most one countdown is pending per Timer. Reset and Cancel act
// atomically with respect to firing: a Reset that completes before the
// callback has started executing prevents that callback. A callback
// already executing is allowed to finish.
type Timer struct {
	mu sync.Mutex

	timeout     time.Duration
	callback    func()
	autoRestart bool

	// generation invalidates in-flight expiries. Every Start, Reset
	// and Cancel bumps it; an expiry only fires if its generation is
	// still current when it acquires the lock.
	generation uint64
	timer      *time.Timer
	active     bool
}

// New creates a timer with the given timeout and expiry callback.
// If autostart is true the first countdown begins immediately.
func New(timeout time.Duration, callback func(), autostart bool) *Timer {
	t := &Timer{
		timeout:  timeout,
		callback: callback,
	}
	if autostart {
		t.Start()
	}
	return t
}

// SetAutoRestart controls whether the timer rearms itself after firing.
func (t *Timer) SetAutoRestart(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoRestart = enabled
}

// SetTimeout changes the duration used by future countdowns. A
// countdown already in progress keeps its original deadline until the
// next Reset or Start.
func (t *Timer) SetTimeout(timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
}

// Timeout returns the duration used by future countdowns.
func (t *Timer) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// Start begins a countdown. If one is already pending it is restarted.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startLocked()
}

// Reset cancels any pending countdown and starts a fresh one of the
// configured timeout.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startLocked()
}

// Cancel stops any pending countdown. The timer stays inert until
// Start or Reset is called again.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.active = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Active reports whether a countdown is currently pending.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Timer) startLocked() {
	t.generation++
	t.active = true
	if t.timer != nil {
		t.timer.Stop()
	}
	gen := t.generation
	t.timer = time.AfterFunc(t.timeout, func() {
		t.expire(gen)
	})
}

// expire runs on the time.AfterFunc goroutine. The generation check
// discards expiries that lost a race against Reset or Cancel.
func (t *Timer) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		return
	}
	t.active = false
	callback := t.callback
	t.mu.Unlock()

	if callback != nil {
		callback()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Rearm only if nobody touched the timer while the callback ran.
	if t.autoRestart && gen == t.generation {
		t.startLocked()
	}
}
