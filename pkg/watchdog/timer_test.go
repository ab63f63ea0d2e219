package watchdog

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerFiresOnce(t *testing.T) {
	var fired atomic.Int32

	timer := New(30*time.Millisecond, func() {
		fired.Add(1)
	}, true)
	defer timer.Cancel()

	time.Sleep(120 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1", got)
	}
	if timer.Active() {
		t.Error("timer should be inert after firing without auto-restart")
	}
}

func TestTimerNoAutostart(t *testing.T) {
	var fired atomic.Int32

	timer := New(20*time.Millisecond, func() {
		fired.Add(1)
	}, false)
	defer timer.Cancel()

	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("callback fired %d times before Start", got)
	}

	timer.Start()
	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("callback fired %d times after Start, want 1", got)
	}
}

func TestTimerResetDefersExpiry(t *testing.T) {
	var fired atomic.Int32

	timer := New(60*time.Millisecond, func() {
		fired.Add(1)
	}, true)
	defer timer.Cancel()

	// Keep resetting before the deadline - the callback must not run.
	for range 5 {
		time.Sleep(20 * time.Millisecond)
		timer.Reset()
	}

	if got := fired.Load(); got != 0 {
		t.Errorf("callback fired %d times despite resets", got)
	}

	// Stop resetting - now it should fire.
	time.Sleep(150 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("callback fired %d times after resets stopped, want 1", got)
	}
}

func TestTimerCancel(t *testing.T) {
	var fired atomic.Int32

	timer := New(30*time.Millisecond, func() {
		fired.Add(1)
	}, true)

	timer.Cancel()
	time.Sleep(80 * time.Millisecond)

	if got := fired.Load(); got != 0 {
		t.Errorf("callback fired %d times after Cancel", got)
	}
	if timer.Active() {
		t.Error("Active() = true after Cancel")
	}
}

func TestTimerAutoRestart(t *testing.T) {
	var fired atomic.Int32

	timer := New(25*time.Millisecond, func() {
		fired.Add(1)
	}, true)
	timer.SetAutoRestart(true)
	defer timer.Cancel()

	// Roughly four periods; expect one callback per period, not more.
	time.Sleep(110 * time.Millisecond)

	got := fired.Load()
	if got < 3 || got > 5 {
		t.Errorf("callback fired %d times, want about 4", got)
	}
}

func TestTimerSetTimeoutAffectsFutureCountdowns(t *testing.T) {
	var fired atomic.Int32

	timer := New(30*time.Millisecond, func() {
		fired.Add(1)
	}, true)
	defer timer.Cancel()

	// Lengthening the timeout must not stretch the countdown already
	// in progress.
	timer.SetTimeout(10 * time.Second)
	time.Sleep(90 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("in-progress countdown fired %d times, want 1", got)
	}

	// The next countdown uses the new duration.
	timer.SetTimeout(20 * time.Millisecond)
	timer.Reset()
	time.Sleep(60 * time.Millisecond)
	if got := fired.Load(); got != 2 {
		t.Errorf("callback fired %d times total, want 2", got)
	}
}

func TestTimerResetDuringCallbackSuppressesRearm(t *testing.T) {
	var fired atomic.Int32
	release := make(chan struct{})
	entered := make(chan struct{}, 1)

	var timer *Timer
	timer = New(20*time.Millisecond, func() {
		fired.Add(1)
		entered <- struct{}{}
		<-release
	}, false)
	timer.SetAutoRestart(true)
	timer.SetTimeout(20 * time.Millisecond)
	timer.Start()
	defer timer.Cancel()

	<-entered
	// Cancel while the callback is blocked; the rearm must be skipped.
	timer.Cancel()
	close(release)

	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("callback fired %d times, want 1 (no rearm after Cancel)", got)
	}
}

func TestTimerConcurrentResetSafe(t *testing.T) {
	var fired atomic.Int32

	timer := New(5*time.Millisecond, func() {
		fired.Add(1)
	}, true)
	timer.SetAutoRestart(true)
	defer timer.Cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 200 {
			timer.Reset()
			time.Sleep(time.Millisecond)
		}
	}()
	<-done

	// No assertion on the exact count; the race detector checks the
	// locking and firing may legitimately interleave with resets.
	timer.Cancel()
}
