package idle

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerFiresOnceAfterWindow(t *testing.T) {
	var fired atomic.Int32
	var gotTag atomic.Uint64
	it := New(20*time.Millisecond, func(tag uint64) {
		fired.Add(1)
		gotTag.Store(tag)
	})
	it.Touch(7)

	time.Sleep(80 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Fatalf("expected exactly one fire, got %d", n)
	}
	if gotTag.Load() != 7 {
		t.Fatalf("expected tag 7, got %d", gotTag.Load())
	}
	if it.Armed() {
		t.Fatal("timer should be disarmed after firing")
	}
}

func TestTouchPostponesExpiry(t *testing.T) {
	var fired atomic.Int32
	it := New(60*time.Millisecond, func(uint64) { fired.Add(1) })
	it.Touch(1)
	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		it.Touch(1)
	}
	if fired.Load() != 0 {
		t.Fatal("timer fired despite activity")
	}
	time.Sleep(120 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("expected one fire after activity stopped, got %d", fired.Load())
	}
}

func TestStopCancelsExpiry(t *testing.T) {
	var fired atomic.Int32
	it := New(20*time.Millisecond, func(uint64) { fired.Add(1) })
	it.Touch(1)
	it.Stop()
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("stopped timer fired")
	}
	if it.Armed() {
		t.Fatal("stopped timer reports armed")
	}
}

func TestStaleFireIsIgnored(t *testing.T) {
	var fired atomic.Int32
	it := New(time.Hour, func(uint64) { fired.Add(1) })
	it.Touch(1)
	it.mu.Lock()
	stale := it.gen
	it.mu.Unlock()
	it.Touch(2)

	it.fire(stale)
	if fired.Load() != 0 {
		t.Fatal("fire from a superseded arm must be ignored")
	}
	it.Stop()
}
