package timingwheel

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestOneShotFiresAfterCeilDelayTicks(t *testing.T) {
	w := New(8, time.Millisecond)
	var fired int32
	id := w.AddTask(5*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	if id == InvalidTaskID {
		t.Fatalf("expected a valid task id")
	}
	for i := 0; i < 5; i++ {
		if atomic.LoadInt32(&fired) != 0 {
			t.Fatalf("task fired early at tick %d", i)
		}
		w.Tick()
	}
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("expected exactly one fire, got %d", fired)
	}
	for i := 0; i < 5; i++ {
		w.Tick()
	}
	if atomic.LoadInt32(&fired) != 1 {
		t.Fatalf("expected no further fires, got %d", fired)
	}
}

func TestCancelBeforeFirePreventsFiring(t *testing.T) {
	w := New(8, time.Millisecond)
	var fired int32
	id := w.AddTask(3*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	w.Cancel(id)
	for i := 0; i < 10; i++ {
		w.Tick()
	}
	if fired != 0 {
		t.Fatalf("cancelled task fired")
	}
}

func TestCancelAfterFirstFireStopsPeriodicTask(t *testing.T) {
	w := New(4, time.Millisecond)
	var fired int32
	id := w.AddPeriodicTask(2*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	for i := 0; i < 2; i++ {
		w.Tick()
	}
	if fired != 1 {
		t.Fatalf("expected first fire, got %d", fired)
	}
	w.Cancel(id)
	for i := 0; i < 10; i++ {
		w.Tick()
	}
	if fired != 1 {
		t.Fatalf("expected no fires after cancel, got %d", fired)
	}
}

func TestInvalidDelaysRejected(t *testing.T) {
	w := New(8, time.Millisecond)
	cases := []time.Duration{-1, 0, MaxSafeDelay + time.Second}
	for _, d := range cases {
		if id := w.AddTask(d, func() {}); id != InvalidTaskID {
			t.Fatalf("delay %v: expected InvalidTaskID, got %d", d, id)
		}
	}
	if id := w.AddTask(time.Second, nil); id != InvalidTaskID {
		t.Fatalf("nil fn: expected InvalidTaskID, got %d", id)
	}
}

func TestLongDelaySpanningMultipleLaps(t *testing.T) {
	w := New(4, time.Millisecond)
	var fired int32
	// 10 ticks over a 4-slot wheel spans 2 full laps plus 2 ticks.
	w.AddTask(10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	for i := 0; i < 9; i++ {
		w.Tick()
		if fired != 0 {
			t.Fatalf("fired early at tick %d", i+1)
		}
	}
	w.Tick()
	if fired != 1 {
		t.Fatalf("expected fire at tick 10, got %d", fired)
	}
}
