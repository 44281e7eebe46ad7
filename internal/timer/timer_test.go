package timer_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"quantcapital/internal/timer"
)

func TestTimer_FiresRepeatedly(t *testing.T) {
	var count int32
	tm, err := timer.New("t1", 10*time.Millisecond, true, 0, func(_ context.Context, _ time.Time) {
		atomic.AddInt32(&count, 1)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tm.Start(context.Background())
	time.Sleep(55 * time.Millisecond)
	tm.Stop(time.Second)

	if got := atomic.LoadInt32(&count); got < 3 {
		t.Fatalf("expected at least 3 ticks in 55ms at 10ms interval, got %d", got)
	}
}

func TestTimer_NonRepeatingFiresOnce(t *testing.T) {
	var count int32
	tm, _ := timer.New("t1", 5*time.Millisecond, false, 0, func(_ context.Context, _ time.Time) {
		atomic.AddInt32(&count, 1)
	})
	tm.Start(context.Background())
	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("expected exactly 1 tick for non-repeating timer, got %d", got)
	}
}

func TestTimer_RejectsNonPositiveInterval(t *testing.T) {
	if _, err := timer.New("t1", 0, true, 0, func(context.Context, time.Time) {}); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}

func TestTimer_PanickingCallbackDoesNotKillLoop(t *testing.T) {
	var count int32
	tm, _ := timer.New("t1", 5*time.Millisecond, true, 0, func(_ context.Context, _ time.Time) {
		n := atomic.AddInt32(&count, 1)
		if n == 1 {
			panic("boom")
		}
	})
	tm.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	tm.Stop(time.Second)
	if got := atomic.LoadInt32(&count); got < 2 {
		t.Fatalf("expected loop to continue after a panicking tick, got %d ticks", got)
	}
}

func TestManager_RejectsDuplicateID(t *testing.T) {
	m := timer.NewManager()
	t1, _ := timer.New("dup", time.Second, true, 0, func(context.Context, time.Time) {})
	t2, _ := timer.New("dup", time.Second, true, 0, func(context.Context, time.Time) {})

	if err := m.Add(t1); err != nil {
		t.Fatalf("unexpected error adding first timer: %v", err)
	}
	if err := m.Add(t2); err == nil {
		t.Fatalf("expected error adding duplicate timer id")
	}
}

func TestManager_StartAllStopAll(t *testing.T) {
	m := timer.NewManager()
	var count int32
	for _, id := range []string{"a", "b", "c"} {
		tm, _ := timer.New(id, 5*time.Millisecond, true, 0, func(_ context.Context, _ time.Time) {
			atomic.AddInt32(&count, 1)
		})
		if err := m.Add(tm); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	m.StartAll(context.Background())
	time.Sleep(20 * time.Millisecond)
	m.StopAll(time.Second)

	if m.Len() != 3 {
		t.Fatalf("expected 3 registered timers, got %d", m.Len())
	}
	if atomic.LoadInt32(&count) == 0 {
		t.Fatalf("expected at least one tick across all timers")
	}
}
