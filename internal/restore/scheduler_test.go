package restore

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestJobFiresAndAppliesSnapshot(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	applied := make(chan map[string]int64, 1)
	s.Schedule("g1", map[string]int64{"role-1": 104324673}, 10*time.Millisecond,
		func(guildID string, snapshot map[string]int64) {
			applied <- snapshot
		})

	select {
	case snap := <-applied:
		if snap["role-1"] != 104324673 {
			t.Fatalf("snapshot not applied bit-for-bit: %v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("restore job never fired")
	}

	if s.Pending("g1") {
		t.Fatal("fired job must be cleared")
	}
}

func TestCancelBeforeFirePreventsMutation(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var applied atomic.Int32
	s.Schedule("g1", map[string]int64{"role-1": 1}, 30*time.Millisecond,
		func(string, map[string]int64) { applied.Add(1) })

	if !s.Cancel("g1") {
		t.Fatal("cancel of pending job must report true")
	}
	if s.Cancel("g1") {
		t.Fatal("second cancel must be a no-op")
	}

	time.Sleep(80 * time.Millisecond)
	if applied.Load() != 0 {
		t.Fatal("cancelled job mutated permissions")
	}
}

func TestDoubleFireAppliesAtMostOnce(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var applied atomic.Int32
	job := s.Schedule("g1", map[string]int64{"r": 2}, time.Hour,
		func(string, map[string]int64) { applied.Add(1) })

	// Simulate the timer racing itself.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.fire(job)
		}()
	}
	wg.Wait()

	if got := applied.Load(); got != 1 {
		t.Fatalf("expected exactly one apply, got %d", got)
	}
}

func TestReschedulingReplacesOldJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var firstApplied atomic.Int32
	old := s.Schedule("g1", map[string]int64{"r": 1}, time.Hour,
		func(string, map[string]int64) { firstApplied.Add(1) })

	applied := make(chan int64, 1)
	s.Schedule("g1", map[string]int64{"r": 2}, 10*time.Millisecond,
		func(guildID string, snapshot map[string]int64) { applied <- snapshot["r"] })

	// The replaced timer firing late must be discarded.
	s.fire(old)
	if firstApplied.Load() != 0 {
		t.Fatal("replaced job applied a stale snapshot")
	}

	select {
	case v := <-applied:
		if v != 2 {
			t.Fatalf("expected fresh snapshot, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("replacement job never fired")
	}
}

func TestOnFireListenerRuns(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	fired := make(chan string, 1)
	s.OnFire(func(guildID string) { fired <- guildID })
	s.Schedule("g9", map[string]int64{}, 5*time.Millisecond, func(string, map[string]int64) {})

	select {
	case guildID := <-fired:
		if guildID != "g9" {
			t.Fatalf("listener got wrong guild %s", guildID)
		}
	case <-time.After(time.Second):
		t.Fatal("listener never invoked")
	}
}

func TestOneJobPerGuild(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	s.Schedule("g1", map[string]int64{"r": 1}, time.Hour, nil)
	s.Schedule("g1", map[string]int64{"r": 2}, time.Hour, nil)

	if !s.Pending("g1") {
		t.Fatal("expected a pending job")
	}
	s.Cancel("g1")
	if s.Pending("g1") {
		t.Fatal("expected no pending job after cancel")
	}
}
