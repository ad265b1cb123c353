package watchdog

import (
	"testing"
	"time"
)

func TestUnregisteredComponentIsUnhealthy(t *testing.T) {
	w := NewWatchdog(time.Second)
	if w.IsHealthy("nope") {
		t.Error("unknown component reported healthy")
	}
}

func TestQuietAtStartupStaysHealthy(t *testing.T) {
	w := NewWatchdog(time.Second)
	w.RegisterComponent("gateway", time.Millisecond)

	w.check()
	if !w.IsHealthy("gateway") {
		t.Error("component with no heartbeat yet should stay healthy")
	}
}

func TestStaleHeartbeatFlipsUnhealthyAndRecovers(t *testing.T) {
	w := NewWatchdog(time.Second)
	w.RegisterComponent("sweeper", 10*time.Millisecond)

	w.Heartbeat("sweeper")
	time.Sleep(25 * time.Millisecond)
	w.check()
	if w.IsHealthy("sweeper") {
		t.Fatal("stale component still healthy")
	}

	w.Heartbeat("sweeper")
	w.check()
	if !w.IsHealthy("sweeper") {
		t.Error("component did not recover after fresh heartbeat")
	}
}
