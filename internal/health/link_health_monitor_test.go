package health

import (
	"testing"
	"time"

	"pam-dwin-bridge/internal/timing"
)

func TestMonitorGoesOfflineAfterGracePeriod(t *testing.T) {
	clock := timing.NewFakeClock()
	m := NewLinkHealthMonitor(15*time.Second, clock)

	if !m.IsOnline() {
		t.Fatal("Expected monitor to start online")
	}

	if m.RecordError() {
		t.Error("Expected first error to stay within the grace period")
	}
	if !m.IsInGracePeriod() {
		t.Error("Expected grace period to be running")
	}

	clock.Advance(20 * time.Second)
	if !m.RecordError() {
		t.Fatal("Expected grace period expiry to request offline")
	}
	m.MarkOffline()
	if m.IsOnline() {
		t.Error("Expected monitor to be offline")
	}
	if m.RecordError() {
		t.Error("Expected offline to be requested once per sequence")
	}

	if !m.RecordSuccess() {
		t.Error("Expected success to report coming back online")
	}
	if !m.IsOnline() || m.GetConsecutiveErrors() != 0 {
		t.Error("Expected success to restore online status")
	}
}

func TestMonitorCountsInWindow(t *testing.T) {
	clock := timing.NewFakeClock()
	m := NewLinkHealthMonitor(15*time.Second, clock)

	m.RecordSuccess()
	m.RecordSuccess()
	m.RecordError()

	if m.GetSuccessCount() != 2 || m.GetErrorCount() != 1 {
		t.Errorf("Expected 2/1, got %d/%d", m.GetSuccessCount(), m.GetErrorCount())
	}
	if !m.GetLastSuccessTime().Equal(clock.Now()) {
		t.Errorf("Expected last success at %v, got %v", clock.Now(), m.GetLastSuccessTime())
	}

	clock.Advance(6 * time.Minute)
	m.RecordSuccess()
	if m.GetSuccessCount() != 1 || m.GetErrorCount() != 0 {
		t.Errorf("Expected counters to restart with the window, got %d/%d", m.GetSuccessCount(), m.GetErrorCount())
	}
}
