// Package health tracks whether the instrument is answering.
package health

import (
	"sync"
	"time"

	"pam-dwin-bridge/internal/recovery"

	"github.com/jonboulle/clockwork"
)

// countWindow bounds the success/error counters used for the error rate
const countWindow = 5 * time.Minute

// LinkHealthMonitor tracks instrument online/offline status with a grace
// period, plus windowed success and error counts for the health endpoint.
type LinkHealthMonitor struct {
	mu sync.RWMutex

	clock        clockwork.Clock
	errorManager *recovery.ErrorRecoveryManager

	isOnline      bool
	lastSuccess   time.Time
	lastErrorTime time.Time
	windowStart   time.Time
	successCount  int
	errorCount    int
}

// NewLinkHealthMonitor creates a monitor that starts online
func NewLinkHealthMonitor(gracePeriod time.Duration, clock clockwork.Clock) *LinkHealthMonitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &LinkHealthMonitor{
		clock:        clock,
		errorManager: recovery.NewErrorRecoveryManager(gracePeriod, clock),
		isOnline:     true,
		windowStart:  clock.Now(),
	}
}

func (m *LinkHealthMonitor) rollWindow(now time.Time) {
	if now.Sub(m.windowStart) > countWindow {
		m.windowStart = now
		m.successCount = 0
		m.errorCount = 0
	}
}

// RecordSuccess records a cycle in which the instrument answered and
// reports whether the instrument came back from offline
func (m *LinkHealthMonitor) RecordSuccess() (cameOnline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.rollWindow(now)
	m.successCount++
	m.lastSuccess = now
	m.errorManager.RecordSuccess()

	cameOnline = !m.isOnline
	m.isOnline = true
	return cameOnline
}

// RecordError records a cycle without an answer and reports whether the
// grace period just expired; the caller then calls MarkOffline.
func (m *LinkHealthMonitor) RecordError() (shouldMarkOffline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.rollWindow(now)
	m.errorCount++
	m.lastErrorTime = now
	m.errorManager.RecordError()

	return m.errorManager.ShouldMarkOffline()
}

// MarkOffline marks the instrument offline once per error sequence
func (m *LinkHealthMonitor) MarkOffline() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.isOnline = false
	m.errorManager.MarkAsOffline()
}

// IsOnline returns whether the instrument is currently marked online
func (m *LinkHealthMonitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isOnline
}

// GetLastSuccessTime returns the time of the last answered cycle
func (m *LinkHealthMonitor) GetLastSuccessTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSuccess
}

// GetLastErrorTime returns the time of the last unanswered cycle
func (m *LinkHealthMonitor) GetLastErrorTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErrorTime
}

// GetErrorCount returns the errors in the current window
func (m *LinkHealthMonitor) GetErrorCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorCount
}

// GetSuccessCount returns the successes in the current window
func (m *LinkHealthMonitor) GetSuccessCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.successCount
}

// GetConsecutiveErrors returns the current count of consecutive errors
func (m *LinkHealthMonitor) GetConsecutiveErrors() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorManager.GetConsecutiveErrors()
}

// IsInGracePeriod returns true while errors have not yet lasted the grace period
func (m *LinkHealthMonitor) IsInGracePeriod() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errorManager.IsInGracePeriod()
}
