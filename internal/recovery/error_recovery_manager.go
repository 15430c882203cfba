// Package recovery holds the fault tolerance helpers shared by the link
// health monitor and the telemetry exporter.
package recovery

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrorRecoveryManager tracks a sequence of consecutive errors and decides
// when the grace period is over and the instrument should be reported offline.
// It is not safe for concurrent use; callers hold their own lock.
type ErrorRecoveryManager struct {
	consecutiveErrors  int
	firstErrorTime     time.Time
	errorGracePeriod   time.Duration
	statusSetToOffline bool
	clock              clockwork.Clock
}

// NewErrorRecoveryManager creates a new error recovery manager
func NewErrorRecoveryManager(gracePeriod time.Duration, clock clockwork.Clock) *ErrorRecoveryManager {
	if gracePeriod == 0 {
		gracePeriod = 15 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ErrorRecoveryManager{
		errorGracePeriod: gracePeriod,
		clock:            clock,
	}
}

// RecordError records an error and reports whether the grace period has expired
func (m *ErrorRecoveryManager) RecordError() bool {
	m.consecutiveErrors++
	if m.firstErrorTime.IsZero() {
		m.firstErrorTime = m.clock.Now()
	}
	return m.clock.Now().Sub(m.firstErrorTime) >= m.errorGracePeriod
}

// RecordSuccess ends the current error sequence
func (m *ErrorRecoveryManager) RecordSuccess() {
	m.Reset()
}

// GetConsecutiveErrors returns the current count of consecutive errors
func (m *ErrorRecoveryManager) GetConsecutiveErrors() int {
	return m.consecutiveErrors
}

// ShouldMarkOffline is true once per error sequence, after the grace period
func (m *ErrorRecoveryManager) ShouldMarkOffline() bool {
	if m.statusSetToOffline || m.firstErrorTime.IsZero() {
		return false
	}
	return m.clock.Now().Sub(m.firstErrorTime) >= m.errorGracePeriod
}

// MarkAsOffline prevents repeated offline reports for the same sequence
func (m *ErrorRecoveryManager) MarkAsOffline() {
	m.statusSetToOffline = true
}

// IsInGracePeriod is true between the first error and the end of the grace period
func (m *ErrorRecoveryManager) IsInGracePeriod() bool {
	if m.firstErrorTime.IsZero() {
		return false
	}
	return m.clock.Now().Sub(m.firstErrorTime) < m.errorGracePeriod
}

// Reset clears all error tracking state
func (m *ErrorRecoveryManager) Reset() {
	m.consecutiveErrors = 0
	m.firstErrorTime = time.Time{}
	m.statusSetToOffline = false
}
