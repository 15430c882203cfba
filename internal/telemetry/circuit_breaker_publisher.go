package telemetry

import (
	"context"
	"fmt"
	"time"

	"pam-dwin-bridge/internal/engine"
	"pam-dwin-bridge/internal/logger"
	"pam-dwin-bridge/internal/recovery"

	"github.com/jonboulle/clockwork"
)

// CircuitBreakerPublisher wraps snapshot publishing with a circuit breaker so
// a dead broker fails fast instead of stalling every publish tick.
// Status and diagnostic messages pass straight through.
type CircuitBreakerPublisher struct {
	publisher      SnapshotPublisher
	circuitBreaker *recovery.CircuitBreaker
	clock          clockwork.Clock
	lastLogTime    time.Time
	lastState      recovery.CircuitState
}

// NewCircuitBreakerPublisher creates a publisher guarded by a circuit breaker
func NewCircuitBreakerPublisher(publisher SnapshotPublisher, cfg recovery.CircuitBreakerConfig, clock clockwork.Clock) *CircuitBreakerPublisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger.LogInfo("🔌 Circuit breaker initialized for telemetry (MaxFailures: %d, Timeout: %s)",
		cfg.MaxFailures, cfg.Timeout)

	return &CircuitBreakerPublisher{
		publisher:      publisher,
		circuitBreaker: recovery.NewCircuitBreaker(cfg, clock),
		clock:          clock,
		lastLogTime:    clock.Now(),
		lastState:      recovery.StateClosed,
	}
}

// PublishSnapshot publishes through the circuit breaker
func (cbp *CircuitBreakerPublisher) PublishSnapshot(ctx context.Context, snap engine.Snapshot) error {
	err := cbp.circuitBreaker.Call(func() error {
		return cbp.publisher.PublishSnapshot(ctx, snap)
	})
	cbp.logStateIfChanged()
	return err
}

// PublishStatusOnline delegates to the underlying publisher
func (cbp *CircuitBreakerPublisher) PublishStatusOnline(ctx context.Context) error {
	return cbp.publisher.PublishStatusOnline(ctx)
}

// PublishStatusOffline delegates to the underlying publisher
func (cbp *CircuitBreakerPublisher) PublishStatusOffline(ctx context.Context) error {
	return cbp.publisher.PublishStatusOffline(ctx)
}

// PublishDiagnostic delegates to the underlying publisher
func (cbp *CircuitBreakerPublisher) PublishDiagnostic(ctx context.Context, code int, message string) error {
	return cbp.publisher.PublishDiagnostic(ctx, code, message)
}

// GetState returns the current circuit breaker state
func (cbp *CircuitBreakerPublisher) GetState() recovery.CircuitState {
	return cbp.circuitBreaker.GetState()
}

// GetCircuitBreakerStats returns current circuit breaker statistics
func (cbp *CircuitBreakerPublisher) GetCircuitBreakerStats() recovery.CircuitBreakerStats {
	return cbp.circuitBreaker.GetStats()
}

// ResetCircuitBreaker manually closes the circuit
func (cbp *CircuitBreakerPublisher) ResetCircuitBreaker() {
	logger.LogInfo("🔄 Manually resetting telemetry circuit breaker")
	cbp.circuitBreaker.Reset()
}

// logStateIfChanged logs transitions immediately and the current state at most once a minute
func (cbp *CircuitBreakerPublisher) logStateIfChanged() {
	state := cbp.circuitBreaker.GetState()
	now := cbp.clock.Now()
	if state == cbp.lastState && now.Sub(cbp.lastLogTime) <= time.Minute {
		return
	}
	cbp.lastState = state
	cbp.lastLogTime = now

	switch state {
	case recovery.StateClosed:
		logger.LogDebug("🟢 Telemetry circuit breaker: CLOSED (normal operation)")
	case recovery.StateOpen:
		logger.LogWarn("🔴 Telemetry circuit breaker: OPEN (failures: %d, fast-failing snapshots)", cbp.circuitBreaker.GetFailures())
	case recovery.StateHalfOpen:
		logger.LogInfo("🟡 Telemetry circuit breaker: HALF-OPEN (testing recovery)")
	}
}

func (cbp *CircuitBreakerPublisher) String() string {
	stats := cbp.circuitBreaker.GetStats()
	return fmt.Sprintf("CircuitBreakerPublisher{%s}", stats.String())
}

var _ SnapshotPublisher = (*CircuitBreakerPublisher)(nil)
