// Package engine runs the polling cycle that moves instrument readings to
// the display.
package engine

import (
	"context"
	"sync"
	"time"

	"pam-dwin-bridge/internal/arbiter"
	"pam-dwin-bridge/internal/config"
	"pam-dwin-bridge/internal/display"
	"pam-dwin-bridge/internal/health"
	"pam-dwin-bridge/internal/instrument"
	"pam-dwin-bridge/internal/logger"
	"pam-dwin-bridge/internal/metrics"
	"pam-dwin-bridge/internal/scaling"

	"github.com/jonboulle/clockwork"
)

// Outcome describes how a cycle ended
type Outcome int

const (
	OutcomeCompleted   Outcome = iota
	OutcomeNoFunction          // function code unreadable, nothing changed
	OutcomeArbitration         // cycle spent on a channel mode mismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeNoFunction:
		return "no-function"
	case OutcomeArbitration:
		return "arbitration"
	default:
		return "unknown"
	}
}

const currentDivisor = 10.0

// Engine drives all instrument and display I/O from a single goroutine.
// Only Snapshot may be called concurrently.
type Engine struct {
	settings config.EngineSettings
	client   *instrument.Client
	display  *display.Display
	arbiter  *arbiter.Arbiter // nil when arbitration is disabled
	monitor  *health.LinkHealthMonitor
	clock    clockwork.Clock
	metrics  metrics.MetricsCollector

	// last values read, carried across cycles for the snapshot
	modeA, modeB       scaling.ElectricalMode
	valueA, valueB     reading
	currentA, currentB reading
	mismatchWarned     bool

	mu       sync.RWMutex
	snapshot Snapshot

	stats       cycleStats
	lastSummary time.Time
}

type cycleStats struct {
	cycles      uint64
	noFunction  uint64
	arbitration uint64
	framesSent  uint64
	suppressed  uint64
	mismatches  uint64 // unresolved mismatches seen with arbitration disabled
}

// Dependencies groups the collaborators of the engine. Metrics and Monitor may be nil.
type Dependencies struct {
	Client   *instrument.Client
	Display  *display.Display
	Selector *display.SelectorPoller
	Clock    clockwork.Clock
	Metrics  metrics.MetricsCollector
	Monitor  *health.LinkHealthMonitor
}

// New wires an engine
func New(settings config.EngineSettings, deps Dependencies) *Engine {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNullMetrics()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	e := &Engine{
		settings:    settings,
		client:      deps.Client,
		display:     deps.Display,
		monitor:     deps.Monitor,
		clock:       deps.Clock,
		metrics:     deps.Metrics,
		lastSummary: deps.Clock.Now(),
	}
	if settings.ArbitrationEnabled {
		e.arbiter = arbiter.New(settings.MismatchPage, deps.Client, deps.Display, deps.Selector, deps.Metrics)
	}
	return e
}

// Snapshot returns a copy of the last published state
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// ArbiterState reports the arbitration state; always normal when disabled
func (e *Engine) ArbiterState() arbiter.State {
	if e.arbiter == nil {
		return arbiter.StateNormal
	}
	return e.arbiter.State()
}

// Run loops until ctx is cancelled. Cancellation is checked between cycles.
func (e *Engine) Run(ctx context.Context) error {
	logger.LogInfo("🚀 Bridge engine running (arbitration: %v)", e.arbiter != nil)
	for {
		select {
		case <-ctx.Done():
			logger.LogInfo("🛑 Bridge engine stopped after %d cycles", e.stats.cycles)
			return ctx.Err()
		default:
		}
		e.RunCycle(ctx)
	}
}

// RunCycle performs one polling iteration
func (e *Engine) RunCycle(ctx context.Context) Outcome {
	start := e.clock.Now()
	e.stats.cycles++

	e.client.EnsureStandardMode(ctx, e.settings.ModeCheckInterval)

	fn, ok := e.client.ReadFunction(ctx)
	if !ok {
		e.stats.noFunction++
		e.recordHealth(false)
		e.clock.Sleep(e.settings.FunctionRetryDelay)
		e.maybeLogSummary()
		return OutcomeNoFunction
	}
	e.recordHealth(true)

	switch fn {
	case scaling.FunctionDual:
		if !e.runDual(ctx) {
			e.stats.arbitration++
			e.clock.Sleep(e.settings.ArbitrationDelay)
			e.maybeLogSummary()
			return OutcomeArbitration
		}
	case scaling.FunctionSingle:
		e.runSingle(ctx)
	default:
		logger.LogTrace("Function %s has no register layout", fn)
	}

	e.runTail(ctx)
	e.publish(fn)

	e.clock.Sleep(e.settings.CycleDelay)
	e.metrics.ObserveCycleDuration(e.clock.Now().Sub(start))
	e.maybeLogSummary()
	return OutcomeCompleted
}

// runDual reports false when the cycle was handed to the arbiter
func (e *Engine) runDual(ctx context.Context) bool {
	e.modeA = e.client.ReadElectricalMode(ctx, instrument.CmdChannelA)
	e.modeB = e.client.ReadElectricalMode(ctx, instrument.CmdChannelB)

	if e.arbiter != nil {
		if e.arbiter.Observe(ctx, e.modeA, e.modeB) {
			e.arbiter.Resolve(ctx)
			return false
		}
	} else {
		e.warnOnMismatch()
	}

	if e.modeA.Known() {
		e.sendMode(ctx, e.modeA)
	}

	e.valueA = e.readValue(ctx, instrument.CmdValueA)
	e.valueB = e.readValue(ctx, instrument.CmdValueB)

	e.sendScaled(ctx, display.RegPrimary, e.valueA, e.modeA, scaling.FunctionDual)
	e.sendScaled(ctx, display.RegSecondary, e.valueB, e.modeB, scaling.FunctionDual)
	return true
}

// warnOnMismatch logs once per disagreement; the scaled pair is not comparable
// until the channels agree again.
func (e *Engine) warnOnMismatch() {
	mismatch := e.modeA.Known() && e.modeB.Known() && e.modeA != e.modeB
	if !mismatch {
		e.mismatchWarned = false
		return
	}
	if e.mismatchWarned {
		return
	}
	e.mismatchWarned = true
	e.stats.mismatches++
	logger.LogWarn("⚠️ Channel modes differ (A=%s, B=%s) and arbitration is disabled; values are scaled per channel", e.modeA, e.modeB)
}

func (e *Engine) runSingle(ctx context.Context) {
	e.modeA = e.client.ReadElectricalMode(ctx, instrument.CmdChannelA)
	if e.modeA.Known() {
		e.sendMode(ctx, e.modeA)
	}

	e.valueA = e.readValue(ctx, instrument.CmdValue)
	e.valueB = reading{value: 0, ok: true}

	e.sendScaled(ctx, display.RegPrimary, e.valueA, e.modeA, scaling.FunctionSingle)
	e.sendValue(ctx, display.RegSecondary, 0.0)
}

func (e *Engine) runTail(ctx context.Context) {
	e.currentA = e.readValue(ctx, instrument.CmdCurrentA)
	e.currentB = e.readValue(ctx, instrument.CmdCurrentB)

	if e.currentA.ok {
		e.sendValue(ctx, display.RegCurrentA, e.currentA.value/currentDivisor)
	}
	if e.currentB.ok {
		e.sendValue(ctx, display.RegCurrentB, e.currentB.value/currentDivisor)
	}
	e.sendValue(ctx, display.RegAuxiliary, e.settings.AuxiliaryValue)
}

func (e *Engine) readValue(ctx context.Context, command string) reading {
	v, ok := e.client.ReadNumber(ctx, command)
	return reading{value: v, ok: ok}
}

func (e *Engine) sendScaled(ctx context.Context, reg uint16, r reading, mode scaling.ElectricalMode, fn scaling.FunctionCode) {
	if !r.ok {
		return
	}
	v, ok := scaling.Scale(r.value, mode, fn)
	if !ok {
		return
	}
	e.sendValue(ctx, reg, v)
}

func (e *Engine) sendValue(ctx context.Context, reg uint16, v float64) {
	e.count(e.display.SendValue(ctx, reg, v))
}

func (e *Engine) sendMode(ctx context.Context, mode scaling.ElectricalMode) {
	e.count(e.display.SendMode(ctx, mode))
}

func (e *Engine) count(sent bool) {
	if sent {
		e.stats.framesSent++
	} else {
		e.stats.suppressed++
	}
}

// publish stores the snapshot. Values not read this cycle keep their last
// reading; the scaled values use the current function with the last known
// channel modes, so the single function reports channel B as zero scaled
// with the mode channel B last had.
func (e *Engine) publish(fn scaling.FunctionCode) {
	snap := Snapshot{
		Valid:     true,
		Cycle:     e.stats.cycles,
		UpdatedAt: e.clock.Now(),
		Function:  fn,
		ValueA:    scaledPtr(e.valueA, e.modeA, fn),
		ValueB:    scaledPtr(e.valueB, e.modeB, fn),
		CurrentA:  e.currentA.ptr(),
		CurrentB:  e.currentB.ptr(),
		Mode:      e.modeA,
	}

	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()
}

func (e *Engine) recordHealth(answered bool) {
	if e.monitor == nil {
		return
	}
	if answered {
		if e.monitor.RecordSuccess() {
			logger.LogInfo("✅ Instrument answering again")
		}
		return
	}
	if e.monitor.RecordError() {
		logger.LogWarn("🔴 Instrument has not answered for %d cycles, marking offline", e.monitor.GetConsecutiveErrors())
		e.monitor.MarkOffline()
	}
}

func (e *Engine) maybeLogSummary() {
	if e.settings.SummaryInterval <= 0 {
		return
	}
	now := e.clock.Now()
	if now.Sub(e.lastSummary) < e.settings.SummaryInterval {
		return
	}
	e.lastSummary = now
	logger.LogInfo("📊 Summary: %d cycles, %d without function, %d arbitration, %d frames sent, %d suppressed",
		e.stats.cycles, e.stats.noFunction, e.stats.arbitration, e.stats.framesSent, e.stats.suppressed)
}
