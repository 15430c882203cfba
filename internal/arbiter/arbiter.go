// Package arbiter resolves a disagreement between the two channel modes of
// the dual function with the help of the operator.
package arbiter

import (
	"context"

	"pam-dwin-bridge/internal/logger"
	"pam-dwin-bridge/internal/metrics"
	"pam-dwin-bridge/internal/scaling"
)

// State of the arbitration
type State int

const (
	StateNormal State = iota
	StateAwaitingSelection
)

func (s State) String() string {
	if s == StateAwaitingSelection {
		return "awaiting-selection"
	}
	return "normal"
}

// Selector values reported by the display
const (
	SelectVoltage uint16 = 0
	SelectCurrent uint16 = 1
)

// ModeSetter applies one electrical mode to both instrument channels
type ModeSetter interface {
	SetChannelModes(ctx context.Context, mode scaling.ElectricalMode)
}

// PageSwitcher shows a page on the display
type PageSwitcher interface {
	SwitchPage(ctx context.Context, page uint16) error
}

// Selector reads the operator's choice; false means no decision yet
type Selector interface {
	Poll(ctx context.Context) (uint16, bool)
}

// Arbiter is the Normal/AwaitingSelection state machine
type Arbiter struct {
	page     uint16
	modes    ModeSetter
	pages    PageSwitcher
	selector Selector
	metrics  metrics.MetricsCollector

	state   State
	applied bool
}

// New creates an arbiter that shows page on a mismatch. metricsCollector may be nil.
func New(page uint16, modes ModeSetter, pages PageSwitcher, selector Selector, metricsCollector metrics.MetricsCollector) *Arbiter {
	if metricsCollector == nil {
		metricsCollector = metrics.NewNullMetrics()
	}
	return &Arbiter{
		page:     page,
		modes:    modes,
		pages:    pages,
		selector: selector,
		metrics:  metricsCollector,
	}
}

// State returns the current state
func (a *Arbiter) State() State {
	return a.state
}

// Applied reports whether the operator's selection was sent to the instrument
func (a *Arbiter) Applied() bool {
	return a.applied
}

// Observe feeds the channel modes read in a dual-function cycle and reports
// whether the modes disagree. On the first disagreement the mismatch page is
// shown; if that fails the state stays Normal and the switch is retried on
// the next disagreeing cycle.
func (a *Arbiter) Observe(ctx context.Context, modeA, modeB scaling.ElectricalMode) bool {
	if modeA.Known() && modeB.Known() && modeA != modeB {
		if a.state == StateNormal {
			logger.LogWarn("⚠️ Channel mode mismatch (A=%s, B=%s), waiting for operator selection", modeA, modeB)
			if err := a.pages.SwitchPage(ctx, a.page); err != nil {
				return true
			}
			a.state = StateAwaitingSelection
			a.applied = false
			a.metrics.SetArbiterState(true)
		}
		return true
	}

	if a.state == StateAwaitingSelection {
		logger.LogInfo("✅ Channel modes agree again (A=%s, B=%s)", modeA, modeB)
		a.state = StateNormal
		a.applied = false
		a.metrics.SetArbiterState(false)
	}
	return false
}

// Resolve polls the selector once while a selection is pending and applies it
func (a *Arbiter) Resolve(ctx context.Context) {
	if a.state != StateAwaitingSelection || a.applied {
		return
	}

	sel, ok := a.selector.Poll(ctx)
	if !ok {
		logger.LogDebug("No operator selection yet")
		return
	}

	switch sel {
	case SelectVoltage:
		a.modes.SetChannelModes(ctx, scaling.ModeVoltage)
	case SelectCurrent:
		a.modes.SetChannelModes(ctx, scaling.ModeCurrent)
	default:
		logger.LogDebug("Ignoring selector value %d", sel)
		return
	}
	a.applied = true
	logger.LogInfo("🎛 Operator selected %d", sel)
}
