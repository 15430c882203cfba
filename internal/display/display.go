package display

import (
	"context"

	"pam-dwin-bridge/internal/config"
	bridgeerrors "pam-dwin-bridge/internal/errors"
	"pam-dwin-bridge/internal/link"
	"pam-dwin-bridge/internal/logger"
	"pam-dwin-bridge/internal/metrics"
	"pam-dwin-bridge/internal/scaling"

	"github.com/jonboulle/clockwork"
)

// Frame kinds reported to metrics
const (
	KindValue    = "value"
	KindMode     = "mode"
	KindPage     = "page"
	KindSelector = "selector"
)

// Display writes cache-gated frames to the display link.
//
// A failed write is logged and not retried. The link is reopened before the
// next frame and the cache is cleared so the display gets a full refresh.
type Display struct {
	link         link.Link
	cache        *ChangeCache
	settings     config.DisplaySettings
	clock        clockwork.Clock
	metrics      metrics.MetricsCollector
	errorHandler *bridgeerrors.ErrorHandler

	faulted bool
}

// New creates a display writer. metricsCollector and errorHandler may be nil.
func New(l link.Link, settings config.DisplaySettings, clock clockwork.Clock, metricsCollector metrics.MetricsCollector, errorHandler *bridgeerrors.ErrorHandler) *Display {
	if metricsCollector == nil {
		metricsCollector = metrics.NewNullMetrics()
	}
	if errorHandler == nil {
		errorHandler = bridgeerrors.NewErrorHandler(nil)
	}
	return &Display{
		link:         l,
		cache:        NewChangeCache(),
		settings:     settings,
		clock:        clock,
		metrics:      metricsCollector,
		errorHandler: errorHandler,
	}
}

// Cache exposes the change cache
func (d *Display) Cache() *ChangeCache {
	return d.cache
}

// Link returns the underlying display link
func (d *Display) Link() link.Link {
	return d.link
}

// SendValue quantizes v and writes it to reg if it changed. It reports
// whether a frame was attempted.
func (d *Display) SendValue(ctx context.Context, reg uint16, v float64) bool {
	return d.sendGated(ctx, reg, Quantize(v), KindValue)
}

// SendMode writes the mode register if it changed
func (d *Display) SendMode(ctx context.Context, mode scaling.ElectricalMode) bool {
	return d.sendGated(ctx, RegMode, ModeValue(mode), KindMode)
}

func (d *Display) sendGated(ctx context.Context, reg uint16, value int16, kind string) bool {
	d.recoverIfFaulted(ctx)

	if !d.cache.ShouldSend(reg, value) {
		d.metrics.IncFramesSuppressed()
		return false
	}

	if err := d.write(ctx, EncodeValue(reg, value), reg, kind); err != nil {
		return true
	}
	logger.LogTrace("📤 0x%04X <- %d", reg, value)
	return true
}

// SwitchPage selects a display page, waits for the display to settle and
// drops whatever it pushed back in the meantime.
func (d *Display) SwitchPage(ctx context.Context, page uint16) error {
	d.recoverIfFaulted(ctx)

	if err := d.write(ctx, EncodePageSwitch(page), RegPage, KindPage); err != nil {
		return err
	}
	if err := d.link.Flush(); err != nil {
		logger.LogDebug("Display flush failed: %v", err)
	}
	d.clock.Sleep(d.settings.PageSwitchDelay)
	if err := d.link.ResetInput(); err != nil {
		logger.LogDebug("Display input reset failed: %v", err)
	}

	logger.LogInfo("📄 Switched to page %d", page)
	return nil
}

func (d *Display) write(ctx context.Context, frame []byte, reg uint16, kind string) error {
	if _, err := d.link.Write(frame); err != nil {
		d.metrics.IncFrameErrors()
		return d.fault(ctx, "write "+kind+" frame", reg, err)
	}
	d.metrics.IncFramesSent(kind)
	return nil
}

// fault marks the link for a reopen before the next frame or poll
func (d *Display) fault(ctx context.Context, op string, reg uint16, err error) error {
	d.faulted = true
	d.metrics.SetLinkStatus(d.link.Name(), false)
	wrapped := bridgeerrors.NewDisplayError(op, err, reg)
	d.errorHandler.Handle(ctx, wrapped)
	return wrapped
}

// Faulted reports whether the link waits for a reopen
func (d *Display) Faulted() bool {
	return d.faulted
}

func (d *Display) recoverIfFaulted(ctx context.Context) {
	if !d.faulted {
		return
	}
	if err := d.link.Reopen(ctx); err != nil {
		logger.LogWarn("⚠️ %s reopen abandoned: %v", d.link.Name(), err)
		return
	}
	d.faulted = false
	d.cache.Reset()
	d.metrics.SetLinkStatus(d.link.Name(), true)
	d.metrics.IncReconnects(d.link.Name())
}
