package display

import (
	"context"

	"pam-dwin-bridge/internal/logger"
)

// selectorReplyLen is the shortest buffer that carries a selector value
const selectorReplyLen = 8

// SelectorPoller reads the operator's choice from the selector register.
// It shares the display's link, so a fault here reopens the link before the
// next frame or poll.
type SelectorPoller struct {
	display *Display
}

// NewSelectorPoller creates a poller on the display's link
func NewSelectorPoller(d *Display) *SelectorPoller {
	return &SelectorPoller{display: d}
}

// Poll repeats the read request until at least 8 bytes have accumulated and
// returns the last two as a big-endian value. It gives up after the selector
// timeout, on a link fault or when ctx is done.
func (p *SelectorPoller) Poll(ctx context.Context) (uint16, bool) {
	d := p.display
	d.recoverIfFaulted(ctx)
	if d.faulted {
		return 0, false
	}

	request := EncodeSelectorRead()
	var buf []byte

	if err := d.link.ResetInput(); err != nil {
		d.fault(ctx, "reset selector input", RegSelector, err)
		return 0, false
	}

	clock := d.clock
	start := clock.Now()
	for clock.Now().Sub(start) < d.settings.SelectorTimeout {
		if ctx.Err() != nil {
			return 0, false
		}
		if err := d.write(ctx, request, RegSelector, KindSelector); err != nil {
			logger.LogDebug("Selector poll: write failed: %v", err)
			return 0, false
		}

		windowStart := clock.Now()
		for clock.Now().Sub(windowStart) < d.settings.SelectorWindow {
			data, err := d.link.ReadAvailable()
			if err != nil {
				d.fault(ctx, "read selector", RegSelector, err)
				return 0, false
			}
			if len(data) > 0 {
				buf = append(buf, data...)
				if len(buf) >= selectorReplyLen {
					n := len(buf)
					value := uint16(buf[n-2])<<8 | uint16(buf[n-1])
					logger.LogDebug("Selector value %d (%d bytes)", value, n)
					return value, true
				}
			}
			clock.Sleep(d.settings.SelectorPoll)
		}
	}

	logger.LogDebug("Selector poll timed out after %v with %d bytes", d.settings.SelectorTimeout, len(buf))
	return 0, false
}
