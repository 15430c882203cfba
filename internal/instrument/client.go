// Package instrument talks to the measurement instrument over its text
// command protocol.
package instrument

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"pam-dwin-bridge/internal/config"
	bridgeerrors "pam-dwin-bridge/internal/errors"
	"pam-dwin-bridge/internal/link"
	"pam-dwin-bridge/internal/logger"
	"pam-dwin-bridge/internal/metrics"
	"pam-dwin-bridge/internal/scaling"

	"github.com/jonboulle/clockwork"
)

// Instrument commands
const (
	CmdFunction     = "FUNCTION"
	CmdChannelA     = "AINA"
	CmdChannelB     = "AINB"
	CmdValueA       = "WA"
	CmdValueB       = "WB"
	CmdValue        = "W"
	CmdCurrentA     = "IA"
	CmdCurrentB     = "IB"
	CmdMode         = "MODE"
	CmdModeStandard = "MODE STD"
)

const lineTerminator = "\r\n"

// Client issues one command at a time and never returns a link fault to the
// caller: a failed exchange yields an empty response after the link has been
// reopened.
type Client struct {
	link         link.Link
	settings     config.InstrumentSettings
	clock        clockwork.Clock
	metrics      metrics.MetricsCollector
	errorHandler *bridgeerrors.ErrorHandler

	verified      atomic.Bool
	lastModeCheck time.Time
}

// NewClient creates an instrument client on an open link.
// metricsCollector and errorHandler may be nil.
func NewClient(l link.Link, settings config.InstrumentSettings, clock clockwork.Clock, metricsCollector metrics.MetricsCollector, errorHandler *bridgeerrors.ErrorHandler) *Client {
	if metricsCollector == nil {
		metricsCollector = metrics.NewNullMetrics()
	}
	if errorHandler == nil {
		errorHandler = bridgeerrors.NewErrorHandler(nil)
	}
	return &Client{
		link:         l,
		settings:     settings,
		clock:        clock,
		metrics:      metricsCollector,
		errorHandler: errorHandler,
	}
}

// HandleOpen is a link.OpenHook: every (re)open requires a fresh MODE verification
func (c *Client) HandleOpen(name string, reopen bool) {
	c.verified.Store(false)
	c.metrics.SetLinkStatus(name, true)
	if reopen {
		c.metrics.IncReconnects(name)
	}
}

// Verified reports whether STD mode was confirmed since the last open
func (c *Client) Verified() bool {
	return c.verified.Load()
}

// Send discards stale input, writes the command, waits for the instrument to
// answer and returns whatever arrived. The response is empty after a fault.
func (c *Client) Send(ctx context.Context, command string) string {
	if err := c.link.ResetInput(); err != nil {
		c.reconnect(ctx, command, err)
		return ""
	}
	if _, err := c.link.Write([]byte(command + lineTerminator)); err != nil {
		c.reconnect(ctx, command, err)
		return ""
	}

	c.clock.Sleep(c.settings.CommandDelay)

	data, err := c.link.ReadAvailable()
	if err != nil {
		c.reconnect(ctx, command, err)
		return ""
	}

	c.metrics.IncCommands()
	resp := strings.ToValidUTF8(string(data), "")
	logger.LogTrace("📥 %s -> %q", command, resp)
	return resp
}

func (c *Client) reconnect(ctx context.Context, command string, err error) {
	c.metrics.IncCommandFailures()
	c.metrics.SetLinkStatus(c.link.Name(), false)
	c.errorHandler.Handle(ctx, bridgeerrors.NewInstrumentError(command, err))

	c.verified.Store(false)
	if err := c.link.Reopen(ctx); err != nil {
		logger.LogWarn("⚠️ %s reopen abandoned: %v", c.link.Name(), err)
	}
}

// ReadNumber sends a command and parses the numeric reply
func (c *Client) ReadNumber(ctx context.Context, command string) (float64, bool) {
	return ExtractNumber(c.Send(ctx, command))
}

// ReadElectricalMode queries the mode of one channel (CmdChannelA or CmdChannelB)
func (c *Client) ReadElectricalMode(ctx context.Context, channel string) scaling.ElectricalMode {
	return ExtractElectricalMode(c.Send(ctx, channel))
}

// ReadOperatingMode queries the global operating mode
func (c *Client) ReadOperatingMode(ctx context.Context) OperatingMode {
	return ExtractOperatingMode(c.Send(ctx, CmdMode))
}

// ReadFunction queries the active function code
func (c *Client) ReadFunction(ctx context.Context) (scaling.FunctionCode, bool) {
	v, ok := c.ReadNumber(ctx, CmdFunction)
	if !ok {
		return 0, false
	}
	return scaling.FunctionCode(int(v)), true
}

// SetChannelModes switches both channels to the same electrical mode, A first
func (c *Client) SetChannelModes(ctx context.Context, mode scaling.ElectricalMode) {
	marker := mode.String()
	c.Send(ctx, CmdChannelA+" "+marker)
	c.Send(ctx, CmdChannelB+" "+marker)
	logger.LogInfo("🔧 Instrument channels set to %s", marker)
}

// EnsureStandardMode corrects an EXP instrument back to STD. It runs at most
// once per interval and reports whether the check ran.
func (c *Client) EnsureStandardMode(ctx context.Context, interval time.Duration) bool {
	now := c.clock.Now()
	if !c.lastModeCheck.IsZero() && now.Sub(c.lastModeCheck) <= interval {
		return false
	}
	c.lastModeCheck = now

	mode := c.ReadOperatingMode(ctx)
	if mode == OperatingExpanded {
		logger.LogWarn("⚠️ Instrument in EXP mode, switching to STD")
		c.Send(ctx, CmdModeStandard)
		c.clock.Sleep(c.settings.ModeSetDelay)
		mode = c.ReadOperatingMode(ctx)
	}

	switch mode {
	case OperatingStandard:
		if !c.verified.Load() {
			c.verified.Store(true)
			logger.LogInfo("✔ Instrument MODE verified as STD")
		}
	case OperatingExpanded:
		logger.LogWarn("⚠️ Instrument still reports EXP after correction")
	}
	return true
}
