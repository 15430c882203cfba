package config

import (
	"fmt"

	"pam-dwin-bridge/internal/logger"

	multierror "github.com/hashicorp/go-multierror"
)

// Validate checks the whole configuration and reports every problem at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Instrument.Port == "" {
		result = multierror.Append(result, fmt.Errorf("instrument.port is not specified"))
	}
	if c.Instrument.BaudRate <= 0 {
		result = multierror.Append(result, fmt.Errorf("instrument.baud_rate must be positive"))
	}
	if c.Display.Port == "" {
		result = multierror.Append(result, fmt.Errorf("display.port is not specified"))
	}
	if c.Display.BaudRate <= 0 {
		result = multierror.Append(result, fmt.Errorf("display.baud_rate must be positive"))
	}
	if c.Instrument.Port != "" && c.Instrument.Port == c.Display.Port {
		result = multierror.Append(result, fmt.Errorf("instrument.port and display.port must differ (both %s)", c.Display.Port))
	}

	for name, value := range map[string]int{
		"instrument.read_timeout_ms":                    c.Instrument.ReadTimeoutMs,
		"instrument.command_delay_ms":                   c.Instrument.CommandDelayMs,
		"instrument.reconnect_delay_ms":                 c.Instrument.ReconnectDelayMs,
		"instrument.open_settle_ms":                     c.Instrument.OpenSettleMs,
		"display.read_timeout_ms":                       c.Display.ReadTimeoutMs,
		"display.reconnect_delay_ms":                    c.Display.ReconnectDelayMs,
		"bridge.cycle_delay_ms":                         c.Bridge.CycleDelayMs,
		"bridge.function_retry_delay_ms":                c.Bridge.FunctionRetryDelayMs,
		"bridge.mode_check_interval_ms":                 c.Bridge.ModeCheckIntervalMs,
		"bridge.mode_set_delay_ms":                      c.Bridge.ModeSetDelayMs,
		"bridge.page_switch_delay_ms":                   c.Bridge.PageSwitchDelayMs,
		"bridge.summary_interval_s":                     c.Bridge.SummaryIntervalS,
		"bridge.error_grace_period_s":                   c.Bridge.ErrorGracePeriodS,
		"bridge.arbitration.settle_delay_ms":            c.Bridge.Arbitration.SettleDelayMs,
		"bridge.arbitration.selector_timeout_ms":        c.Bridge.Arbitration.SelectorTimeoutMs,
		"bridge.arbitration.selector_poll_ms":           c.Bridge.Arbitration.SelectorPollMs,
		"telemetry.publish_interval_ms":                 c.Telemetry.PublishIntervalMs,
		"telemetry.heartbeat_interval_s":                c.Telemetry.HeartbeatIntervalS,
		"telemetry.circuit_breaker.timeout_s":           c.Telemetry.CircuitBreaker.TimeoutS,
		"telemetry.circuit_breaker.max_failures":        c.Telemetry.CircuitBreaker.MaxFailures,
		"telemetry.mqtt.retry_delay":                    c.Telemetry.MQTT.RetryDelay,
		"telemetry.mqtt.keep_alive":                     c.Telemetry.MQTT.KeepAlive,
		"telemetry.circuit_breaker.half_open_max_tries": c.Telemetry.CircuitBreaker.HalfOpenMaxTries,
	} {
		if value < 0 {
			result = multierror.Append(result, fmt.Errorf("%s must be non-negative", name))
		}
	}

	arb := c.Bridge.Arbitration
	if arb.Page < 0 || arb.Page > 0xFFFF {
		result = multierror.Append(result, fmt.Errorf("bridge.arbitration.page must be within [0, 65535], got %d", arb.Page))
	}
	if arb.SelectorWindowMs <= 0 {
		result = multierror.Append(result, fmt.Errorf("bridge.arbitration.selector_window_ms must be positive"))
	}
	if arb.SelectorWindowMs > arb.SelectorTimeoutMs {
		logger.LogWarn("⚠️  bridge.arbitration.selector_window_ms (%d) exceeds selector_timeout_ms (%d)",
			arb.SelectorWindowMs, arb.SelectorTimeoutMs)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.MQTT.Broker == "" {
			result = multierror.Append(result, fmt.Errorf("telemetry.mqtt.broker is not specified"))
		}
		if c.Telemetry.MQTT.Port <= 0 || c.Telemetry.MQTT.Port > 65535 {
			result = multierror.Append(result, fmt.Errorf("telemetry.mqtt.port must be within [1, 65535]"))
		}
	}
	switch c.Telemetry.PayloadFormat {
	case PayloadText, PayloadJSON:
	default:
		result = multierror.Append(result, fmt.Errorf("telemetry.payload_format must be %q or %q, got %q",
			PayloadText, PayloadJSON, c.Telemetry.PayloadFormat))
	}

	if c.HTTP.HealthPort < 0 || c.HTTP.HealthPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("http.health_port must be within [0, 65535]"))
	}
	if c.HTTP.MetricsPort < 0 || c.HTTP.MetricsPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("http.metrics_port must be within [0, 65535]"))
	}
	if c.HTTP.HealthPort != 0 && c.HTTP.HealthPort == c.HTTP.MetricsPort {
		result = multierror.Append(result, fmt.Errorf("http.health_port and http.metrics_port must differ"))
	}

	if !logger.IsValidLevel(c.Logging.Level) {
		result = multierror.Append(result, fmt.Errorf("logging.level %q is not one of error, warn, info, debug, trace", c.Logging.Level))
	}

	return result.ErrorOrNil()
}
