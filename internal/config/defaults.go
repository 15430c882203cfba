package config

// Default values applied to zero fields
const (
	DefaultInstrumentPort     = "/dev/ttyUSB0"
	DefaultInstrumentBaudRate = 57600
	DefaultInstrumentTimeout  = 150
	DefaultCommandDelay       = 60
	DefaultReconnectDelay     = 1000
	DefaultOpenSettle         = 500

	DefaultDisplayPort     = "/dev/serial0"
	DefaultDisplayBaudRate = 115200
	DefaultDisplayTimeout  = 10

	DefaultCycleDelay         = 30
	DefaultFunctionRetryDelay = 100
	DefaultModeCheckInterval  = 3000
	DefaultModeSetDelay       = 100
	DefaultPageSwitchDelay    = 50
	DefaultAuxiliaryValue     = 24.0
	DefaultSummaryInterval    = 30
	DefaultErrorGracePeriod   = 15

	DefaultMismatchPage     = 28
	DefaultArbitrationDelay = 100
	DefaultSelectorTimeout  = 2000
	DefaultSelectorWindow   = 150
	DefaultSelectorPoll     = 10

	DefaultMQTTPort          = 1883
	DefaultClientID          = "pam-dwin-bridge"
	DefaultKeepAlive         = 60
	DefaultMQTTRetryDelay    = 5000
	DefaultStateTopic        = "pam-dwin-bridge/state"
	DefaultStatusTopic       = "pam-dwin-bridge/status"
	DefaultDiagnosticTopic   = "pam-dwin-bridge/diagnostic"
	DefaultPublishInterval   = 200
	DefaultHeartbeatInterval = 20

	DefaultBreakerMaxFailures = 5
	DefaultBreakerTimeout     = 30
	DefaultBreakerHalfOpen    = 3
)

// ApplyDefaults fills every unset field with its default
func (c *Config) ApplyDefaults() {
	inst := &c.Instrument
	setString(&inst.Port, DefaultInstrumentPort)
	setInt(&inst.BaudRate, DefaultInstrumentBaudRate)
	setInt(&inst.ReadTimeoutMs, DefaultInstrumentTimeout)
	setInt(&inst.CommandDelayMs, DefaultCommandDelay)
	setInt(&inst.ReconnectDelayMs, DefaultReconnectDelay)
	setInt(&inst.OpenSettleMs, DefaultOpenSettle)

	disp := &c.Display
	setString(&disp.Port, DefaultDisplayPort)
	setInt(&disp.BaudRate, DefaultDisplayBaudRate)
	setInt(&disp.ReadTimeoutMs, DefaultDisplayTimeout)
	setInt(&disp.ReconnectDelayMs, DefaultReconnectDelay)

	br := &c.Bridge
	setInt(&br.CycleDelayMs, DefaultCycleDelay)
	setInt(&br.FunctionRetryDelayMs, DefaultFunctionRetryDelay)
	setInt(&br.ModeCheckIntervalMs, DefaultModeCheckInterval)
	setInt(&br.ModeSetDelayMs, DefaultModeSetDelay)
	setInt(&br.PageSwitchDelayMs, DefaultPageSwitchDelay)
	setInt(&br.SummaryIntervalS, DefaultSummaryInterval)
	setInt(&br.ErrorGracePeriodS, DefaultErrorGracePeriod)
	if br.AuxiliaryValue == nil {
		aux := DefaultAuxiliaryValue
		br.AuxiliaryValue = &aux
	}

	arb := &br.Arbitration
	if arb.Enabled == nil {
		enabled := true
		arb.Enabled = &enabled
	}
	setInt(&arb.Page, DefaultMismatchPage)
	setInt(&arb.SettleDelayMs, DefaultArbitrationDelay)
	setInt(&arb.SelectorTimeoutMs, DefaultSelectorTimeout)
	setInt(&arb.SelectorWindowMs, DefaultSelectorWindow)
	setInt(&arb.SelectorPollMs, DefaultSelectorPoll)

	tel := &c.Telemetry
	setInt(&tel.MQTT.Port, DefaultMQTTPort)
	setString(&tel.MQTT.ClientID, DefaultClientID)
	setInt(&tel.MQTT.KeepAlive, DefaultKeepAlive)
	setInt(&tel.MQTT.RetryDelay, DefaultMQTTRetryDelay)
	setString(&tel.StateTopic, DefaultStateTopic)
	setString(&tel.StatusTopic, DefaultStatusTopic)
	setString(&tel.DiagnosticTopic, DefaultDiagnosticTopic)
	setInt(&tel.PublishIntervalMs, DefaultPublishInterval)
	setInt(&tel.HeartbeatIntervalS, DefaultHeartbeatInterval)
	setString(&tel.PayloadFormat, PayloadText)
	setInt(&tel.CircuitBreaker.MaxFailures, DefaultBreakerMaxFailures)
	setInt(&tel.CircuitBreaker.TimeoutS, DefaultBreakerTimeout)
	setInt(&tel.CircuitBreaker.HalfOpenMaxTries, DefaultBreakerHalfOpen)

	setString(&c.Logging.Level, "info")
}

func setInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}
