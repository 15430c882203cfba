package config

import (
	"time"

	"pam-dwin-bridge/internal/recovery"
)

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// LinkSettings contains what a serial link needs to open and reopen itself
type LinkSettings struct {
	Name           string
	Port           string
	BaudRate       int
	ReadTimeout    time.Duration
	ReconnectDelay time.Duration
	OpenSettle     time.Duration
}

// NewInstrumentLinkSettings extracts the instrument link settings from full config
func NewInstrumentLinkSettings(cfg *Config) LinkSettings {
	return LinkSettings{
		Name:           "instrument",
		Port:           cfg.Instrument.Port,
		BaudRate:       cfg.Instrument.BaudRate,
		ReadTimeout:    ms(cfg.Instrument.ReadTimeoutMs),
		ReconnectDelay: ms(cfg.Instrument.ReconnectDelayMs),
		OpenSettle:     ms(cfg.Instrument.OpenSettleMs),
	}
}

// NewDisplayLinkSettings extracts the display link settings from full config
func NewDisplayLinkSettings(cfg *Config) LinkSettings {
	return LinkSettings{
		Name:           "display",
		Port:           cfg.Display.Port,
		BaudRate:       cfg.Display.BaudRate,
		ReadTimeout:    ms(cfg.Display.ReadTimeoutMs),
		ReconnectDelay: ms(cfg.Display.ReconnectDelayMs),
	}
}

// InstrumentSettings contains the command exchange timings
type InstrumentSettings struct {
	CommandDelay time.Duration
	ModeSetDelay time.Duration
}

// NewInstrumentSettings extracts instrument client settings from full config
func NewInstrumentSettings(cfg *Config) InstrumentSettings {
	return InstrumentSettings{
		CommandDelay: ms(cfg.Instrument.CommandDelayMs),
		ModeSetDelay: ms(cfg.Bridge.ModeSetDelayMs),
	}
}

// DisplaySettings contains the display writer and selector poll timings
type DisplaySettings struct {
	PageSwitchDelay time.Duration
	SelectorTimeout time.Duration
	SelectorWindow  time.Duration
	SelectorPoll    time.Duration
}

// NewDisplaySettings extracts display settings from full config
func NewDisplaySettings(cfg *Config) DisplaySettings {
	arb := cfg.Bridge.Arbitration
	return DisplaySettings{
		PageSwitchDelay: ms(cfg.Bridge.PageSwitchDelayMs),
		SelectorTimeout: ms(arb.SelectorTimeoutMs),
		SelectorWindow:  ms(arb.SelectorWindowMs),
		SelectorPoll:    ms(arb.SelectorPollMs),
	}
}

// EngineSettings contains the polling cycle configuration
type EngineSettings struct {
	CycleDelay         time.Duration
	FunctionRetryDelay time.Duration
	ModeCheckInterval  time.Duration
	AuxiliaryValue     float64
	SummaryInterval    time.Duration
	ErrorGracePeriod   time.Duration

	ArbitrationEnabled bool
	MismatchPage       uint16
	ArbitrationDelay   time.Duration
}

// NewEngineSettings extracts engine settings from full config
func NewEngineSettings(cfg *Config) EngineSettings {
	aux := DefaultAuxiliaryValue
	if cfg.Bridge.AuxiliaryValue != nil {
		aux = *cfg.Bridge.AuxiliaryValue
	}
	arb := cfg.Bridge.Arbitration
	return EngineSettings{
		CycleDelay:         ms(cfg.Bridge.CycleDelayMs),
		FunctionRetryDelay: ms(cfg.Bridge.FunctionRetryDelayMs),
		ModeCheckInterval:  ms(cfg.Bridge.ModeCheckIntervalMs),
		AuxiliaryValue:     aux,
		SummaryInterval:    time.Duration(cfg.Bridge.SummaryIntervalS) * time.Second,
		ErrorGracePeriod:   time.Duration(cfg.Bridge.ErrorGracePeriodS) * time.Second,
		ArbitrationEnabled: cfg.ArbitrationEnabled(),
		MismatchPage:       uint16(arb.Page),
		ArbitrationDelay:   ms(arb.SettleDelayMs),
	}
}

// TelemetrySettings contains the MQTT exporter configuration
type TelemetrySettings struct {
	Broker            string
	Port              int
	Username          string
	Password          string
	ClientID          string
	KeepAlive         time.Duration
	RetryDelay        time.Duration
	StateTopic        string
	StatusTopic       string
	DiagnosticTopic   string
	PublishInterval   time.Duration
	HeartbeatInterval time.Duration
	PayloadFormat     string
	CircuitBreaker    recovery.CircuitBreakerConfig
}

// NewTelemetrySettings extracts MQTT settings from full config
func NewTelemetrySettings(cfg *Config) TelemetrySettings {
	t := cfg.Telemetry
	return TelemetrySettings{
		Broker:            t.MQTT.Broker,
		Port:              t.MQTT.Port,
		Username:          t.MQTT.Username,
		Password:          t.MQTT.Password,
		ClientID:          t.MQTT.ClientID,
		KeepAlive:         time.Duration(t.MQTT.KeepAlive) * time.Second,
		RetryDelay:        ms(t.MQTT.RetryDelay),
		StateTopic:        t.StateTopic,
		StatusTopic:       t.StatusTopic,
		DiagnosticTopic:   t.DiagnosticTopic,
		PublishInterval:   ms(t.PublishIntervalMs),
		HeartbeatInterval: time.Duration(t.HeartbeatIntervalS) * time.Second,
		PayloadFormat:     t.PayloadFormat,
		CircuitBreaker: recovery.CircuitBreakerConfig{
			MaxFailures:      t.CircuitBreaker.MaxFailures,
			Timeout:          time.Duration(t.CircuitBreaker.TimeoutS) * time.Second,
			HalfOpenMaxTries: t.CircuitBreaker.HalfOpenMaxTries,
		},
	}
}
