package config

import (
	"fmt"
	"os"

	"pam-dwin-bridge/internal/logger"

	"gopkg.in/yaml.v3"
)

// Payload formats for the telemetry exporter
const (
	PayloadText = "text"
	PayloadJSON = "json"
)

// Config represents the complete application configuration
type Config struct {
	Instrument InstrumentConfig     `yaml:"instrument"`
	Display    DisplayConfig        `yaml:"display"`
	Bridge     BridgeConfig         `yaml:"bridge"`
	Telemetry  TelemetryConfig      `yaml:"telemetry"`
	HTTP       HTTPConfig           `yaml:"http"`
	Logging    logger.LoggingConfig `yaml:"logging"`
}

// InstrumentConfig describes the serial link to the measurement instrument
type InstrumentConfig struct {
	Port             string `yaml:"port"`
	BaudRate         int    `yaml:"baud_rate"`
	ReadTimeoutMs    int    `yaml:"read_timeout_ms"`
	CommandDelayMs   int    `yaml:"command_delay_ms"`   // Settle time between write and read
	ReconnectDelayMs int    `yaml:"reconnect_delay_ms"` // Interval between reopen attempts
	OpenSettleMs     int    `yaml:"open_settle_ms"`     // Pause after the port opens
}

// DisplayConfig describes the serial link to the HMI display
type DisplayConfig struct {
	Port             string `yaml:"port"`
	BaudRate         int    `yaml:"baud_rate"`
	ReadTimeoutMs    int    `yaml:"read_timeout_ms"`
	ReconnectDelayMs int    `yaml:"reconnect_delay_ms"`
}

// BridgeConfig holds the polling cycle timings
type BridgeConfig struct {
	CycleDelayMs         int               `yaml:"cycle_delay_ms"`
	FunctionRetryDelayMs int               `yaml:"function_retry_delay_ms"`
	ModeCheckIntervalMs  int               `yaml:"mode_check_interval_ms"`
	ModeSetDelayMs       int               `yaml:"mode_set_delay_ms"`
	PageSwitchDelayMs    int               `yaml:"page_switch_delay_ms"`
	AuxiliaryValue       *float64          `yaml:"auxiliary_value,omitempty"`
	SummaryIntervalS     int               `yaml:"summary_interval_s"`
	ErrorGracePeriodS    int               `yaml:"error_grace_period_s"`
	Arbitration          ArbitrationConfig `yaml:"arbitration"`
}

// ArbitrationConfig controls the mode-mismatch resolution
type ArbitrationConfig struct {
	Enabled           *bool `yaml:"enabled,omitempty"`
	Page              int   `yaml:"page"`
	SettleDelayMs     int   `yaml:"settle_delay_ms"`
	SelectorTimeoutMs int   `yaml:"selector_timeout_ms"`
	SelectorWindowMs  int   `yaml:"selector_window_ms"`
	SelectorPollMs    int   `yaml:"selector_poll_ms"`
}

// TelemetryConfig controls the MQTT exporter
type TelemetryConfig struct {
	Enabled            bool                 `yaml:"enabled"`
	MQTT               MQTTConfig           `yaml:"mqtt"`
	StateTopic         string               `yaml:"state_topic"`
	StatusTopic        string               `yaml:"status_topic"`
	DiagnosticTopic    string               `yaml:"diagnostic_topic"`
	PublishIntervalMs  int                  `yaml:"publish_interval_ms"`
	HeartbeatIntervalS int                  `yaml:"heartbeat_interval_s"`
	PayloadFormat      string               `yaml:"payload_format"`
	CircuitBreaker     CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	ClientID   string `yaml:"client_id"`
	KeepAlive  int    `yaml:"keep_alive"`  // Seconds
	RetryDelay int    `yaml:"retry_delay"` // Delay between connection retries in milliseconds
}

// CircuitBreakerConfig mirrors recovery.CircuitBreakerConfig in YAML form
type CircuitBreakerConfig struct {
	MaxFailures      int `yaml:"max_failures"`
	TimeoutS         int `yaml:"timeout_s"`
	HalfOpenMaxTries int `yaml:"half_open_max_tries"`
}

// HTTPConfig enables the health and metrics endpoints; zero disables a port
type HTTPConfig struct {
	HealthPort  int `yaml:"health_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// DefaultConfigPaths are tried in order after the explicit path
var DefaultConfigPaths = []string{
	"/etc/pam-dwin-bridge/config.yaml",
	"/etc/pam-dwin-bridge.yaml",
	"./config.yaml",
}

// LoadConfig loads, defaults and validates the configuration file
func LoadConfig(configPath string) (*Config, error) {
	paths := append([]string{configPath}, DefaultConfigPaths...)

	var data []byte
	var err error
	var usedPath string

	for _, path := range paths {
		if path == "" {
			continue
		}
		// #nosec G304 - explicit path from the command line or a fixed list of locations
		data, err = os.ReadFile(path)
		if err == nil {
			usedPath = path
			break
		}
	}

	if usedPath == "" {
		return nil, fmt.Errorf("cannot read configuration file from any of the locations: %v. Last error: %w", paths, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", usedPath, err)
	}

	logger.LogInfo("✅ Configuration loaded successfully from %s", usedPath)
	return cfg, nil
}

// LoadConfigFromString loads configuration from a YAML string (for testing)
func LoadConfigFromString(yamlContent string) (*Config, error) {
	return parse([]byte(yamlContent))
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ArbitrationEnabled reports whether mismatch arbitration runs (default true)
func (c *Config) ArbitrationEnabled() bool {
	return c.Bridge.Arbitration.Enabled == nil || *c.Bridge.Arbitration.Enabled
}
