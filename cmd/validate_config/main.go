package main

import (
	"fmt"
	"os"

	"pam-dwin-bridge/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_config <config-file>")
		os.Exit(1)
	}

	configPath := os.Args[1]
	fmt.Printf("📄 Loading config from: %s\n", configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Config loaded successfully!\n")
	fmt.Printf("   Instrument: %s @ %d baud\n", cfg.Instrument.Port, cfg.Instrument.BaudRate)
	fmt.Printf("   Display: %s @ %d baud\n", cfg.Display.Port, cfg.Display.BaudRate)

	engine := config.NewEngineSettings(cfg)
	fmt.Printf("   Cycle delay: %v, mode check every %v\n", engine.CycleDelay, engine.ModeCheckInterval)
	if engine.ArbitrationEnabled {
		fmt.Printf("   Arbitration: enabled (page %d)\n", engine.MismatchPage)
	} else {
		fmt.Printf("   Arbitration: disabled\n")
	}

	if cfg.Telemetry.Enabled {
		t := config.NewTelemetrySettings(cfg)
		fmt.Printf("   Telemetry: %s:%d -> %s (%s every %v)\n", t.Broker, t.Port, t.StateTopic, t.PayloadFormat, t.PublishInterval)
	} else {
		fmt.Printf("   Telemetry: disabled\n")
	}

	if cfg.HTTP.HealthPort > 0 {
		fmt.Printf("   Health endpoint: :%d/health\n", cfg.HTTP.HealthPort)
	}
	if cfg.HTTP.MetricsPort > 0 {
		fmt.Printf("   Metrics endpoint: :%d/metrics\n", cfg.HTTP.MetricsPort)
	}

	fmt.Println("\n✅ Configuration is valid!")
}
