package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pam-dwin-bridge/internal/config"
	"pam-dwin-bridge/internal/display"
	"pam-dwin-bridge/internal/engine"
	bridgeerrors "pam-dwin-bridge/internal/errors"
	"pam-dwin-bridge/internal/health"
	bridgehttp "pam-dwin-bridge/internal/http"
	"pam-dwin-bridge/internal/instrument"
	"pam-dwin-bridge/internal/link"
	"pam-dwin-bridge/internal/logger"
	"pam-dwin-bridge/internal/metrics"
	"pam-dwin-bridge/internal/scaling"
	"pam-dwin-bridge/internal/services"
	"pam-dwin-bridge/internal/telemetry"

	kingpin "github.com/alecthomas/kingpin/v2"
	"github.com/jonboulle/clockwork"
	"github.com/hashicorp/go-multierror"
)

const version = "1.0.0"

// Diagnostic codes published alongside the typed error codes
const (
	DiagnosticOK      = 0
	DiagnosticStopped = 1000
)

// diagnosticTimeout bounds each link open in diagnostic mode
const diagnosticTimeout = 10 * time.Second

// Application wires the links, the engine and the optional exporters
type Application struct {
	config *config.Config
	log    *logger.Logger

	errorHandler *bridgeerrors.ErrorHandler
	metrics      metrics.MetricsCollector
	monitor      *health.LinkHealthMonitor

	instrumentLink *link.SerialLink
	displayLink    *link.SerialLink
	client         *instrument.Client
	display        *display.Display
	engine         *engine.Engine

	publisher *telemetry.Publisher // nil when telemetry is disabled
	exporter  telemetry.SnapshotPublisher

	wg sync.WaitGroup
}

// NewApplication builds every component from the configuration; nothing is opened yet
func NewApplication(cfg *config.Config) *Application {
	clock := clockwork.NewRealClock()

	app := &Application{
		config:       cfg,
		log:          logger.NewLogger(&cfg.Logging),
		errorHandler: bridgeerrors.NewErrorHandler(nil),
		metrics:      metrics.NewNullMetrics(),
	}
	logger.LogStartup("Logging initialized with level: %s", cfg.Logging.Level)

	if cfg.HTTP.MetricsPort > 0 {
		app.metrics = metrics.NewPrometheusMetrics()
	}

	engineSettings := config.NewEngineSettings(cfg)
	displaySettings := config.NewDisplaySettings(cfg)

	app.instrumentLink = link.NewSerialLink(config.NewInstrumentLinkSettings(cfg))
	app.displayLink = link.NewSerialLink(config.NewDisplayLinkSettings(cfg))

	app.client = instrument.NewClient(app.instrumentLink, config.NewInstrumentSettings(cfg), clock, app.metrics, app.errorHandler)
	app.instrumentLink.OnOpen(app.client.HandleOpen)

	app.display = display.New(app.displayLink, displaySettings, clock, app.metrics, app.errorHandler)
	app.displayLink.OnOpen(func(name string, reopen bool) {
		app.metrics.SetLinkStatus(name, true)
	})

	app.monitor = health.NewLinkHealthMonitor(engineSettings.ErrorGracePeriod, clock)

	app.engine = engine.New(engineSettings, engine.Dependencies{
		Client:   app.client,
		Display:  app.display,
		Selector: display.NewSelectorPoller(app.display),
		Clock:    clock,
		Metrics:  app.metrics,
		Monitor:  app.monitor,
	})

	if cfg.Telemetry.Enabled {
		telemetrySettings := config.NewTelemetrySettings(cfg)
		app.publisher = telemetry.NewPublisher(telemetrySettings)
		app.exporter = telemetry.NewCircuitBreakerPublisher(app.publisher, telemetrySettings.CircuitBreaker, clock)
		app.errorHandler.SetPublisher(app.publisher)
	}

	return app
}

// openLinks blocks until both links are open or ctx ends
func (app *Application) openLinks(ctx context.Context) error {
	if err := app.instrumentLink.Open(ctx); err != nil {
		return bridgeerrors.NewLinkError("open", err, app.instrumentLink.Name(), app.config.Instrument.Port)
	}
	if err := app.displayLink.Open(ctx); err != nil {
		return bridgeerrors.NewLinkError("open", err, app.displayLink.Name(), app.config.Display.Port)
	}
	return nil
}

// Start opens the links and launches the side services
func (app *Application) Start(ctx context.Context) error {
	logger.LogInfo("🚀 Starting PAM-DWIN Bridge %s...", version)

	app.startHTTPServers()

	if err := app.openLinks(ctx); err != nil {
		return err
	}

	app.startTelemetry(ctx)

	logger.LogInfo("✅ PAM-DWIN Bridge started")
	return nil
}

// startTelemetry connects the exporter in the background. The engine does not
// wait for the broker; snapshots and heartbeats start once it answers.
func (app *Application) startTelemetry(ctx context.Context) {
	if app.publisher == nil {
		return
	}

	settings := config.NewTelemetrySettings(app.config)
	app.goRun(func() {
		if err := app.publisher.Connect(ctx); err != nil {
			logger.LogDebug("Telemetry not started: %v", err)
			return
		}
		if err := app.exporter.PublishDiagnostic(ctx, DiagnosticOK, "PAM-DWIN bridge started"); err != nil {
			logger.LogWarn("⚠️ Startup diagnostic not published: %v", err)
		}

		telemetryService := services.NewTelemetryService(app.engine, app.exporter, app.metrics, settings.PublishInterval)
		heartbeatService := services.NewHeartbeatService(app.exporter, app.monitor, settings.HeartbeatInterval)
		app.goRun(func() { telemetryService.Start(ctx) })
		heartbeatService.Start(ctx)
	})
}

func (app *Application) goRun(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		fn()
	}()
}

func (app *Application) startHTTPServers() {
	if port := app.config.HTTP.HealthPort; port > 0 {
		handler := bridgehttp.NewHealthHandler(app.monitor, version)
		go func() {
			logger.LogInfo("🩺 Health endpoint listening on :%d/health", port)
			if err := bridgehttp.StartHealthServer(handler, port); err != nil {
				logger.LogError("❌ Health server stopped: %v", err)
			}
		}()
	}
	if port := app.config.HTTP.MetricsPort; port > 0 {
		go func() {
			logger.LogInfo("📊 Metrics endpoint listening on :%d/metrics", port)
			if err := app.metrics.StartMetricsServer(port); err != nil {
				logger.LogError("❌ Metrics server stopped: %v", err)
			}
		}()
	}
}

// Run drives the polling loop until ctx is cancelled
func (app *Application) Run(ctx context.Context) {
	if err := app.engine.Run(ctx); err != nil && ctx.Err() == nil {
		app.errorHandler.Handle(ctx, err)
	}
}

// Stop waits for the side services and releases the links
func (app *Application) Stop() {
	logger.LogInfo("🛑 Stopping PAM-DWIN Bridge...")
	app.wg.Wait()

	if app.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.publisher.PublishDiagnostic(ctx, DiagnosticStopped, "PAM-DWIN bridge stopped"); err != nil {
			logger.LogDebug("Stop diagnostic not published: %v", err)
		}
		app.publisher.Disconnect(ctx)
	}

	if err := app.instrumentLink.Close(); err != nil {
		logger.LogDebug("Instrument link close: %v", err)
	}
	if err := app.displayLink.Close(); err != nil {
		logger.LogDebug("Display link close: %v", err)
	}
	if err := app.log.Close(); err != nil {
		logger.LogDebug("Log file close: %v", err)
	}

	logger.LogInfo("✅ PAM-DWIN Bridge stopped")
}

// DiagnosticMode checks each link step by step and reports every failure
func (app *Application) DiagnosticMode(ctx context.Context) error {
	logger.LogInfo("🔍 Starting diagnostic mode...")
	var result *multierror.Error

	logger.LogInfo("🔍 Test 1: Instrument link (%s)", app.config.Instrument.Port)
	openCtx, cancel := context.WithTimeout(ctx, diagnosticTimeout)
	err := app.instrumentLink.Open(openCtx)
	cancel()
	if err != nil {
		logger.LogError("❌ Instrument link failed: %v", err)
		logger.LogInfo("💡 Check the port name and that no other program holds it")
		return multierror.Append(result, fmt.Errorf("instrument link: %w", err))
	}
	logger.LogInfo("✅ Instrument link open")

	logger.LogInfo("🔍 Test 2: Display link (%s)", app.config.Display.Port)
	openCtx, cancel = context.WithTimeout(ctx, diagnosticTimeout)
	displayErr := app.displayLink.Open(openCtx)
	cancel()
	if displayErr != nil {
		logger.LogError("❌ Display link failed: %v", displayErr)
		result = multierror.Append(result, fmt.Errorf("display link: %w", displayErr))
	} else {
		logger.LogInfo("✅ Display link open")
	}

	logger.LogInfo("🔍 Test 3: Instrument function")
	fn, ok := app.client.ReadFunction(ctx)
	if !ok {
		logger.LogError("❌ No function code from the instrument")
		logger.LogInfo("💡 Check the baud rate (%d) and that the instrument is powered on", app.config.Instrument.BaudRate)
		result = multierror.Append(result, fmt.Errorf("instrument did not answer %s", instrument.CmdFunction))
	} else {
		logger.LogInfo("✅ Function: %s", fn)
	}

	logger.LogInfo("🔍 Test 4: Channel modes")
	modeA := app.client.ReadElectricalMode(ctx, instrument.CmdChannelA)
	modeB := app.client.ReadElectricalMode(ctx, instrument.CmdChannelB)
	if !modeA.Known() || !modeB.Known() {
		logger.LogError("❌ Channel modes undefined (A=%s, B=%s)", modeA, modeB)
		result = multierror.Append(result, fmt.Errorf("channel modes undefined (A=%s, B=%s)", modeA, modeB))
	} else {
		logger.LogInfo("✅ Channel A=%s, B=%s", modeA, modeB)
	}

	logger.LogInfo("🔍 Test 5: Operating mode")
	app.client.EnsureStandardMode(ctx, 0)
	if operating := app.client.ReadOperatingMode(ctx); operating != instrument.OperatingStandard {
		logger.LogError("❌ Instrument operating mode is %s", operating)
		result = multierror.Append(result, fmt.Errorf("operating mode %s, expected STD", operating))
	} else {
		logger.LogInfo("✅ Operating mode STD")
	}

	if displayErr == nil {
		logger.LogInfo("🔍 Test 6: Display mode register")
		mode := modeA
		if !mode.Known() {
			mode = scaling.ModeVoltage
		}
		if _, werr := app.displayLink.Write(display.EncodeMode(mode)); werr != nil {
			logger.LogError("❌ Display write failed: %v", werr)
			result = multierror.Append(result, fmt.Errorf("display write: %w", werr))
		} else {
			logger.LogInfo("✅ Display mode register set to %s", mode)
		}
	}

	if result.ErrorOrNil() == nil {
		logger.LogInfo("🎉 All diagnostic tests passed!")
	}
	return result.ErrorOrNil()
}

func main() {
	configFile := kingpin.Flag(
		"config.file",
		"Path to the configuration file.",
	).Default("").String()
	diagnosticMode := kingpin.Flag(
		"diagnostic",
		"Check both links and the instrument, then exit.",
	).Bool()
	logLevel := kingpin.Flag(
		"log.level",
		"Override the configured log level (error, warn, info, debug, trace).",
	).Default("").String()

	kingpin.Version(version)
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.LogError("Configuration error: %v", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		if !logger.IsValidLevel(*logLevel) {
			logger.LogError("Invalid log level %q", *logLevel)
			os.Exit(1)
		}
		cfg.Logging.Level = *logLevel
	}

	app := NewApplication(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.LogInfo("📢 Stop signal received...")
		cancel()
	}()

	if *diagnosticMode {
		err := app.DiagnosticMode(ctx)
		_ = app.instrumentLink.Close()
		_ = app.displayLink.Close()
		if err != nil {
			logger.LogError("Diagnostic failed: %v", err)
			os.Exit(1)
		}
		logger.LogInfo("✅ Diagnostic completed successfully")
		return
	}

	if err := app.Start(ctx); err != nil {
		if ctx.Err() == nil {
			logger.LogError("Application start error: %v", err)
			os.Exit(1)
		}
		app.Stop()
		return
	}

	app.Run(ctx)
	app.Stop()
}
