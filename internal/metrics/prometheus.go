package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pam_dwin_bridge"

// PrometheusMetrics tracks bridge metrics in a dedicated Prometheus registry
type PrometheusMetrics struct {
	registry *prometheus.Registry

	commandsTotal          prometheus.Counter
	commandFailuresTotal   prometheus.Counter
	reconnectsTotal        *prometheus.CounterVec
	framesSentTotal        *prometheus.CounterVec
	framesSuppressedTotal  prometheus.Counter
	frameErrorsTotal       prometheus.Counter
	telemetryPublishes     prometheus.Counter
	telemetryErrors        prometheus.Counter
	linkStatus             *prometheus.GaugeVec
	arbiterAwaiting        prometheus.Gauge
	cycleDurationHistogram prometheus.Histogram
}

// NewPrometheusMetrics creates the collectors and registers them with a fresh registry
func NewPrometheusMetrics() *PrometheusMetrics {
	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		commandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instrument_commands_total",
			Help:      "Total number of instrument commands exchanged.",
		}),
		commandFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instrument_command_failures_total",
			Help:      "Total number of instrument commands lost to link faults.",
		}),
		reconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_reconnects_total",
			Help:      "Total number of link reopen cycles.",
		}, []string{"link"}),
		framesSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_frames_sent_total",
			Help:      "Total number of frames written to the display.",
		}, []string{"kind"}),
		framesSuppressedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_frames_suppressed_total",
			Help:      "Total number of value frames skipped because the value did not change.",
		}),
		frameErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_frame_errors_total",
			Help:      "Total number of display frames that failed to transmit.",
		}),
		telemetryPublishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_publishes_total",
			Help:      "Total number of snapshot publications.",
		}),
		telemetryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_errors_total",
			Help:      "Total number of failed snapshot publications.",
		}),
		linkStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_up",
			Help:      "Link status (1 = open, 0 = down).",
		}, []string{"link"}),
		arbiterAwaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "arbiter_awaiting_selection",
			Help:      "1 while a channel mode mismatch waits for an operator selection.",
		}),
		cycleDurationHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one polling cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5},
		}),
	}

	pm.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		pm.commandsTotal,
		pm.commandFailuresTotal,
		pm.reconnectsTotal,
		pm.framesSentTotal,
		pm.framesSuppressedTotal,
		pm.frameErrorsTotal,
		pm.telemetryPublishes,
		pm.telemetryErrors,
		pm.linkStatus,
		pm.arbiterAwaiting,
		pm.cycleDurationHistogram,
	)
	return pm
}

func (pm *PrometheusMetrics) IncCommands()        { pm.commandsTotal.Inc() }
func (pm *PrometheusMetrics) IncCommandFailures() { pm.commandFailuresTotal.Inc() }

func (pm *PrometheusMetrics) IncReconnects(link string) {
	pm.reconnectsTotal.WithLabelValues(link).Inc()
}

func (pm *PrometheusMetrics) IncFramesSent(kind string) {
	pm.framesSentTotal.WithLabelValues(kind).Inc()
}

func (pm *PrometheusMetrics) IncFramesSuppressed()   { pm.framesSuppressedTotal.Inc() }
func (pm *PrometheusMetrics) IncFrameErrors()        { pm.frameErrorsTotal.Inc() }
func (pm *PrometheusMetrics) IncTelemetryPublishes() { pm.telemetryPublishes.Inc() }
func (pm *PrometheusMetrics) IncTelemetryErrors()    { pm.telemetryErrors.Inc() }

// SetLinkStatus sets the link gauge (1 = open, 0 = down)
func (pm *PrometheusMetrics) SetLinkStatus(link string, online bool) {
	pm.linkStatus.WithLabelValues(link).Set(boolToFloat(online))
}

func (pm *PrometheusMetrics) SetArbiterState(awaiting bool) {
	pm.arbiterAwaiting.Set(boolToFloat(awaiting))
}

func (pm *PrometheusMetrics) ObserveCycleDuration(duration time.Duration) {
	pm.cycleDurationHistogram.Observe(duration.Seconds())
}

// Registry exposes the registry for tests and additional collectors
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// Handler returns the /metrics handler for this registry
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer starts an HTTP server on the given port to expose metrics
func (pm *PrometheusMetrics) StartMetricsServer(port int) error {
	if port == 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", pm.Handler())

	// Timeouts guard against slowloris (gosec G114)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return server.ListenAndServe()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
