package metrics

import "time"

// MetricsCollector defines the interface for collecting bridge metrics.
//
// Implementations:
//   - PrometheusMetrics: client_golang registry served over HTTP
//   - NullMetrics: no-op implementation when metrics are disabled
type MetricsCollector interface {
	// IncCommands counts instrument commands that got a response
	IncCommands()

	// IncCommandFailures counts instrument commands lost to a link fault
	IncCommandFailures()

	// IncReconnects counts reopen cycles of a link ("instrument", "display")
	IncReconnects(link string)

	// IncFramesSent counts display frames written, by kind ("value", "mode", "page", "selector")
	IncFramesSent(kind string)

	// IncFramesSuppressed counts value frames skipped by the change cache
	IncFramesSuppressed()

	// IncFrameErrors counts display frames that failed to transmit
	IncFrameErrors()

	// IncTelemetryPublishes counts snapshot publications
	IncTelemetryPublishes()

	// IncTelemetryErrors counts failed snapshot publications
	IncTelemetryErrors()

	// SetLinkStatus records whether a link is currently usable
	SetLinkStatus(link string, online bool)

	// SetArbiterState records whether the bridge waits for an operator selection
	SetArbiterState(awaiting bool)

	// ObserveCycleDuration records the duration of one polling cycle
	ObserveCycleDuration(duration time.Duration)

	// StartMetricsServer starts an HTTP server exposing /metrics (0 disables it)
	StartMetricsServer(port int) error
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector
var _ MetricsCollector = (*PrometheusMetrics)(nil)
