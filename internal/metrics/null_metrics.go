package metrics

import "time"

// NullMetrics is a no-op implementation of MetricsCollector.
// Use this when metrics are disabled (metrics_port = 0).
type NullMetrics struct{}

// NewNullMetrics creates a new NullMetrics instance
func NewNullMetrics() *NullMetrics {
	return &NullMetrics{}
}

func (nm *NullMetrics) IncCommands()                                {}
func (nm *NullMetrics) IncCommandFailures()                         {}
func (nm *NullMetrics) IncReconnects(link string)                   {}
func (nm *NullMetrics) IncFramesSent(kind string)                   {}
func (nm *NullMetrics) IncFramesSuppressed()                        {}
func (nm *NullMetrics) IncFrameErrors()                             {}
func (nm *NullMetrics) IncTelemetryPublishes()                      {}
func (nm *NullMetrics) IncTelemetryErrors()                         {}
func (nm *NullMetrics) SetLinkStatus(link string, online bool)      {}
func (nm *NullMetrics) SetArbiterState(awaiting bool)               {}
func (nm *NullMetrics) ObserveCycleDuration(duration time.Duration) {}

// StartMetricsServer is a no-op (always returns nil)
func (nm *NullMetrics) StartMetricsServer(port int) error {
	return nil
}

// Compile-time verification that NullMetrics implements MetricsCollector
var _ MetricsCollector = (*NullMetrics)(nil)
