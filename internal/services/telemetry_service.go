// Package services runs the background loops that sit beside the engine.
package services

import (
	"context"
	"time"

	"pam-dwin-bridge/internal/engine"
	"pam-dwin-bridge/internal/logger"
	"pam-dwin-bridge/internal/metrics"
	"pam-dwin-bridge/internal/telemetry"
)

// SnapshotSource exposes the latest completed cycle
type SnapshotSource interface {
	Snapshot() engine.Snapshot
}

// TelemetryService periodically exports the engine snapshot.
// It runs on its own goroutine and only reads the snapshot.
type TelemetryService struct {
	source    SnapshotSource
	publisher telemetry.SnapshotPublisher
	metrics   metrics.MetricsCollector
	interval  time.Duration

	published int
	failed    int
}

// NewTelemetryService creates a telemetry service; metricsCollector may be nil
func NewTelemetryService(
	source SnapshotSource,
	publisher telemetry.SnapshotPublisher,
	metricsCollector metrics.MetricsCollector,
	interval time.Duration,
) *TelemetryService {
	if metricsCollector == nil {
		metricsCollector = metrics.NewNullMetrics()
	}
	return &TelemetryService{
		source:    source,
		publisher: publisher,
		metrics:   metricsCollector,
		interval:  interval,
	}
}

// Start publishes on every tick until ctx is cancelled
func (s *TelemetryService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.LogInfo("📡 Telemetry service started with interval: %v", s.interval)

	for {
		select {
		case <-ctx.Done():
			logger.LogDebug("📡 Telemetry service stopped (%d published, %d failed)", s.published, s.failed)
			return
		case <-ticker.C:
			s.PublishOnce(ctx)
		}
	}
}

// PublishOnce exports the current snapshot. It reports whether a snapshot
// was published; nothing is sent before the first completed cycle.
func (s *TelemetryService) PublishOnce(ctx context.Context) bool {
	snap := s.source.Snapshot()
	if !snap.Valid {
		return false
	}

	if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
		s.failed++
		s.metrics.IncTelemetryErrors()
		logger.LogDebug("⚠️ Snapshot publish failed: %v", err)
		return false
	}

	s.published++
	s.metrics.IncTelemetryPublishes()
	return true
}
