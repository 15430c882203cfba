package services

import (
	"context"
	"time"

	"pam-dwin-bridge/internal/logger"
	"pam-dwin-bridge/internal/telemetry"
)

// OnlineChecker reports whether the instrument is answering
type OnlineChecker interface {
	IsOnline() bool
}

// HeartbeatService sends periodic status heartbeats
type HeartbeatService struct {
	publisher     telemetry.SnapshotPublisher
	healthMonitor OnlineChecker
	interval      time.Duration

	offlineSent bool
}

// NewHeartbeatService creates a new heartbeat service
func NewHeartbeatService(
	publisher telemetry.SnapshotPublisher,
	healthMonitor OnlineChecker,
	interval time.Duration,
) *HeartbeatService {
	return &HeartbeatService{
		publisher:     publisher,
		healthMonitor: healthMonitor,
		interval:      interval,
	}
}

// Start sends a heartbeat immediately and then on every tick
func (s *HeartbeatService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.LogInfo("💓 Heartbeat service started with interval: %v", s.interval)
	s.SendHeartbeat(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.LogDebug("🔇 Heartbeat service stopped")
			return
		case <-ticker.C:
			s.SendHeartbeat(ctx)
		}
	}
}

// SendHeartbeat publishes online plus a diagnostic heartbeat while the
// instrument answers, and a single offline status once it stops answering.
func (s *HeartbeatService) SendHeartbeat(ctx context.Context) {
	if !s.healthMonitor.IsOnline() {
		if s.offlineSent {
			logger.LogDebug("💔 Skipping heartbeat - instrument is offline")
			return
		}
		if err := s.publisher.PublishStatusOffline(ctx); err != nil {
			logger.LogError("⚠️ Offline status failed: %v", err)
			return
		}
		s.offlineSent = true
		logger.LogWarn("💔 Instrument offline, bridge status set to offline")
		return
	}

	if err := s.publisher.PublishStatusOnline(ctx); err != nil {
		logger.LogError("⚠️ Heartbeat failed: %v", err)
		return
	}
	s.offlineSent = false
	logger.LogDebug("💓 Heartbeat sent: online")

	if err := s.publisher.PublishDiagnostic(ctx, 0, "PAM-DWIN bridge running"); err != nil {
		logger.LogDebug("⚠️ Diagnostic heartbeat failed: %v", err)
	}
}
