package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"pam-dwin-bridge/internal/engine"
	"pam-dwin-bridge/internal/metrics"
	"pam-dwin-bridge/internal/scaling"
	"pam-dwin-bridge/internal/telemetry"
)

type staticSource struct {
	snap engine.Snapshot
}

func (s *staticSource) Snapshot() engine.Snapshot { return s.snap }

type onlineFlag struct {
	online bool
}

func (o *onlineFlag) IsOnline() bool { return o.online }

type countingMetrics struct {
	*metrics.NullMetrics
	publishes int
	errors    int
}

func (m *countingMetrics) IncTelemetryPublishes() { m.publishes++ }
func (m *countingMetrics) IncTelemetryErrors()    { m.errors++ }

func TestTelemetryWaitsForFirstCycle(t *testing.T) {
	source := &staticSource{}
	pub := &telemetry.MockPublisher{}
	svc := NewTelemetryService(source, pub, nil, 200*time.Millisecond)
	ctx := context.Background()

	if svc.PublishOnce(ctx) {
		t.Error("Expected nothing published before the first cycle")
	}

	source.snap = engine.Snapshot{Valid: true, Cycle: 1, Function: scaling.FunctionDual}
	if !svc.PublishOnce(ctx) || !svc.PublishOnce(ctx) {
		t.Error("Expected snapshot published on every tick")
	}
	if pub.SnapshotCount() != 2 {
		t.Errorf("Expected 2 snapshots, got %d", pub.SnapshotCount())
	}
}

func TestTelemetryCountsFailures(t *testing.T) {
	source := &staticSource{snap: engine.Snapshot{Valid: true}}
	pub := &telemetry.MockPublisher{SnapshotErr: errors.New("broker down")}
	counter := &countingMetrics{NullMetrics: metrics.NewNullMetrics()}
	svc := NewTelemetryService(source, pub, counter, time.Second)

	svc.PublishOnce(context.Background())
	pub.SnapshotErr = nil
	svc.PublishOnce(context.Background())

	if counter.errors != 1 || counter.publishes != 1 {
		t.Errorf("Expected 1 error and 1 publish, got %d and %d", counter.errors, counter.publishes)
	}
}

func TestTelemetryStartStopsOnCancel(t *testing.T) {
	source := &staticSource{snap: engine.Snapshot{Valid: true}}
	pub := &telemetry.MockPublisher{}
	svc := NewTelemetryService(source, pub, nil, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected telemetry service to stop")
	}
	if pub.SnapshotCount() == 0 {
		t.Error("Expected at least one snapshot")
	}
}

func TestHeartbeatWhileOnline(t *testing.T) {
	pub := &telemetry.MockPublisher{}
	svc := NewHeartbeatService(pub, &onlineFlag{online: true}, time.Second)

	svc.SendHeartbeat(context.Background())

	if !reflect.DeepEqual(pub.StatusList(), []string{"online"}) {
		t.Errorf("Expected [online], got %v", pub.StatusList())
	}
	diags := pub.DiagnosticList()
	if len(diags) != 1 || diags[0].Code != 0 {
		t.Errorf("Expected one code 0 diagnostic, got %v", diags)
	}
}

func TestHeartbeatSendsOfflineOnce(t *testing.T) {
	pub := &telemetry.MockPublisher{}
	flag := &onlineFlag{online: false}
	svc := NewHeartbeatService(pub, flag, time.Second)
	ctx := context.Background()

	svc.SendHeartbeat(ctx)
	svc.SendHeartbeat(ctx)
	flag.online = true
	svc.SendHeartbeat(ctx)
	flag.online = false
	svc.SendHeartbeat(ctx)

	want := []string{"offline", "online", "offline"}
	if !reflect.DeepEqual(pub.StatusList(), want) {
		t.Errorf("Expected %v, got %v", want, pub.StatusList())
	}
	if len(pub.DiagnosticList()) != 1 {
		t.Errorf("Expected diagnostics only while online, got %d", len(pub.DiagnosticList()))
	}
}
