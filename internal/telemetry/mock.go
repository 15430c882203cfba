package telemetry

import (
	"context"
	"sync"

	"pam-dwin-bridge/internal/engine"
)

// Diagnostic is a recorded PublishDiagnostic call
type Diagnostic struct {
	Code    int
	Message string
}

// MockPublisher records every publication for tests
type MockPublisher struct {
	mu sync.Mutex

	Snapshots   []engine.Snapshot
	Statuses    []string
	Diagnostics []Diagnostic

	// SnapshotErr is returned by PublishSnapshot when set
	SnapshotErr error
	// StatusErr is returned by the status methods when set
	StatusErr error
}

func (m *MockPublisher) PublishSnapshot(ctx context.Context, snap engine.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SnapshotErr != nil {
		return m.SnapshotErr
	}
	m.Snapshots = append(m.Snapshots, snap)
	return nil
}

func (m *MockPublisher) PublishStatusOnline(ctx context.Context) error {
	return m.status(statusOnline)
}

func (m *MockPublisher) PublishStatusOffline(ctx context.Context) error {
	return m.status(statusOffline)
}

func (m *MockPublisher) status(s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusErr != nil {
		return m.StatusErr
	}
	m.Statuses = append(m.Statuses, s)
	return nil
}

func (m *MockPublisher) PublishDiagnostic(ctx context.Context, code int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Diagnostics = append(m.Diagnostics, Diagnostic{Code: code, Message: message})
	return nil
}

// SnapshotCount returns the number of published snapshots
func (m *MockPublisher) SnapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Snapshots)
}

// StatusList returns a copy of the published statuses
func (m *MockPublisher) StatusList() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Statuses...)
}

// DiagnosticList returns a copy of the published diagnostics
func (m *MockPublisher) DiagnosticList() []Diagnostic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Diagnostic(nil), m.Diagnostics...)
}

var _ SnapshotPublisher = (*MockPublisher)(nil)
