package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCollectorInterface(t *testing.T) {
	t.Run("PrometheusMetrics implements MetricsCollector", func(t *testing.T) {
		var _ MetricsCollector = (*PrometheusMetrics)(nil)
		t.Log("✅ PrometheusMetrics implements MetricsCollector interface")
	})

	t.Run("NullMetrics implements MetricsCollector", func(t *testing.T) {
		var _ MetricsCollector = (*NullMetrics)(nil)
		t.Log("✅ NullMetrics implements MetricsCollector interface")
	})
}

func TestPrometheusMetricsRecording(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.IncCommands()
	pm.IncCommands()
	pm.IncCommandFailures()
	pm.IncReconnects("instrument")
	pm.IncFramesSent("value")
	pm.IncFramesSent("value")
	pm.IncFramesSent("page")
	pm.IncFramesSuppressed()
	pm.IncFrameErrors()
	pm.IncTelemetryPublishes()
	pm.IncTelemetryErrors()
	pm.SetLinkStatus("display", true)
	pm.SetArbiterState(true)
	pm.ObserveCycleDuration(250 * time.Millisecond)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"commands", testutil.ToFloat64(pm.commandsTotal), 2},
		{"command failures", testutil.ToFloat64(pm.commandFailuresTotal), 1},
		{"instrument reconnects", testutil.ToFloat64(pm.reconnectsTotal.WithLabelValues("instrument")), 1},
		{"value frames", testutil.ToFloat64(pm.framesSentTotal.WithLabelValues("value")), 2},
		{"page frames", testutil.ToFloat64(pm.framesSentTotal.WithLabelValues("page")), 1},
		{"suppressed", testutil.ToFloat64(pm.framesSuppressedTotal), 1},
		{"frame errors", testutil.ToFloat64(pm.frameErrorsTotal), 1},
		{"publishes", testutil.ToFloat64(pm.telemetryPublishes), 1},
		{"publish errors", testutil.ToFloat64(pm.telemetryErrors), 1},
		{"display up", testutil.ToFloat64(pm.linkStatus.WithLabelValues("display")), 1},
		{"arbiter", testutil.ToFloat64(pm.arbiterAwaiting), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("Expected %s to be %v, got %v", c.name, c.want, c.got)
		}
	}

	pm.SetLinkStatus("display", false)
	if got := testutil.ToFloat64(pm.linkStatus.WithLabelValues("display")); got != 0 {
		t.Errorf("Expected display link down, got %v", got)
	}
}

func TestMetricsHandlerExposesBridgeMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.IncFramesSent("mode")
	pm.ObserveCycleDuration(100 * time.Millisecond)

	rec := httptest.NewRecorder()
	pm.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	output := string(body)
	for _, want := range []string{
		`pam_dwin_bridge_display_frames_sent_total{kind="mode"} 1`,
		"pam_dwin_bridge_cycle_duration_seconds_count 1",
		"go_goroutines",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}
}

func TestNullMetricsIsSafe(t *testing.T) {
	nm := NewNullMetrics()
	nm.IncCommands()
	nm.IncReconnects("instrument")
	nm.SetLinkStatus("display", true)
	nm.ObserveCycleDuration(time.Second)
	if err := nm.StartMetricsServer(9100); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	t.Log("✅ NullMetrics methods are no-ops")
}
