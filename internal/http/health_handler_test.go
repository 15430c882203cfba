package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type stubChecker struct {
	online      bool
	lastSuccess time.Time
	errors      int
	successes   int
}

func (s *stubChecker) IsOnline() bool                { return s.online }
func (s *stubChecker) GetLastSuccessTime() time.Time { return s.lastSuccess }
func (s *stubChecker) GetErrorCount() int            { return s.errors }
func (s *stubChecker) GetSuccessCount() int          { return s.successes }

func TestHealthStatusByErrorRate(t *testing.T) {
	tests := []struct {
		name    string
		checker stubChecker
		want    string
		code    int
	}{
		{"all good", stubChecker{online: true, successes: 10}, "healthy", http.StatusOK},
		{"few errors", stubChecker{online: true, successes: 9, errors: 1}, "healthy", http.StatusOK},
		{"degraded", stubChecker{online: true, successes: 7, errors: 3}, "degraded", http.StatusOK},
		{"high error rate", stubChecker{online: true, successes: 4, errors: 6}, "unhealthy", http.StatusServiceUnavailable},
		{"offline", stubChecker{online: false, successes: 10}, "unhealthy", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := tt.checker
			handler := NewHealthHandler(&checker, "test")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

			if rec.Code != tt.code {
				t.Errorf("Expected HTTP %d, got %d", tt.code, rec.Code)
			}
			var status HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if status.Status != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, status.Status)
			}
			if status.Version != "test" {
				t.Errorf("Expected version test, got %s", status.Version)
			}
		})
	}
}

func TestLastSuccessfulCycleText(t *testing.T) {
	handler := NewHealthHandler(&stubChecker{online: true}, "")
	now := time.Now()

	if got := handler.getHealthStatus(now).LastSuccessfulCycle; got != "never" {
		t.Errorf("Expected never, got %s", got)
	}

	handler.healthChecker = &stubChecker{online: true, lastSuccess: now.Add(-90 * time.Second)}
	if got := handler.getHealthStatus(now).LastSuccessfulCycle; got != "1 minutes ago" {
		t.Errorf("Expected 1 minutes ago, got %s", got)
	}
}

func TestIndexPageAndNotFound(t *testing.T) {
	mux := NewHealthMux(NewHealthHandler(&stubChecker{online: true}, ""))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/health") {
		t.Errorf("Expected index page, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}
