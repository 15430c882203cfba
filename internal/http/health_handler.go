package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status              string    `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp           time.Time `json:"timestamp"`
	Uptime              string    `json:"uptime"`
	InstrumentOnline    bool      `json:"instrument_online"`
	LastSuccessfulCycle string    `json:"last_successful_cycle"`
	ErrorCount          int       `json:"error_count"`
	SuccessCount        int       `json:"success_count"`
	Version             string    `json:"version,omitempty"`
}

// HealthChecker provides health information
type HealthChecker interface {
	IsOnline() bool
	GetLastSuccessTime() time.Time
	GetErrorCount() int
	GetSuccessCount() int
}

// HealthHandler provides the /health endpoint
type HealthHandler struct {
	startTime     time.Time
	healthChecker HealthChecker
	version       string
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(healthChecker HealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		startTime:     time.Now(),
		healthChecker: healthChecker,
		version:       version,
	}
}

// ServeHTTP implements http.Handler for /health
func (hh *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := hh.getHealthStatus(time.Now())

	w.Header().Set("Content-Type", "application/json")

	// degraded still answers 200
	statusCode := http.StatusOK
	if status.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(status); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode health status: %v", err), http.StatusInternalServerError)
	}
}

func (hh *HealthHandler) getHealthStatus(now time.Time) HealthStatus {
	isOnline := hh.healthChecker.IsOnline()
	lastSuccess := hh.healthChecker.GetLastSuccessTime()
	errorCount := hh.healthChecker.GetErrorCount()
	successCount := hh.healthChecker.GetSuccessCount()

	lastCycle := "never"
	if !lastSuccess.IsZero() {
		since := now.Sub(lastSuccess)
		switch {
		case since < time.Minute:
			lastCycle = fmt.Sprintf("%d seconds ago", int(since.Seconds()))
		case since < time.Hour:
			lastCycle = fmt.Sprintf("%d minutes ago", int(since.Minutes()))
		default:
			lastCycle = fmt.Sprintf("%d hours ago", int(since.Hours()))
		}
	}

	return HealthStatus{
		Status:              classify(isOnline, errorCount, successCount),
		Timestamp:           now,
		Uptime:              formatDuration(now.Sub(hh.startTime)),
		InstrumentOnline:    isOnline,
		LastSuccessfulCycle: lastCycle,
		ErrorCount:          errorCount,
		SuccessCount:        successCount,
		Version:             hh.version,
	}
}

// classify maps the error rate to a status: above 50% unhealthy, above 20% degraded
func classify(isOnline bool, errorCount, successCount int) string {
	if !isOnline {
		return "unhealthy"
	}
	total := errorCount + successCount
	if errorCount == 0 || total == 0 {
		return "healthy"
	}
	errorRate := float64(errorCount) / float64(total) * 100.0
	switch {
	case errorRate > 50.0:
		return "unhealthy"
	case errorRate > 20.0:
		return "degraded"
	default:
		return "healthy"
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours %d minutes", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%d days %d hours", int(d.Hours())/24, int(d.Hours())%24)
	}
}

const indexPage = `<html>
<head><title>PAM-DWIN Bridge</title></head>
<body>
<h1>PAM-DWIN Bridge</h1>
<ul>
<li><a href="/health">Health Check</a></li>
<li><a href="/metrics">Metrics</a> (if enabled)</li>
</ul>
</body>
</html>`

// NewHealthMux routes /health and the index page
func NewHealthMux(handler *HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/health", handler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, indexPage)
	})
	return mux
}

// StartHealthServer starts an HTTP server for health checks
func StartHealthServer(handler *HealthHandler, port int) error {
	// Timeouts guard against slowloris (gosec G114)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewHealthMux(handler),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return server.ListenAndServe()
}
