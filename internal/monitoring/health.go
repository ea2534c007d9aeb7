package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks scheduler liveness for the /health endpoint.
type HealthChecker struct {
	mu            sync.RWMutex
	lastTick      time.Time
	monitors      int
	failing       int
	providerAlive bool
	errors        []string
}

// HealthStatus is the /health response payload.
type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	LastTick      time.Time `json:"last_tick"`
	Monitors      int       `json:"monitors"`
	Failing       int       `json:"failing"`
	ProviderAlive bool      `json:"provider_alive"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		providerAlive: true,
		errors:        make([]string, 0),
	}
}

// RecordTick notes a completed scheduler tick.
func (h *HealthChecker) RecordTick(monitors, failing int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTick = time.Now()
	h.monitors = monitors
	h.failing = failing
}

// SetProviderAlive flags data-provider reachability.
func (h *HealthChecker) SetProviderAlive(alive bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.providerAlive = alive
}

// RecordErrorMessage appends a recent error, keeping the last few.
func (h *HealthChecker) RecordErrorMessage(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > 10 {
		h.errors = h.errors[len(h.errors)-10:]
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.providerAlive || (h.monitors > 0 && h.failing == h.monitors) {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	} else if h.failing > 0 {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	health := HealthStatus{
		Status:        status,
		Timestamp:     time.Now(),
		LastTick:      h.lastTick,
		Monitors:      h.monitors,
		Failing:       h.failing,
		ProviderAlive: h.providerAlive,
		Uptime:        time.Since(startTime).String(),
		Errors:        h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// Serve starts the metrics and health endpoints on addr. Blocks until the
// server exits.
func Serve(addr string, health *HealthChecker) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewMetricsHandler())
	mux.Handle("/health", health)
	return http.ListenAndServe(addr, mux)
}
