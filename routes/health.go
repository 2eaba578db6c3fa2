package routes

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"jxlpress/encoder"
	"jxlpress/logger"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string               `json:"status"`
	Timestamp        time.Time            `json:"timestamp"`
	Version          string               `json:"version"`
	GoVersion        string               `json:"go_version"`
	Uptime           string               `json:"uptime"`
	StartTime        string               `json:"start_time"`
	Tools            []encoder.ToolStatus `json:"tools"`
	History          string               `json:"history"`
	PendingArtifacts int                  `json:"pending_artifacts"`
}

// Global start time for uptime calculation
var startTime = time.Now()

// formatUptime formats a duration into days, hours, minutes, seconds
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// HealthHandler reports whether the encoder tools resolve and the stores
// answer. Anything missing turns the status to "degraded" with a 503.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Health check request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   version,
		GoVersion: runtime.Version(),
		Uptime:    formatUptime(time.Since(startTime)),
		StartTime: startTime.Format("2006-01-02 15:04:05 MST"),
		Tools:     encoder.Lookup(h.Tools...),
		History:   "disabled",
	}
	for _, t := range response.Tools {
		if !t.Available {
			response.Status = "degraded"
		}
	}
	if h.History != nil {
		response.History = "ok"
		if err := h.History.CheckHealth(); err != nil {
			logger.Errorf("History store unhealthy: %v", err)
			response.History = err.Error()
			response.Status = "degraded"
		}
	}
	if pending, err := h.Artifacts.List(); err != nil {
		logger.Errorf("Artifact store unhealthy: %v", err)
		response.Status = "degraded"
	} else {
		response.PendingArtifacts = len(pending)
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	logger.Debugf("Health check response: status=%s, version=%s", response.Status, response.Version)
	writeJSON(w, status, response)
}
