package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clipworks/clip-engine/internal/database"
	"github.com/clipworks/clip-engine/internal/events"
)

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

// HealthHandler serves the unauthenticated health endpoint.
type HealthHandler struct {
	db        *database.DB
	events    *events.Publisher
	storeType string
	version   string
	startTime time.Time
}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler(db *database.DB, pub *events.Publisher, storeType, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		events:    pub,
		storeType: storeType,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Database check
	if err := h.db.HealthCheck(r.Context()); err != nil {
		checks["database"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	// Event publisher check
	if h.events != nil {
		if h.events.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	checks["storage"] = h.storeType

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}
