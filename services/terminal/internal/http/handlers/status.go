package handlers

import (
	"net/http"
	"time"

	"parkgate/services/terminal/internal/models"
)

// Status is the terminal's self-report.
type Status struct {
	Mode      string        `json:"mode"`
	GateID    string        `json:"gateId,omitempty"`
	Channel   string        `json:"channel"`
	Connected bool          `json:"connected"`
	Attempts  int           `json:"reconnectAttempts"`
	Zones     []models.Zone `json:"zones,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
}

// StatusFunc produces the current status.
type StatusFunc func() Status

// NewHealthHandler returns GET /health handler.
func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NewStatusHandler returns GET /status handler. The code is 503 while the push channel is
// down so probes can alert on lost live updates.
func NewStatusHandler(status StatusFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := status()
		code := http.StatusOK
		if !s.Connected {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, s)
	}
}
