// Package checkgrp implements the health check endpoints used by an
// orchestrator to decide whether this instance should receive traffic
// (readiness) or be restarted (liveness).
package checkgrp

import (
	"encoding/json"
	"net/http"
	"os"

	"go.uber.org/zap"
)

// Handlers bundles what the debug health endpoints need.
type Handlers struct {
	Build string
	Log   *zap.SugaredLogger
}

type status struct {
	Status string `json:"status"`
	Build  string `json:"build,omitempty"`
	Host   string `json:"host,omitempty"`
}

// Readiness reports whether the service is ready to accept traffic.
func (h Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()

	data := status{Status: "ok", Build: h.Build, Host: host}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Log.Errorw("readiness", "err", err)
	}
}

// Liveness reports whether the process itself is still healthy.
func (h Handlers) Liveness(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()

	data := status{Status: "alive", Build: h.Build, Host: host}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Log.Errorw("liveness", "err", err)
	}
}
