package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/directreg/src/logger"
	"github.com/username/directreg/src/shell"
)

type HealthHandler struct {
	sessions *shell.Sessions
	version  string
}

func NewHealthHandler(sessions *shell.Sessions, version string) *HealthHandler {
	return &HealthHandler{sessions: sessions, version: version}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"version":  h.version,
		"sessions": h.sessions.Len(),
	}); err != nil {
		logger.L.Error("Error encoding health response", "error", err)
	}
}
