package handler

import (
	"net/http"

	"dataroom/internal/httputil"
)

// HealthCheck reports that the process is serving requests
// GET /health, GET /api/health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
