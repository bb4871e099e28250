package handlers

import (
	"net/http"

	"github.com/atriumhq/atrium-api/internal/response"
)

// HealthCheck reports liveness in the standard envelope.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, map[string]string{"status": "ok"})
}
