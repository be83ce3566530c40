// Package http provides HTTP handlers for authentication, case reporting,
// and administration endpoints.
package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error": msg} shape used by data endpoints.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeResult writes the {"success", "message"} shape used by auth and
// mutation endpoints.
func writeResult(w http.ResponseWriter, status int, success bool, msg string) {
	writeJSON(w, status, map[string]any{"success": success, "message": msg})
}

// internalError logs the failure and returns a generic 500 body. Internal
// details never reach the client.
func internalError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	log.Error("internal error", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
