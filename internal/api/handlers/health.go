// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pest-detectives/backend/internal/session"
	"github.com/pest-detectives/backend/internal/storage"
	"github.com/pest-detectives/backend/internal/websocket"
)

// healthProbeKey is read (never written) to check the store responds.
const healthProbeKey = "ppd.health"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status           string `json:"status"`
	StorageConnected bool   `json:"storage_connected"`
	Session          string `json:"session"`
	WebSocketClients int    `json:"websocket_clients"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(kv storage.KV, sessions *session.Manager, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _, err := kv.Get(r.Context(), healthProbeKey)
		storageConnected := err == nil

		status := "healthy"
		if !storageConnected {
			status = "degraded"
		}

		response := HealthResponse{
			Status:           status,
			StorageConnected: storageConnected,
			Session:          string(sessions.State()),
			WebSocketClients: hub.ClientCount(),
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
