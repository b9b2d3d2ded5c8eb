package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jntagengwa/pathway/app"
	"github.com/jntagengwa/pathway/utils"
)

// Version is reported by the status endpoint.
const Version = "0.1.0"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck returns a simple liveness handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessCheck reports the auth mode and, when signatures are verified,
// whether the key set can be fetched.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "ready",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks: map[string]string{
				"auth_mode": deps.AuthMode(),
			},
		}

		if deps.Verifier != nil {
			if err := deps.Verifier.Check(ctx); err != nil {
				response.Status = "not_ready"
				response.Checks["jwks"] = "unhealthy"
				deps.Logger.Error("jwks health check failed", zap.Error(err))
			} else {
				response.Checks["jwks"] = "healthy"
			}
		}

		status := http.StatusOK
		if response.Status != "ready" {
			status = http.StatusServiceUnavailable
		}
		if err := utils.WriteJSON(w, status, response); err != nil {
			deps.Logger.Error("failed to write readiness response", zap.Error(err))
		}
	}
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"version":     Version,
			"environment": deps.Config.Environment,
			"auth_mode":   deps.AuthMode(),
		})
	}
}
