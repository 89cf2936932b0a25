// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/cloudfrequency/internal/models"
)

const breakerOpen = "open"

func (h *Handler) breakerState() string {
	if h.breaker == nil {
		return "unknown"
	}
	return h.breaker.BreakerState()
}

// Health reports overall status.
//
// @Summary Get system health status
// @Description Returns layer readiness, polygon count, Earth Engine circuit breaker state and uptime. Status is degraded while the breaker is open.
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus} "Health status retrieved successfully"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	breaker := h.breakerState()
	status := "healthy"
	if breaker == breakerOpen {
		status = "degraded"
	}

	health := models.HealthStatus{
		Status:         status,
		Version:        Version,
		LayerReady:     h.layer != nil && h.layer.Map != nil,
		PolygonCount:   len(h.polygons.IDs()),
		CircuitBreaker: breaker,
		Uptime:         time.Since(h.startTime).Seconds(),
	}
	if health.LayerReady {
		health.MapID = h.layer.Map.MapID
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
//
// @Summary Kubernetes liveness probe
// @Description Returns 200 OK if the process is alive, regardless of external dependencies.
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse "Service is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
//
// @Summary Kubernetes readiness probe
// @Description Returns 200 OK when the layer is ready and the Earth Engine circuit breaker is not open, 503 otherwise.
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse "Service is ready"
// @Failure 503 {object} models.APIResponse "Service is not ready"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	breaker := h.breakerState()
	layerReady := h.layer != nil && h.layer.Map != nil
	ready := layerReady && breaker != breakerOpen

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"layer_ready":     layerReady,
			"circuit_breaker": breaker,
			"ready_to_serve":  ready,
			"uptime":          time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
