// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

// Package models holds the JSON envelopes shared by the HTTP handlers.
//
// The map endpoints (/details and /timeseries) answer with the raw values the
// browser script expects. Errors and the health endpoints use APIResponse.
package models

import (
	"time"
)

// APIResponse is the standard response wrapper.
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "metadata": {"timestamp": "2026-01-10T12:00:00Z"},
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "lat must be a valid latitude (-90 to 90)",
//	    "details": {"field": "lat", "tag": "latitude"}
//	  }
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
//
// Codes in use:
//   - VALIDATION_ERROR: missing or malformed query parameters
//   - NOT_FOUND: unknown polygon ID
//   - EARTH_ENGINE_ERROR: the remote computation failed
//   - SERVICE_UNAVAILABLE: the Earth Engine circuit breaker is open
//   - INTERNAL_ERROR: anything else
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	LayerReady     bool    `json:"layer_ready"`
	MapID          string  `json:"map_id,omitempty"`
	PolygonCount   int     `json:"polygon_count"`
	CircuitBreaker string  `json:"circuit_breaker"`
	Uptime         float64 `json:"uptime"`
}
