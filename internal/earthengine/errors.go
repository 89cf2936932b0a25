// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package earthengine

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
)

// ErrCircuitOpen is returned while the circuit breaker rejects calls.
var ErrCircuitOpen = errors.New("earth engine unavailable: circuit breaker open")

// APIError is a non-2xx response from the REST API.
type APIError struct {
	StatusCode int    // HTTP status
	Status     string // canonical status, e.g. INVALID_ARGUMENT
	Message    string
}

// Error returns the server's message, which is what end users see.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Earth Engine request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether the failure reflects the service's health rather
// than the request, so retrying the same request later may succeed.
func (e *APIError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// TransportError is a call that never got an HTTP response: refused
// connections, DNS failures, resets, TLS errors.
type TransportError struct {
	Err error
}

// Error omits the request URL, which names the project.
func (e *TransportError) Error() string {
	var urlErr *url.Error
	if errors.As(e.Err, &urlErr) {
		return "Earth Engine unreachable: " + urlErr.Err.Error()
	}
	return "Earth Engine unreachable: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsRemote reports whether err came from Earth Engine or the path to it (an
// API error, a transport failure or an open breaker) rather than from local
// code.
func IsRemote(err error) bool {
	var apiErr *APIError
	var transportErr *TransportError
	return errors.As(err, &apiErr) || errors.As(err, &transportErr) || errors.Is(err, ErrCircuitOpen)
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Status = env.Error.Status
		return apiErr
	}
	if len(body) > 0 {
		apiErr.Message = fmt.Sprintf("Earth Engine request failed with status %d: %s", statusCode, string(body))
	}
	return apiErr
}
