// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package api

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/cloudfrequency/internal/analysis"
	"github.com/tomtom215/cloudfrequency/internal/cache"
	"github.com/tomtom215/cloudfrequency/internal/config"
	"github.com/tomtom215/cloudfrequency/internal/details"
	"github.com/tomtom215/cloudfrequency/internal/earthengine"
	"github.com/tomtom215/cloudfrequency/internal/polygons"
)

// newUnreachableHandler wires the real client, analyzer and details service
// to an Earth Engine address that no longer accepts connections.
func newUnreachableHandler(t *testing.T) *Handler {
	t.Helper()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := earthengine.NewClient(context.Background(),
		&config.EarthEngineConfig{Project: "test-project", BaseURL: baseURL},
		earthengine.WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
		earthengine.WithRetry(0, time.Millisecond),
		earthengine.WithRateLimit(0, 0),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	analyzer := analysis.New(client,
		config.LayerConfig{
			Collection:     "MODIS/061/MOD09GA",
			Band:           "state_1km",
			ReductionScale: 20000,
			SeriesYear:     2015,
			SeriesScale:    1000,
		},
		config.PolygonsConfig{
			Collection:     "NOAA/DMSP-OLS/NIGHTTIME_LIGHTS",
			Band:           "stable_lights",
			ReductionScale: 20000,
		},
	)

	registry, err := polygons.Load("../../static/polygons")
	if err != nil {
		t.Fatalf("polygons.Load: %v", err)
	}
	store := cache.NewMemory(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	layer := testLayer()
	layer.Image = earthengine.ImageConstant(1)

	h, err := NewHandler(HandlerDeps{
		Analyzer: analyzer,
		Layer:    layer,
		Details:  details.NewService(registry, analyzer, store, time.Hour, "http://en.wikipedia.org/wiki/"),
		Polygons: registry,
		Breaker:  client,
		Template: template.Must(template.New("index").Parse(testTemplate)),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return h
}

func TestPointEndpoints_UnreachableEarthEngine(t *testing.T) {
	t.Parallel()

	h := newUnreachableHandler(t)

	tests := []struct {
		name   string
		handle http.HandlerFunc
		target string
	}{
		{"details", h.Details, "/details?lat=1&lon=2"},
		{"timeseries", h.TimeSeries, "/timeseries?lat=1&lon=2"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handle(w, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if w.Code != http.StatusBadGateway {
				t.Fatalf("status = %d, want 502; body %s", w.Code, w.Body)
			}
			resp := decodeEnvelope(t, w.Body.Bytes())
			if resp.Error == nil || resp.Error.Code != "EARTH_ENGINE_ERROR" {
				t.Errorf("error = %+v, want EARTH_ENGINE_ERROR", resp.Error)
			}
			if !strings.HasPrefix(resp.Error.Message, "Earth Engine unreachable") {
				t.Errorf("message = %q", resp.Error.Message)
			}
		})
	}
}

func TestDetails_PolygonUnreachableEarthEngine(t *testing.T) {
	t.Parallel()

	h := newUnreachableHandler(t)

	w := httptest.NewRecorder()
	h.Details(w, httptest.NewRequest(http.MethodGet, "/details?polygon_id=Lake-Tahoe", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode %s: %v", w.Body, err)
	}
	if msg, _ := doc["error"].(string); !strings.HasPrefix(msg, "Earth Engine unreachable") {
		t.Errorf("error = %v, want unreachable message", doc["error"])
	}
	if _, ok := doc["timeSeries"]; ok {
		t.Error("failed document must not carry a time series")
	}
}

func TestPointEndpoints_ClientCanceled(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, &fakeAnalyzer{err: context.Canceled}, nil, "closed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, handle := range []http.HandlerFunc{h.Details, h.TimeSeries} {
		w := httptest.NewRecorder()
		handle(w, httptest.NewRequest(http.MethodGet, "/x?lat=1&lon=2", nil).WithContext(ctx))

		if w.Code != statusClientClosedRequest {
			t.Errorf("status = %d, want %d", w.Code, statusClientClosedRequest)
		}
	}

	// A cancellation the client did not cause is still a server failure.
	w := httptest.NewRecorder()
	h.Details(w, httptest.NewRequest(http.MethodGet, "/x?lat=1&lon=2", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
