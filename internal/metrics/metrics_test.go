// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// getGaugeValue extracts the value from a Prometheus gauge
func getGaugeValue(gauge prometheus.Gauge) float64 {
	var m io_prometheus_client.Metric
	if err := gauge.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func TestRecordAPIRequest(t *testing.T) {
	counter := APIRequestsTotal.WithLabelValues("GET", "/details", "200")
	before := testutil.ToFloat64(counter)

	RecordAPIRequest("GET", "/details", "200", 25*time.Millisecond)

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("api_requests_total = %v, want %v", got, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := getGaugeValue(APIActiveRequests)

	TrackActiveRequest(true)
	if got := getGaugeValue(APIActiveRequests); got != before+1 {
		t.Errorf("after inc: %v, want %v", got, before+1)
	}

	TrackActiveRequest(false)
	if got := getGaugeValue(APIActiveRequests); got != before {
		t.Errorf("after dec: %v, want %v", got, before)
	}
}

func TestRecordEarthEngineCall(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantLabel  string
	}{
		{"success", 200, "200"},
		{"throttled", 429, "429"},
		{"transport error", 0, "error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			counter := EarthEngineRequestsTotal.WithLabelValues("value_compute", tt.wantLabel)
			before := testutil.ToFloat64(counter)

			RecordEarthEngineCall("value_compute", tt.statusCode, time.Second)

			if got := testutil.ToFloat64(counter); got != before+1 {
				t.Errorf("earthengine_requests_total{status=%q} = %v, want %v", tt.wantLabel, got, before+1)
			}
		})
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := CacheHits.WithLabelValues("memory")
	misses := CacheMisses.WithLabelValues("memory")
	hitsBefore, missesBefore := testutil.ToFloat64(hits), testutil.ToFloat64(misses)

	RecordCacheLookup("memory", true)
	RecordCacheLookup("memory", false)
	RecordCacheLookup("memory", false)

	if got := testutil.ToFloat64(hits) - hitsBefore; got != 1 {
		t.Errorf("hits delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(misses) - missesBefore; got != 2 {
		t.Errorf("misses delta = %v, want 2", got)
	}
}
