// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package analysis

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tomtom215/cloudfrequency/internal/earthengine"
)

// Point is one sample of a time series: milliseconds since the Unix epoch
// and the reduced value, nil where the region had no data.
type Point struct {
	Time  int64
	Value *float64
}

// MarshalJSON encodes the point as the two-element array [time, value]
// expected by the chart code in the browser.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.Time, p.Value})
}

// UnmarshalJSON decodes [time, value].
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("time series point must have 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Time); err != nil {
		return fmt.Errorf("time series point time: %w", err)
	}
	p.Value = nil
	if !isNull(raw[1]) {
		var v float64
		if err := json.Unmarshal(raw[1], &v); err != nil {
			return fmt.Errorf("time series point value: %w", err)
		}
		p.Value = &v
	}
	return nil
}

// Series is a time series in acquisition order.
type Series []Point

// featureCollection is the computed form of a server-side feature collection.
type featureCollection struct {
	Features []struct {
		Properties map[string]json.RawMessage `json:"properties"`
	} `json:"features"`
}

// dateValue is how computed dates are returned.
type dateValue struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

// seriesFromFeatures reads (system:time_start, valueKey) out of every
// feature in order.
func seriesFromFeatures(fc *featureCollection, valueKey string) (Series, error) {
	series := make(Series, 0, len(fc.Features))
	for i, f := range fc.Features {
		t, err := parseTime(f.Properties[earthengine.TimeStartProperty])
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		v, err := parseNumber(f.Properties[valueKey])
		if err != nil {
			return nil, fmt.Errorf("feature %d: %s: %w", i, valueKey, err)
		}
		series = append(series, Point{Time: t, Value: v})
	}
	return series, nil
}

func parseTime(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, fmt.Errorf("missing %s", earthengine.TimeStartProperty)
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return int64(ms), nil
	}
	var d dateValue
	if err := json.Unmarshal(raw, &d); err != nil || d.Type != "Date" {
		return 0, fmt.Errorf("unexpected %s value %s", earthengine.TimeStartProperty, string(raw))
	}
	return d.Value, nil
}

func parseNumber(raw json.RawMessage) (*float64, error) {
	if isNull(raw) {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
