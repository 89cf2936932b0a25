// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

// Package polygons is the registry of polygon definitions shipped with the
// server. Each polygon is one GeoJSON file; its ID is the file name without
// the .json suffix.
package polygons

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"
	"github.com/tomtom215/cloudfrequency/internal/logging"
	"github.com/tomtom215/cloudfrequency/internal/metrics"
)

const fileSuffix = ".json"

// ErrUnknownPolygon is returned for IDs that are not in the registry.
var ErrUnknownPolygon = errors.New("unknown polygon")

// Registry lists the polygons found at startup and parses them on demand.
type Registry struct {
	dir      string
	ids      []string
	known    map[string]struct{}
	features sync.Map // id -> *geojson.Feature
}

// Load scans dir once. Only regular .json files are registered.
func Load(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read polygon directory: %w", err)
	}

	r := &Registry{dir: dir, known: make(map[string]struct{})}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), fileSuffix)
		if id == "" {
			continue
		}
		r.ids = append(r.ids, id)
		r.known[id] = struct{}{}
	}
	sort.Strings(r.ids)

	metrics.PolygonsLoaded.Set(float64(len(r.ids)))
	logging.Info().Str("dir", dir).Int("count", len(r.ids)).Msg("Polygon definitions loaded")

	return r, nil
}

// IDs returns the sorted polygon IDs. The slice is a copy.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	if !validID(id) {
		return false
	}
	_, ok := r.known[id]
	return ok
}

// Feature returns the parsed GeoJSON feature for id.
func (r *Registry) Feature(id string) (*geojson.Feature, error) {
	if !r.Has(id) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolygon, id)
	}
	if f, ok := r.features.Load(id); ok {
		return f.(*geojson.Feature), nil
	}

	data, err := os.ReadFile(filepath.Join(r.dir, id+fileSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to read polygon %q: %w", id, err)
	}
	f, err := parseFeature(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse polygon %q: %w", id, err)
	}

	actual, _ := r.features.LoadOrStore(id, f)
	return actual.(*geojson.Feature), nil
}

func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

// parseFeature accepts a Feature, a FeatureCollection (first feature) or a
// bare geometry.
func parseFeature(data []byte) (*geojson.Feature, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	var f *geojson.Feature
	switch probe.Type {
	case "Feature":
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		f = feature
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		if len(fc.Features) == 0 {
			return nil, fmt.Errorf("feature collection is empty")
		}
		f = fc.Features[0]
	case "":
		return nil, fmt.Errorf("missing GeoJSON type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		f = geojson.NewFeature(g.Geometry())
	}

	if f.Geometry == nil {
		return nil, fmt.Errorf("feature has no geometry")
	}
	return f, nil
}
