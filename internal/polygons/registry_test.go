// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package polygons

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
)

const (
	featureDoc    = `{"type":"Feature","properties":{"name":"Bay"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}`
	collectionDoc = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"MultiPolygon","coordinates":[[[[0,0],[2,0],[2,2],[0,0]]]]}}]}`
	geometryDoc   = `{"type":"Polygon","coordinates":[[[5,5],[6,5],[6,6],[5,5]]]}`
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"Lake-Tahoe.json": featureDoc,
		"Anhui.json":      geometryDoc,
		"README.md":       "not a polygon",
		".json":           "{}",
	})
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	r, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"Anhui", "Lake-Tahoe"}
	if got := r.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}

	ids := r.IDs()
	ids[0] = "mutated"
	if r.IDs()[0] != "Anhui" {
		t.Error("IDs() must return a copy")
	}
}

func TestLoad_MissingDir(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	t.Parallel()

	r, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(r.IDs()) != 0 {
		t.Errorf("IDs() = %v, want empty", r.IDs())
	}
}

func TestFeature(t *testing.T) {
	t.Parallel()

	r, err := Load(writeFiles(t, map[string]string{
		"feature.json":    featureDoc,
		"collection.json": collectionDoc,
		"geometry.json":   geometryDoc,
		"empty.json":      `{"type":"FeatureCollection","features":[]}`,
		"broken.json":     `{"type":`,
		"untyped.json":    `{"coordinates":[]}`,
	}))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id       string
		wantType string
		wantErr  bool
	}{
		{"feature", "Polygon", false},
		{"collection", "MultiPolygon", false},
		{"geometry", "Polygon", false},
		{"empty", "", true},
		{"broken", "", true},
		{"untyped", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()
			f, err := r.Feature(tt.id)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				if errors.Is(err, ErrUnknownPolygon) {
					t.Error("parse failures must not look like unknown IDs")
				}
				return
			}
			if err != nil {
				t.Fatalf("Feature() error = %v", err)
			}
			if got := f.Geometry.GeoJSONType(); got != tt.wantType {
				t.Errorf("geometry type = %q, want %q", got, tt.wantType)
			}
		})
	}
}

func TestFeature_Memoized(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"bay.json": featureDoc})
	r, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	first, err := r.Feature("bay")
	if err != nil {
		t.Fatal(err)
	}
	// Later file changes are not observed once parsed.
	if err := os.WriteFile(filepath.Join(dir, "bay.json"), []byte(geometryDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := r.Feature("bay")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("Feature() should return the memoized feature")
	}
	if _, ok := second.Geometry.(orb.Polygon); !ok {
		t.Errorf("geometry = %T, want orb.Polygon", second.Geometry)
	}
}

func TestFeature_UnknownAndUnsafeIDs(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"bay.json": featureDoc})
	r, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"", "missing", "../bay", "a/b", `a\b`, "..", "bay.json"} {
		if r.Has(id) {
			t.Errorf("Has(%q) = true", id)
		}
		if _, err := r.Feature(id); !errors.Is(err, ErrUnknownPolygon) {
			t.Errorf("Feature(%q) error = %v, want ErrUnknownPolygon", id, err)
		}
	}
}
