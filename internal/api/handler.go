// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

// Package api serves the map page and its AJAX endpoints over chi.
package api

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/tomtom215/cloudfrequency/internal/analysis"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// PointAnalyzer answers the point queries. *analysis.Analyzer implements it.
type PointAnalyzer interface {
	ValueAtPoint(ctx context.Context, layer *analysis.Layer, lat, lon float64) (map[string]interface{}, error)
	TimeSeriesAtPoint(ctx context.Context, lat, lon float64) (analysis.Series, error)
}

// DetailsGetter returns the JSON details document of a polygon.
// *details.Service implements it.
type DetailsGetter interface {
	Get(ctx context.Context, polygonID string) ([]byte, error)
}

// PolygonLister lists the known polygon IDs. *polygons.Registry implements it.
type PolygonLister interface {
	IDs() []string
}

// BreakerReporter exposes the Earth Engine circuit breaker state.
// *earthengine.Client implements it.
type BreakerReporter interface {
	BreakerState() string
}

// HandlerDeps groups the handler's collaborators.
type HandlerDeps struct {
	Analyzer PointAnalyzer
	Layer    *analysis.Layer
	Details  DetailsGetter
	Polygons PolygonLister
	Breaker  BreakerReporter
	Template *template.Template // main page; must define the root template
}

// Handler holds the HTTP handlers.
type Handler struct {
	analyzer  PointAnalyzer
	layer     *analysis.Layer
	details   DetailsGetter
	polygons  PolygonLister
	breaker   BreakerReporter
	tmpl      *template.Template
	startTime time.Time
}

// NewHandler returns a Handler. Analyzer, Layer, Details, Polygons and
// Template are required.
func NewHandler(deps HandlerDeps) (*Handler, error) {
	switch {
	case deps.Analyzer == nil:
		return nil, fmt.Errorf("analyzer is required")
	case deps.Layer == nil || deps.Layer.Map == nil:
		return nil, fmt.Errorf("cloud frequency layer is required")
	case deps.Details == nil:
		return nil, fmt.Errorf("details service is required")
	case deps.Polygons == nil:
		return nil, fmt.Errorf("polygon registry is required")
	case deps.Template == nil:
		return nil, fmt.Errorf("main page template is required")
	}

	return &Handler{
		analyzer:  deps.Analyzer,
		layer:     deps.Layer,
		details:   deps.Details,
		polygons:  deps.Polygons,
		breaker:   deps.Breaker,
		tmpl:      deps.Template,
		startTime: time.Now(),
	}, nil
}

// LoadTemplate parses the main page template from path.
func LoadTemplate(path string) (*template.Template, error) {
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return tmpl, nil
}
