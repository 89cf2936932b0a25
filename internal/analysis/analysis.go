// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

// Package analysis builds the Earth Engine computations behind the map and
// its point and polygon queries.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/tomtom215/cloudfrequency/internal/config"
	"github.com/tomtom215/cloudfrequency/internal/earthengine"
	"github.com/tomtom215/cloudfrequency/internal/logging"
)

// Engine evaluates expressions remotely. *earthengine.Client implements it.
type Engine interface {
	ComputeValue(ctx context.Context, expr *earthengine.Value, out interface{}) error
	CreateMap(ctx context.Context, image earthengine.Image, vis earthengine.VisParams) (*earthengine.MapID, error)
}

// Layer is the cloud frequency layer computed at startup: the percentage of
// days in the configured period on which each pixel was flagged cloudy.
type Layer struct {
	Map   *earthengine.MapID
	Image earthengine.Image
}

// Analyzer runs the application's analyses against an Engine.
type Analyzer struct {
	engine   Engine
	layer    config.LayerConfig
	polygons config.PolygonsConfig
}

// New returns an Analyzer using the given layer and polygon settings.
func New(engine Engine, layer config.LayerConfig, polygons config.PolygonsConfig) *Analyzer {
	return &Analyzer{engine: engine, layer: layer, polygons: polygons}
}

// cloudFlag is 1 where the MODIS state QA cloud bits (0-1) read cloudy (01)
// or mixed (10), and 0 otherwise.
func cloudFlag(img earthengine.Image, band string) earthengine.Image {
	state := img.Select(band)
	cloudState := state.Mod(4)
	return cloudState.Eq(1).Or(cloudState.Eq(2))
}

// cloudImage is the mean cloud flag over the layer period, scaled to percent.
func (a *Analyzer) cloudImage() earthengine.Image {
	band := a.layer.Band
	return earthengine.LoadImageCollection(a.layer.Collection).
		FilterDate(earthengine.ParseDate(a.layer.StartDate), earthengine.ParseDate(a.layer.EndDate)).
		Map(func(img earthengine.Image) earthengine.Image { return cloudFlag(img, band) }).
		Reduce(earthengine.ReducerMean()).
		Multiply(100)
}

// CloudLayer builds the cloud frequency image and registers a map for it.
func (a *Analyzer) CloudLayer(ctx context.Context) (*Layer, error) {
	image := a.cloudImage()

	start := time.Now()
	mapID, err := a.engine.CreateMap(ctx, image, earthengine.VisParams{
		Min:     a.layer.Min,
		Max:     a.layer.Max,
		Palette: a.layer.Palette,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud frequency map: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("collection", a.layer.Collection).
		Str("start", a.layer.StartDate).
		Str("end", a.layer.EndDate).
		Str("map_id", mapID.MapID).
		Dur("elapsed", time.Since(start)).
		Msg("Cloud frequency layer ready")

	return &Layer{Map: mapID, Image: image}, nil
}

// ValueAtPoint reduces the layer image with a mean over the point at the
// configured scale and returns the result dictionary as computed, for
// example {"state_1km_mean": 42.1}. Outside coverage the dictionary holds
// null values.
func (a *Analyzer) ValueAtPoint(ctx context.Context, layer *Layer, lat, lon float64) (map[string]interface{}, error) {
	expr := layer.Image.ReduceRegion(
		earthengine.ReducerMean(),
		earthengine.PointGeometry(lon, lat),
		a.layer.ReductionScale,
	)

	var out map[string]interface{}
	if err := a.engine.ComputeValue(ctx, expr, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]interface{}{}
	}
	return out, nil
}

// TimeSeriesAtPoint returns the monthly cloud frequency at a point for the
// configured series year: one sample per month, stamped with the first of
// the month, valued as the mean daily cloud flag (0..1). Months without
// imagery have a nil value.
func (a *Analyzer) TimeSeriesAtPoint(ctx context.Context, lat, lon float64) (Series, error) {
	year := a.layer.SeriesYear
	band := a.layer.Band

	flagged := earthengine.LoadImageCollection(a.layer.Collection).
		// End-exclusive like the layer window, so 31 December is not sampled.
		FilterDate(
			earthengine.DateFromYMD(year, 1, 1),
			earthengine.DateFromYMD(year, 12, 31),
		).
		Map(func(img earthengine.Image) earthengine.Image {
			return cloudFlag(img, band).Set(earthengine.TimeStartProperty, img.Get(earthengine.TimeStartProperty))
		})

	months := make([]earthengine.Image, 0, 12)
	for m := 1; m <= 12; m++ {
		monthly := flagged.
			Filter(earthengine.FilterCalendarRange(year, year, "year")).
			Filter(earthengine.FilterCalendarRange(m, m, "month")).
			Mean().
			Set("year", earthengine.Constant(year)).
			Set("month", earthengine.Constant(m)).
			Set(earthengine.TimeStartProperty, earthengine.DateFromYMD(year, m, 1).Millis())
		months = append(months, monthly)
	}

	point := earthengine.PointGeometry(lon, lat)
	samples := earthengine.ImageCollectionFromImages(months).
		MapToFeatures(func(img earthengine.Image) earthengine.Feature {
			return sampleFeature(img, point, a.layer.SeriesScale)
		})

	var fc featureCollection
	if err := a.engine.ComputeValue(ctx, samples.Value(), &fc); err != nil {
		return nil, err
	}
	return seriesFromFeatures(&fc, band)
}

// PolygonTimeSeries returns the mean night-time brightness inside the
// polygon for every image of the configured collection, oldest first.
func (a *Analyzer) PolygonTimeSeries(ctx context.Context, feature *geojson.Feature) (Series, error) {
	region, err := earthengine.GeometryFromOrb(feature.Geometry)
	if err != nil {
		return nil, err
	}

	samples := earthengine.LoadImageCollection(a.polygons.Collection).
		Select(a.polygons.Band).
		Sort(earthengine.TimeStartProperty).
		MapToFeatures(func(img earthengine.Image) earthengine.Feature {
			return sampleFeature(img, region, a.polygons.ReductionScale)
		})

	var fc featureCollection
	if err := a.engine.ComputeValue(ctx, samples.Value(), &fc); err != nil {
		return nil, err
	}
	return seriesFromFeatures(&fc, a.polygons.Band)
}

// sampleFeature is a geometry-less feature carrying the mean of every band
// of img over region plus the image's acquisition time. A band with no
// pixels in the region is simply absent from the properties.
func sampleFeature(img earthengine.Image, region earthengine.Geometry, scale float64) earthengine.Feature {
	return earthengine.NewFeature(nil, img.ReduceRegion(earthengine.ReducerMean(), region, scale)).
		Set(earthengine.TimeStartProperty, img.Get(earthengine.TimeStartProperty))
}
