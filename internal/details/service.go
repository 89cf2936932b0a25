// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

// Package details serves the per-polygon details document shown when a
// polygon is clicked: a Wikipedia link and the brightness time series.
// Successful documents are cached; failures are not.
package details

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/paulmach/orb/geojson"
	"github.com/tomtom215/cloudfrequency/internal/analysis"
	"github.com/tomtom215/cloudfrequency/internal/cache"
	"github.com/tomtom215/cloudfrequency/internal/earthengine"
	"github.com/tomtom215/cloudfrequency/internal/logging"
	"github.com/tomtom215/cloudfrequency/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Document is the JSON returned for a polygon.
type Document struct {
	WikiURL    string           `json:"wikiUrl"`
	TimeSeries *analysis.Series `json:"timeSeries,omitempty"` // nil unless computed
	Error      string           `json:"error,omitempty"`
}

// Polygons resolves polygon IDs. *polygons.Registry implements it.
type Polygons interface {
	Feature(id string) (*geojson.Feature, error)
}

// SeriesComputer computes a polygon's time series. *analysis.Analyzer
// implements it.
type SeriesComputer interface {
	PolygonTimeSeries(ctx context.Context, feature *geojson.Feature) (analysis.Series, error)
}

// DefaultComputeTimeout bounds one shared polygon computation.
const DefaultComputeTimeout = 2 * time.Minute

// Service implements cache-aside lookups of polygon details.
type Service struct {
	polygons       Polygons
	computer       SeriesComputer
	store          cache.Store
	ttl            time.Duration
	wikiURL        string
	computeTimeout time.Duration
	group          singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithComputeTimeout bounds each computation independently of the requests
// waiting on it. Non-positive values keep DefaultComputeTimeout.
func WithComputeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.computeTimeout = d
		}
	}
}

// NewService wires a Service. Documents are cached for ttl.
func NewService(polygons Polygons, computer SeriesComputer, store cache.Store, ttl time.Duration, wikiURL string, opts ...Option) *Service {
	s := &Service{
		polygons:       polygons,
		computer:       computer,
		store:          store,
		ttl:            ttl,
		wikiURL:        wikiURL,
		computeTimeout: DefaultComputeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WikiURL returns the Wikipedia link for a polygon ID; hyphens in the ID
// stand for spaces in the article title.
func (s *Service) WikiURL(polygonID string) string {
	return s.wikiURL + strings.ReplaceAll(polygonID, "-", "%20")
}

// Get returns the JSON details document for polygonID.
//
// A cached document is returned as stored. Otherwise the series is computed;
// on success the document is cached for the configured TTL. When the
// computation fails remotely the document carries the error text in
// "error", is not cached, and Get still succeeds. Unknown IDs return an
// error wrapping polygons.ErrUnknownPolygon.
func (s *Service) Get(ctx context.Context, polygonID string) ([]byte, error) {
	if data, ok := s.cached(ctx, polygonID); ok {
		metrics.PolygonDetailsTotal.WithLabelValues("cached").Inc()
		return data, nil
	}

	// Concurrent misses for one polygon share a single computation. It keeps
	// the first caller's values but not its cancellation, so one client
	// leaving does not fail the others; each caller still stops waiting
	// when its own context ends.
	ch := s.group.DoChan(polygonID, func() (interface{}, error) {
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.computeTimeout)
		defer cancel()
		return s.compute(computeCtx, polygonID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) cached(ctx context.Context, polygonID string) ([]byte, bool) {
	data, found, err := s.store.Get(ctx, polygonID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("polygon_id", polygonID).Msg("Details cache read failed, treating as miss")
		return nil, false
	}
	return data, found
}

func (s *Service) compute(ctx context.Context, polygonID string) ([]byte, error) {
	feature, err := s.polygons.Feature(polygonID)
	if err != nil {
		return nil, err
	}

	doc := Document{WikiURL: s.WikiURL(polygonID)}
	series, err := s.computer.PolygonTimeSeries(ctx, feature)
	switch {
	case err == nil:
		doc.TimeSeries = &series
	case earthengine.IsRemote(err):
		metrics.PolygonDetailsTotal.WithLabelValues("remote_error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("polygon_id", polygonID).Msg("Polygon time series failed")
		doc.Error = err.Error()
		return json.Marshal(doc)
	default:
		return nil, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	metrics.PolygonDetailsTotal.WithLabelValues("computed").Inc()

	if err := s.store.Set(ctx, polygonID, data, s.ttl); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("polygon_id", polygonID).Msg("Details cache write failed")
	}
	return data, nil
}
