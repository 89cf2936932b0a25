// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package api

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/tomtom215/cloudfrequency/internal/analysis"
)

// pointQuery is the lat/lon pair of a map click.
type pointQuery struct {
	Lat string `query:"lat" validate:"required,latitude"`
	Lon string `query:"lon" validate:"required,longitude"`
}

type polygonQuery struct {
	ID string `query:"polygon_id" validate:"required,max=128,polygon_id"`
}

// parsePoint validates and parses lat/lon. On failure it writes a 400 and
// returns ok=false.
func parsePoint(w http.ResponseWriter, r *http.Request) (lat, lon float64, ok bool) {
	q := pointQuery{
		Lat: r.URL.Query().Get("lat"),
		Lon: r.URL.Query().Get("lon"),
	}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondValidationError(w, apiErr)
		return 0, 0, false
	}

	// The validator already checked both parse as floats in range.
	lat, _ = strconv.ParseFloat(q.Lat, 64)
	lon, _ = strconv.ParseFloat(q.Lon, 64)
	return lat, lon, true
}

// Details answers a map click: the cloud frequency at a point, or the
// details document of a polygon when polygon_id is given.
//
// @Summary Cloud frequency at a point, or polygon details
// @Description With lat and lon, returns the mean of the cloud frequency layer over the point, keyed by band (for example {"state_1km_mean": 42.1}).
// @Description With polygon_id, returns {"wikiUrl", "timeSeries"} for the polygon, or {"wikiUrl", "error"} when Earth Engine fails.
// @Tags Map
// @Produce json
// @Param lat query number false "Latitude in degrees"
// @Param lon query number false "Longitude in degrees"
// @Param polygon_id query string false "Polygon ID"
// @Success 200 {object} map[string]interface{} "Reduction result or polygon details"
// @Failure 400 {object} models.APIResponse "Invalid parameters"
// @Failure 404 {object} models.APIResponse "Unknown polygon"
// @Failure 502 {object} models.APIResponse "Earth Engine error"
// @Router /details [get]
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("polygon_id") {
		h.polygonDetails(w, r)
		return
	}

	lat, lon, ok := parsePoint(w, r)
	if !ok {
		return
	}

	value, err := h.analyzer.ValueAtPoint(r.Context(), h.layer, lat, lon)
	if err != nil {
		respondComputeError(w, r, err)
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to encode result", err)
		return
	}
	respondRaw(w, http.StatusOK, data)
}

func (h *Handler) polygonDetails(w http.ResponseWriter, r *http.Request) {
	q := polygonQuery{ID: r.URL.Query().Get("polygon_id")}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	data, err := h.details.Get(r.Context(), q.ID)
	if err != nil {
		respondComputeError(w, r, err)
		return
	}
	respondRaw(w, http.StatusOK, data)
}

// TimeSeries returns the monthly cloud frequency at a point.
//
// @Summary Monthly cloud frequency at a point
// @Description Returns [[time_ms, value], ...] with one entry per month of the configured year. Value is the mean daily cloud flag (0 to 1), or null for months without imagery.
// @Tags Map
// @Produce json
// @Param lat query number true "Latitude in degrees"
// @Param lon query number true "Longitude in degrees"
// @Success 200 {array} []interface{} "Time series"
// @Failure 400 {object} models.APIResponse "Invalid parameters"
// @Failure 502 {object} models.APIResponse "Earth Engine error"
// @Router /timeseries [get]
func (h *Handler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parsePoint(w, r)
	if !ok {
		return
	}

	series, err := h.analyzer.TimeSeriesAtPoint(r.Context(), lat, lon)
	if err != nil {
		respondComputeError(w, r, err)
		return
	}
	if series == nil {
		series = analysis.Series{}
	}

	data, err := json.Marshal(series)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to encode result", err)
		return
	}
	respondRaw(w, http.StatusOK, data)
}
