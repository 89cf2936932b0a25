// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package api

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/goccy/go-json"
)

// Main renders the map page with the cloud frequency layer and the polygon
// IDs the browser script needs to boot.
func (h *Handler) Main(w http.ResponseWriter, r *http.Request) {
	ids, err := json.Marshal(h.polygons.IDs())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render page", err)
		return
	}

	values := map[string]interface{}{
		"eeMapId":              h.layer.Map.MapID,
		"eeToken":              h.layer.Map.Token,
		"eeTileUrl":            h.layer.Map.TileURL,
		"serializedPolygonIds": template.JS(ids),
	}

	// Render into a buffer so a template error still yields a clean 500.
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, values); err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render page", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
