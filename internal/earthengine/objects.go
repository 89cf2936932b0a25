// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package earthengine

import (
	"fmt"

	"github.com/paulmach/orb"
)

// TimeStartProperty is the acquisition time property carried by images.
const TimeStartProperty = "system:time_start"

// Image is a server-side image.
type Image struct{ v *Value }

// ImageCollection is a server-side image collection.
type ImageCollection struct{ v *Value }

// Feature is a server-side feature.
type Feature struct{ v *Value }

// FeatureCollection is a server-side feature collection.
type FeatureCollection struct{ v *Value }

// Geometry is a server-side geometry.
type Geometry struct{ v *Value }

// Reducer is a server-side reducer.
type Reducer struct{ v *Value }

// Date is a server-side date.
type Date struct{ v *Value }

// Filter is a server-side collection filter.
type Filter struct{ v *Value }

// VisParams controls Image.Visualize.
type VisParams struct {
	Min     float64
	Max     float64
	Palette []string
}

func (i Image) Value() *Value             { return i.v }
func (c ImageCollection) Value() *Value   { return c.v }
func (f Feature) Value() *Value           { return f.v }
func (c FeatureCollection) Value() *Value { return c.v }
func (g Geometry) Value() *Value          { return g.v }

// ImageConstant is an image with value x in every pixel.
func ImageConstant(x float64) Image {
	return Image{Invoke("Image.constant", map[string]*Value{"value": Constant(x)})}
}

// Select keeps the named bands.
func (i Image) Select(bands ...string) Image {
	return Image{Invoke("Image.select", map[string]*Value{
		"input":         i.v,
		"bandSelectors": Strings(bands...),
	})}
}

func (i Image) binary(function string, other Image) Image {
	return Image{Invoke(function, map[string]*Value{"image1": i.v, "image2": other.v})}
}

// Mod is the per-pixel remainder of division by n.
func (i Image) Mod(n float64) Image { return i.binary("Image.mod", ImageConstant(n)) }

// Eq is 1 where the pixel equals n and 0 elsewhere.
func (i Image) Eq(n float64) Image { return i.binary("Image.eq", ImageConstant(n)) }

// Or is the per-pixel logical or of two images.
func (i Image) Or(other Image) Image { return i.binary("Image.or", other) }

// Multiply scales every pixel by n.
func (i Image) Multiply(n float64) Image { return i.binary("Image.multiply", ImageConstant(n)) }

// Set returns the image with a property set.
func (i Image) Set(key string, value *Value) Image {
	return Image{setProperty(i.v, key, value)}
}

// Get reads an image property.
func (i Image) Get(property string) *Value {
	return Invoke("Element.get", map[string]*Value{
		"object":   i.v,
		"property": Constant(property),
	})
}

// ReduceRegion applies reducer to the pixels within geometry at the given
// nominal scale in meters. The result is a dictionary keyed by band name
// plus the reducer's output suffix.
func (i Image) ReduceRegion(reducer Reducer, geometry Geometry, scale float64) *Value {
	return Invoke("Image.reduceRegion", map[string]*Value{
		"image":    i.v,
		"reducer":  reducer.v,
		"geometry": geometry.v,
		"scale":    Constant(scale),
	})
}

// Visualize renders the image to RGB for tiling.
func (i Image) Visualize(p VisParams) Image {
	args := map[string]*Value{
		"image": i.v,
		"min":   Constant(p.Min),
		"max":   Constant(p.Max),
	}
	if len(p.Palette) > 0 {
		args["palette"] = Strings(p.Palette...)
	}
	return Image{Invoke("Image.visualize", args)}
}

// LoadImageCollection references a catalog collection by asset ID.
func LoadImageCollection(id string) ImageCollection {
	return ImageCollection{Invoke("ImageCollection.load", map[string]*Value{"id": Constant(id)})}
}

// ImageCollectionFromImages builds a collection from a list of images.
func ImageCollectionFromImages(images []Image) ImageCollection {
	items := make([]*Value, len(images))
	for i, img := range images {
		items[i] = img.v
	}
	return ImageCollection{Invoke("ImageCollection.fromImages", map[string]*Value{"images": Array(items...)})}
}

// Filter keeps the images matching f.
func (c ImageCollection) Filter(f Filter) ImageCollection {
	return ImageCollection{Invoke("Collection.filter", map[string]*Value{
		"collection": c.v,
		"filter":     f.v,
	})}
}

// FilterDate keeps images acquired in [start, end).
func (c ImageCollection) FilterDate(start, end Date) ImageCollection {
	return c.Filter(FilterDateRange(start, end))
}

// Select keeps the named bands of every image.
func (c ImageCollection) Select(bands ...string) ImageCollection {
	return c.Map(func(img Image) Image { return img.Select(bands...) })
}

// Sort orders the collection by an image property, ascending.
func (c ImageCollection) Sort(property string) ImageCollection {
	return ImageCollection{Invoke("Collection.limit", map[string]*Value{
		"collection": c.v,
		"key":        Constant(property),
	})}
}

// Map applies fn to every image on the server.
func (c ImageCollection) Map(fn func(Image) Image) ImageCollection {
	return ImageCollection{mapCollection(c.v, func(arg *Value) *Value {
		return fn(Image{arg}).v
	})}
}

// MapToFeatures turns every image into a feature.
func (c ImageCollection) MapToFeatures(fn func(Image) Feature) FeatureCollection {
	return FeatureCollection{mapCollection(c.v, func(arg *Value) *Value {
		return fn(Image{arg}).v
	})}
}

// Reduce applies reducer across the collection per pixel. Output bands are
// named after the input bands with the reducer suffix (state_1km_mean).
func (c ImageCollection) Reduce(reducer Reducer) Image {
	return Image{Invoke("ImageCollection.reduce", map[string]*Value{
		"collection": c.v,
		"reducer":    reducer.v,
	})}
}

// Mean is the per-pixel mean; band names are kept unchanged.
func (c ImageCollection) Mean() Image {
	return Image{Invoke("reduce.mean", map[string]*Value{"collection": c.v})}
}

// NewFeature builds a feature from a geometry (nil for none) and a
// property dictionary.
func NewFeature(geometry *Geometry, properties *Value) Feature {
	geom := Constant(nil)
	if geometry != nil {
		geom = geometry.v
	}
	return Feature{Invoke("Feature", map[string]*Value{
		"geometry": geom,
		"metadata": properties,
	})}
}

// Set returns the feature with a property set.
func (f Feature) Set(key string, value *Value) Feature {
	return Feature{setProperty(f.v, key, value)}
}

// PointGeometry is a point at lon, lat.
func PointGeometry(lon, lat float64) Geometry {
	return Geometry{Invoke("GeometryConstructors.Point", map[string]*Value{
		"coordinates": Constant([]float64{lon, lat}),
	})}
}

// GeometryFromOrb converts a planar orb geometry into a server-side
// geometry. Points, polygons and multipolygons are supported.
func GeometryFromOrb(g orb.Geometry) (Geometry, error) {
	var constructor string
	switch g.(type) {
	case orb.Point:
		constructor = "GeometryConstructors.Point"
	case orb.Polygon:
		constructor = "GeometryConstructors.Polygon"
	case orb.MultiPolygon:
		constructor = "GeometryConstructors.MultiPolygon"
	case nil:
		return Geometry{}, fmt.Errorf("missing geometry")
	default:
		return Geometry{}, fmt.Errorf("unsupported geometry type %s", g.GeoJSONType())
	}
	return Geometry{Invoke(constructor, map[string]*Value{"coordinates": Constant(g)})}, nil
}

// ReducerMean is the mean reducer.
func ReducerMean() Reducer {
	return Reducer{Invoke("Reducer.mean", nil)}
}

// ParseDate builds a date from an ISO 8601 string.
func ParseDate(s string) Date {
	return Date{Invoke("Date", map[string]*Value{"value": Constant(s)})}
}

// DateFromYMD builds a UTC date.
func DateFromYMD(year, month, day int) Date {
	return Date{Invoke("Date.fromYMD", map[string]*Value{
		"year":  Constant(year),
		"month": Constant(month),
		"day":   Constant(day),
	})}
}

// Millis is the date as milliseconds since the Unix epoch.
func (d Date) Millis() *Value {
	return Invoke("Date.millis", map[string]*Value{"input": d.v})
}

// FilterDateRange matches images whose acquisition time falls in [start, end).
func FilterDateRange(start, end Date) Filter {
	return Filter{Invoke("Filter.dateRangeContains", map[string]*Value{
		"leftValue":  Invoke("DateRange", map[string]*Value{"start": start.v, "end": end.v}),
		"rightField": Constant(TimeStartProperty),
	})}
}

// FilterCalendarRange matches images whose calendar field (year, month,
// day_of_year...) lies in [start, end] inclusive.
func FilterCalendarRange(start, end int, field string) Filter {
	return Filter{Invoke("Filter.calendarRange", map[string]*Value{
		"start": Constant(start),
		"end":   Constant(end),
		"field": Constant(field),
	})}
}

func setProperty(object *Value, key string, value *Value) *Value {
	return Invoke("Element.set", map[string]*Value{
		"object": object,
		"key":    Constant(key),
		"value":  value,
	})
}

// mapCollection wraps fn in a one-argument server-side function and maps
// it over collection. The argument is named after its nesting depth so that
// nested mapped functions never shadow each other.
func mapCollection(collection *Value, fn func(arg *Value) *Value) *Value {
	probe := fn(ArgumentRef("_PROBE_"))
	name := fmt.Sprintf("_MAPPING_VAR_%d_0", definitionDepth(probe))
	return Invoke("Collection.map", map[string]*Value{
		"collection":    collection,
		"baseAlgorithm": Function([]string{name}, fn(ArgumentRef(name))),
	})
}

// definitionDepth is the deepest nesting of function definitions under v.
func definitionDepth(v *Value) int {
	if v == nil {
		return 0
	}
	depth := 0
	switch v.kind {
	case kindDefinition:
		return 1 + definitionDepth(v.body)
	case kindArray:
		for _, item := range v.items {
			depth = max(depth, definitionDepth(item))
		}
	case kindDictionary, kindInvocation:
		for _, item := range v.entries {
			depth = max(depth, definitionDepth(item))
		}
	}
	return depth
}
