// Package geo handles location data and its GeoJSON representation.
package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Geometry returns the go-geom geometry of l: a closed Polygon when l has at
// least three distinct vertices, otherwise a Point at the first coordinate.
// It returns nil when l is not Valid.
func Geometry(l Location) geom.T {
	if !l.Valid() {
		return nil
	}

	ring := openRing(l.coords)
	if distinct(ring) < 3 {
		return geom.NewPointFlat(geom.XY, []float64{l.coords[0].Lon, l.coords[0].Lat})
	}

	flat := make([]float64, 0, 2*len(ring)+2)
	for _, c := range ring {
		flat = append(flat, c.Lon, c.Lat)
	}
	flat = append(flat, ring[0].Lon, ring[0].Lat)

	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// openRing drops the closing vertex when the last coordinate repeats the first.
func openRing(coords []Coordinate) []Coordinate {
	if n := len(coords); n > 1 && coords[0] == coords[n-1] {
		return coords[:n-1]
	}
	return coords
}

func distinct(coords []Coordinate) int {
	seen := make(map[Coordinate]struct{}, len(coords))
	for _, c := range coords {
		seen[c] = struct{}{}
	}
	return len(seen)
}

// Feature converts l into a GeoJSON feature whose properties are the
// attributes of l plus its name. It returns nil when l is not Valid.
func Feature(l Location) *geojson.Feature {
	g := Geometry(l)
	if g == nil {
		return nil
	}

	props := l.Attributes()
	props["name"] = l.name

	return &geojson.Feature{
		Geometry:   g,
		Properties: props,
	}
}

// NewFeatureCollection builds a collection from locs in order.
// Invalid locations are left out and returned as skipped.
func NewFeatureCollection(locs []Location) (fc *geojson.FeatureCollection, skipped []Location) {
	fc = &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(locs))}
	for _, l := range locs {
		f := Feature(l)
		if f == nil {
			skipped = append(skipped, l)
			continue
		}
		fc.Features = append(fc.Features, f)
	}

	return fc, skipped
}

// Bounds returns the bounding box of all valid locations, or nil if there are none.
func Bounds(locs []Location) *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, l := range locs {
		if g := Geometry(l); g != nil {
			b.Extend(g)
		}
	}
	if b.IsEmpty() {
		return nil
	}
	return b
}
