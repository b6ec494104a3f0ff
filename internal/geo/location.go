package geo

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lon float64
	Lat float64
}

// Valid reports whether the coordinate is finite and inside the WGS84 range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsInf(c.Lon, 0) || math.IsInf(c.Lat, 0) {
		return false
	}
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Location is a single extracted place. The zero value has no geometry and is not Valid.
// A Location is immutable: accessors hand out copies.
type Location struct {
	name      string
	sourceURL string
	coords    []Coordinate
	attrs     map[string]any
}

// NewLocation creates a Location, copying coords and attrs.
func NewLocation(name string, coords []Coordinate, attrs map[string]any, sourceURL string) Location {
	return Location{
		name:      name,
		sourceURL: sourceURL,
		coords:    slices.Clone(coords),
		attrs:     maps.Clone(attrs),
	}
}

// Name returns the place name.
func (l Location) Name() string { return l.name }

// SourceURL returns the page the place was found on or links to.
func (l Location) SourceURL() string { return l.sourceURL }

// Coordinates returns a copy of the geometry.
func (l Location) Coordinates() []Coordinate { return slices.Clone(l.coords) }

// Attributes returns a copy of the attributes.
func (l Location) Attributes() map[string]any {
	if l.attrs == nil {
		return map[string]any{}
	}
	return maps.Clone(l.attrs)
}

// WithAttributes returns a copy of l with extra merged over its attributes.
func (l Location) WithAttributes(extra map[string]any) Location {
	attrs := l.Attributes()
	maps.Copy(attrs, extra)
	return Location{name: l.name, sourceURL: l.sourceURL, coords: l.coords, attrs: attrs}
}

// Valid reports whether l has at least one coordinate and all of them are valid.
func (l Location) Valid() bool {
	if len(l.coords) == 0 {
		return false
	}
	for _, c := range l.coords {
		if !c.Valid() {
			return false
		}
	}
	return true
}

// Key identifies a location for duplicate suppression.
func (l Location) Key() string {
	var b strings.Builder
	b.WriteString(l.sourceURL)
	b.WriteByte('|')
	b.WriteString(l.name)
	for _, c := range l.coords {
		fmt.Fprintf(&b, "|%g,%g", c.Lon, c.Lat)
	}
	return b.String()
}
