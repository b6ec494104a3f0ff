package extract

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/woozymasta/geoscrape/internal/geo"

	"github.com/PuerkitoBio/goquery"
)

// fromJSONLD emits schema.org objects carrying a "geo" property.
func fromJSONLD(doc *Document, yield func(geo.Location) bool) bool {
	cont := true
	doc.sel.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		cont = walkLD(v, func(obj map[string]any) bool {
			loc, ok := ldLocation(doc, obj)
			if !ok {
				return true
			}
			return yield(loc)
		})
		return cont
	})
	return cont
}

// walkLD visits every object with a "geo" key, depth first in key order.
func walkLD(v any, visit func(map[string]any) bool) bool {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if !walkLD(e, visit) {
				return false
			}
		}
	case map[string]any:
		if _, ok := t["geo"]; ok && !visit(t) {
			return false
		}
		for _, k := range slices.Sorted(maps.Keys(t)) {
			if k == "geo" {
				continue
			}
			if !walkLD(t[k], visit) {
				return false
			}
		}
	}
	return true
}

func ldLocation(doc *Document, obj map[string]any) (geo.Location, bool) {
	coords := validCoords(ldGeometry(obj["geo"]))
	if len(coords) == 0 {
		return geo.Location{}, false
	}

	name, _ := obj["name"].(string)
	name = collapse(name)
	if name == "" {
		name = doc.Title()
	}

	source := doc.URL.String()
	if raw, ok := obj["url"].(string); ok {
		if u, ok := doc.Resolve(raw); ok {
			source = u.String()
		}
	}

	attrs := make(map[string]any)
	switch id := obj["identifier"].(type) {
	case string, float64:
		attrs["id"] = id
	case map[string]any:
		switch v := id["value"].(type) {
		case string, float64:
			attrs["id"] = v
		}
	}
	if d, ok := obj["description"].(string); ok && collapse(d) != "" {
		attrs["description"] = collapse(d)
	}
	if tags := ldStrings(obj["keywords"]); len(tags) > 0 {
		attrs["tags"] = strings.Join(tags, ", ")
	}
	if types := ldStrings(obj["@type"]); len(types) > 0 {
		attrs["type"] = types[0]
	}

	return geo.NewLocation(name, coords, attrs, source), true
}

// ldGeometry reads GeoCoordinates (a point) or GeoShape (polygon or box).
func ldGeometry(v any) []geo.Coordinate {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if coords := ldGeometry(e); len(coords) > 0 {
				return coords
			}
		}
	case map[string]any:
		lat, okLat := ldNumber(t["latitude"])
		lon, okLon := ldNumber(t["longitude"])
		if okLat && okLon {
			return []geo.Coordinate{{Lon: lon, Lat: lat}}
		}
		if poly, ok := t["polygon"].(string); ok {
			return shapePoints(poly)
		}
		if box, ok := t["box"].(string); ok {
			if pts := shapePoints(box); len(pts) == 2 {
				lo, hi := pts[0], pts[1]
				return []geo.Coordinate{lo, {Lon: hi.Lon, Lat: lo.Lat}, hi, {Lon: lo.Lon, Lat: hi.Lat}}
			}
		}
	}
	return nil
}

// shapePoints parses the schema.org shape notation: "lat lon lat lon ...",
// separated by whitespace or commas.
func shapePoints(s string) []geo.Coordinate {
	fields := strings.FieldsFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == ',' })
	if len(fields) == 0 || len(fields)%2 != 0 {
		return nil
	}

	coords := make([]geo.Coordinate, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		lat, err1 := strconv.ParseFloat(fields[i], 64)
		lon, err2 := strconv.ParseFloat(fields[i+1], 64)
		if err1 != nil || err2 != nil {
			return nil
		}
		coords = append(coords, geo.Coordinate{Lon: lon, Lat: lat})
	}
	return coords
}

func ldNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func ldStrings(v any) []string {
	switch t := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if p := collapse(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok && collapse(s) != "" {
				out = append(out, collapse(s))
			}
		}
		return out
	}
	return nil
}
