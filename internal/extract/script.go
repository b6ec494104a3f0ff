package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/woozymasta/geoscrape/internal/geo"

	"github.com/PuerkitoBio/goquery"
)

// scriptKeyRe finds coordinate arrays assigned in inline scripts, e.g.
// `polygon: [[34.1, 31.2], ...]` or `var coordinates = [...]`.
var scriptKeyRe = regexp.MustCompile(`["']?\b(polygon|coordinates)["']?\s*[:=]\s*\[`)

// fromScripts emits one location per coordinate array found in inline scripts.
// Arrays hold a ring of [lon, lat] pairs or rings of rings (first ring used).
// A single bare pair is only accepted under the coordinates key.
func fromScripts(doc *Document, yield func(geo.Location) bool) bool {
	name := doc.Title()
	cont := true
	doc.sel.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if _, external := s.Attr("src"); external {
			return true
		}
		typ := strings.ToLower(s.AttrOr("type", ""))
		if typ != "" && !strings.Contains(typ, "javascript") && typ != "module" && typ != "application/json" {
			return true
		}

		for _, coords := range scriptArrays(s.Text()) {
			if !yield(geo.NewLocation(name, coords, nil, doc.URL.String())) {
				cont = false
				return false
			}
		}
		return true
	})
	return cont
}

func scriptArrays(text string) [][]geo.Coordinate {
	var out [][]geo.Coordinate
	for _, m := range scriptKeyRe.FindAllStringSubmatchIndex(text, -1) {
		start := m[1] - 1
		barePair := text[m[2]:m[3]] == "coordinates"
		end, ok := matchBracket(text, start)
		if !ok {
			continue
		}

		var v any
		if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
			continue
		}
		if coords := validCoords(arrayCoords(v, barePair)); len(coords) > 0 {
			out = append(out, coords)
		}
	}
	return out
}

// matchBracket returns the index of the bracket closing the one at start.
func matchBracket(text string, start int) (int, bool) {
	depth := 0
	var quote byte
	for i := start; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func arrayCoords(v any, barePair bool) []geo.Coordinate {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	if c, ok := lonLat(arr); ok {
		if !barePair || len(arr) != 2 {
			return nil
		}
		return []geo.Coordinate{c}
	}
	if first, ok := arr[0].([]any); ok && len(first) > 0 {
		if _, nested := first[0].([]any); nested {
			return arrayCoords(first, false)
		}
	}

	coords := make([]geo.Coordinate, 0, len(arr))
	for _, e := range arr {
		pair, ok := e.([]any)
		if !ok {
			return nil
		}
		c, ok := lonLat(pair)
		if !ok {
			return nil
		}
		coords = append(coords, c)
	}
	return coords
}

func lonLat(arr []any) (geo.Coordinate, bool) {
	if len(arr) < 2 {
		return geo.Coordinate{}, false
	}
	lon, ok1 := arr[0].(float64)
	lat, ok2 := arr[1].(float64)
	if !ok1 || !ok2 {
		return geo.Coordinate{}, false
	}
	return geo.Coordinate{Lon: lon, Lat: lat}, true
}
