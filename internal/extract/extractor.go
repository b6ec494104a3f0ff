package extract

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/woozymasta/geoscrape/internal/geo"
	"github.com/woozymasta/geoscrape/internal/textutil"

	"github.com/PuerkitoBio/goquery"
)

// source emits the locations of one payload kind. It returns false when
// yield asked to stop.
type source func(doc *Document, yield func(geo.Location) bool) bool

// Extractor finds geometry embedded in a page.
type Extractor struct {
	sources []source
}

// NewExtractor returns an Extractor reading, in order: "Name | map" list
// items, JSON-LD geo data, coordinate arrays in inline scripts and geo meta tags.
func NewExtractor() *Extractor {
	return &Extractor{sources: []source{fromMapPairs, fromJSONLD, fromScripts, fromMeta}}
}

// Locations lazily yields the distinct valid locations of doc in document order.
func (e *Extractor) Locations(doc *Document) iter.Seq[geo.Location] {
	return func(yield func(geo.Location) bool) {
		seen := make(map[string]bool)
		emit := func(l geo.Location) bool {
			if !l.Valid() {
				return true
			}
			key := l.Key()
			if seen[key] {
				return true
			}
			seen[key] = true
			return yield(l)
		}

		for _, src := range e.sources {
			if !src(doc, emit) {
				return
			}
		}
	}
}

// Extract collects the locations of doc. It returns a *ParseError when the
// page holds no recognizable geometry.
func (e *Extractor) Extract(doc *Document) ([]geo.Location, error) {
	locs := slices.Collect(e.Locations(doc))
	if len(locs) == 0 {
		return nil, &ParseError{URL: doc.URL.String(), Reason: "no geometry payload found"}
	}
	return locs, nil
}

// fromMapPairs reads list items made of a place link followed by a "map"
// link carrying the position.
func fromMapPairs(doc *Document, yield func(geo.Location) bool) bool {
	cont := true
	doc.sel.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		anchors := li.Find("a")
		if anchors.Length() != 2 || !textutil.EqualFold(anchors.Eq(1).Text(), "map") {
			return true
		}

		point, ok := PointFromMapURL(anchors.Eq(1).AttrOr("href", ""))
		if !ok {
			return true
		}

		place := anchors.Eq(0)
		attrs := make(map[string]any)
		source := doc.URL.String()
		if u, ok := doc.Resolve(place.AttrOr("href", "")); ok {
			source = u.String()
			if id, ok := placeID(u); ok {
				attrs["id"] = id
			}
		}

		cont = yield(geo.NewLocation(collapse(place.Text()), []geo.Coordinate{point}, attrs, source))
		return cont
	})
	return cont
}

// fromMeta reads the geo.position or ICBM meta tags.
func fromMeta(doc *Document, yield func(geo.Location) bool) bool {
	var lat, lon string
	if v, ok := doc.sel.Find(`meta[name="geo.position"]`).First().Attr("content"); ok {
		lat, lon, _ = strings.Cut(v, ";")
	} else if v, ok := doc.sel.Find(`meta[name="ICBM"]`).First().Attr("content"); ok {
		lat, lon, _ = strings.Cut(v, ",")
	} else {
		return true
	}

	latF, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lonF, err2 := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err1 != nil || err2 != nil {
		return true
	}

	name := collapse(doc.sel.Find(`meta[name="geo.placename"]`).First().AttrOr("content", ""))
	if name == "" {
		name = doc.Title()
	}

	return yield(geo.NewLocation(name, []geo.Coordinate{{Lon: lonF, Lat: latF}}, nil, doc.URL.String()))
}

func validCoords(coords []geo.Coordinate) []geo.Coordinate {
	return slices.DeleteFunc(coords, func(c geo.Coordinate) bool { return !c.Valid() })
}
