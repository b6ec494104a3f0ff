package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/woozymasta/geoscrape/internal/geo"
)

// PointFromMapURL reads the lat/lon parameters of a map link such as
// "/#lang=en&lat=-14.260057&lon=-170.649948&z=13&m=w". Parameters are taken
// from the query and the fragment, the fragment wins.
func PointFromMapURL(href string) (geo.Coordinate, bool) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return geo.Coordinate{}, false
	}

	params := u.Query()
	// ParseQuery keeps every well-formed pair even when it reports an error.
	frag, _ := url.ParseQuery(u.Fragment)
	for k, v := range frag {
		params[k] = v
	}

	lat, err := strconv.ParseFloat(params.Get("lat"), 64)
	if err != nil {
		return geo.Coordinate{}, false
	}

	rawLon := params.Get("lon")
	if rawLon == "" {
		rawLon = params.Get("lng")
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return geo.Coordinate{}, false
	}

	c := geo.Coordinate{Lon: lon, Lat: lat}
	return c, c.Valid()
}

// placeID returns the numeric leading path segment of a place URL
// ("/15002/Arad-Israel" yields 15002).
func placeID(u *url.URL) (int64, bool) {
	segment, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
