package geo

import "math"

// MaxLat is the latitude limit of the Web Mercator projection.
const MaxLat = 85.05112878

// Mercator projects a WGS84 position onto the unit Web Mercator square.
//
// x grows eastwards from 0 at lon -180 to 1 at lon 180, y grows southwards
// from 0 at MaxLat to 1 at -MaxLat. Latitudes beyond MaxLat are clamped.
func Mercator(lon, lat float64) (x, y float64) {
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	x = (lon + 180.0) / 360.0

	latRad := lat * math.Pi / 180.0
	mercatorY := math.Log(math.Tan(math.Pi/4 + latRad/2))
	y = 0.5 - mercatorY/(2.0*math.Pi)

	return x, y
}
