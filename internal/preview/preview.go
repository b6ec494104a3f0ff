// Package preview renders a small raster overview of scraped locations.
package preview

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"

	"github.com/woozymasta/geoscrape/internal/geo"

	"github.com/chai2010/webp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// DefaultSize is the edge length in pixels of a rendered preview.
const DefaultSize = 512

const (
	// shapes are rasterized at this multiple of the output size and scaled down
	supersample = 2
	padding     = 0.06
	dotRadius   = 4.0
	dotSegments = 16
)

var (
	background = color.RGBA{R: 0xf4, G: 0xf1, B: 0xea, A: 0xff}
	areaFill   = color.RGBA{R: 0x2b, G: 0x6c, B: 0xb0, A: 0x99}
	pointFill  = color.RGBA{R: 0xc0, G: 0x39, B: 0x2b, A: 0xff}
)

// ErrNothingToDraw is returned when none of the locations has a valid geometry.
var ErrNothingToDraw = eris.New("preview: no valid geometry to draw")

// projection maps lon/lat onto canvas pixels, fitting the data bounds.
type projection struct {
	minX, minY float64
	scale      float64
	offX, offY float64
}

func newProjection(locs []geo.Location, canvas int) projection {
	b := geo.Bounds(locs)

	// Mercator keeps lon order and flips lat order
	minX, maxY := geo.Mercator(b.Min(0), b.Min(1))
	maxX, minY := geo.Mercator(b.Max(0), b.Max(1))

	span := math.Max(maxX-minX, maxY-minY)
	if span <= 0 {
		span = 1e-6
	}

	inner := float64(canvas) * (1 - 2*padding)
	scale := inner / span

	return projection{
		minX:  minX,
		minY:  minY,
		scale: scale,
		offX:  (float64(canvas) - (maxX-minX)*scale) / 2,
		offY:  (float64(canvas) - (maxY-minY)*scale) / 2,
	}
}

func (p projection) point(c geo.Coordinate) (float32, float32) {
	x, y := geo.Mercator(c.Lon, c.Lat)
	return float32(p.offX + (x-p.minX)*p.scale), float32(p.offY + (y-p.minY)*p.scale)
}

// Render draws polygons as filled areas and points as dots on a square
// image of size pixels.
func Render(locs []geo.Location, size int) (*image.RGBA, error) {
	if size <= 0 {
		size = DefaultSize
	}

	valid := make([]geo.Location, 0, len(locs))
	for _, l := range locs {
		if l.Valid() {
			valid = append(valid, l)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNothingToDraw
	}

	canvas := size * supersample
	proj := newProjection(valid, canvas)

	big := image.NewRGBA(image.Rect(0, 0, canvas, canvas))
	draw.Draw(big, big.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	r := vector.NewRasterizer(canvas, canvas)

	// areas first so dots stay visible on top
	var areas int
	for _, l := range valid {
		poly, ok := geo.Geometry(l).(*geom.Polygon)
		if !ok {
			continue
		}
		flat := poly.FlatCoords()
		for i := 0; i+1 < len(flat); i += 2 {
			x, y := proj.point(geo.Coordinate{Lon: flat[i], Lat: flat[i+1]})
			if i == 0 {
				r.MoveTo(x, y)
				continue
			}
			r.LineTo(x, y)
		}
		r.ClosePath()
		areas++
	}
	if areas > 0 {
		r.Draw(big, big.Bounds(), image.NewUniform(areaFill), image.Point{})
	}

	r.Reset(canvas, canvas)
	var dots int
	radius := dotRadius * supersample
	for _, l := range valid {
		if _, ok := geo.Geometry(l).(*geom.Point); !ok {
			continue
		}
		cx, cy := proj.point(l.Coordinates()[0])
		circle(r, cx, cy, radius)
		dots++
	}
	if dots > 0 {
		r.Draw(big, big.Bounds(), image.NewUniform(pointFill), image.Point{})
	}

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(out, out.Bounds(), big, big.Bounds(), draw.Src, nil)

	return out, nil
}

// Save renders locs and writes the result as a lossless WebP file at path.
func Save(path string, locs []geo.Location, size int) error {
	img, err := Render(locs, size)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return eris.Wrapf(err, "preview: create dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "preview: create %s", path)
	}

	if err := webp.Encode(f, img, &webp.Options{Lossless: true}); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return eris.Wrapf(err, "preview: encode %s", path)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return eris.Wrapf(err, "preview: close %s", path)
	}

	return nil
}

func circle(r *vector.Rasterizer, cx, cy float32, radius float64) {
	for i := 0; i <= dotSegments; i++ {
		a := 2 * math.Pi * float64(i) / dotSegments
		x := cx + float32(radius*math.Cos(a))
		y := cy + float32(radius*math.Sin(a))
		if i == 0 {
			r.MoveTo(x, y)
			continue
		}
		r.LineTo(x, y)
	}
	r.ClosePath()
}
