package processor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/woozymasta/geoscrape/internal/geo"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/tdewolff/minify/v2"
	minjson "github.com/tdewolff/minify/v2/json"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const jsonMediaType = "application/json"

// Writer serializes locations into a GeoJSON FeatureCollection file.
type Writer struct {
	compact bool
	min     *minify.M
}

// NewWriter creates a Writer. Compact output is minified, otherwise the
// document is indented with two spaces.
func NewWriter(compact bool) *Writer {
	m := minify.New()
	m.Add(jsonMediaType, &minjson.Minifier{KeepNumbers: true})

	return &Writer{compact: compact, min: m}
}

// Output describes a written GeoJSON file.
type Output struct {
	Path     string
	Features int
	Skipped  int
}

// Write stores locs as outDir/<name>.geojson. Locations without valid
// geometry are skipped with a warning. The file is replaced atomically: on
// error no partial output is left behind.
func (w *Writer) Write(ctx context.Context, locs []geo.Location, outDir, name string) (*Output, error) {
	log := zerolog.Ctx(ctx)

	fc, skipped := geo.NewFeatureCollection(locs)
	for _, l := range skipped {
		log.Warn().
			Str("name", l.Name()).
			Str("source", l.SourceURL()).
			Msg("Skipping location without valid geometry")
	}

	data, err := w.encode(fc)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(outDir, name+".geojson")
	if err := saveGeoJSON(outDir, path, data); err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", path).
		Int("features", len(fc.Features)).
		Int("skipped", len(skipped)).
		Int("bytes", len(data)).
		Msg("GeoJSON written")

	return &Output{Path: path, Features: len(fc.Features), Skipped: len(skipped)}, nil
}

func (w *Writer) encode(fc *geojson.FeatureCollection) ([]byte, error) {
	if !w.compact {
		data, err := json.MarshalIndent(fc, "", "  ")
		if err != nil {
			return nil, eris.Wrap(err, "encode feature collection")
		}
		return append(data, '\n'), nil
	}

	raw, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "encode feature collection")
	}
	data, err := w.min.Bytes(jsonMediaType, raw)
	if err != nil {
		return nil, eris.Wrap(err, "minify feature collection")
	}
	return append(data, '\n'), nil
}

// saveGeoJSON writes data to a temporary file in dir and renames it to path.
func saveGeoJSON(dir, path string, data []byte) (err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	tmp := f.Name()

	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return &IOError{Op: "write", Path: tmp, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &IOError{Op: "sync", Path: tmp, Err: err}
	}
	if err := f.Chmod(0644); err != nil {
		return &IOError{Op: "chmod", Path: tmp, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}

	return nil
}
