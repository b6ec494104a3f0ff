package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	geoJSONExt = ".geojson"
	previewExt = ".webp"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	OutDir string
}

// Dataset describes one GeoJSON file of the output directory.
type Dataset struct {
	Name     string    `json:"name"`
	File     string    `json:"file"`
	Preview  string    `json:"preview,omitempty"`
	Features int       `json:"features"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// NewServerContext initializes the context for serving outDir.
func NewServerContext(outDir string) *ServerContext {
	s := &ServerContext{OutDir: outDir}

	datasets, err := s.Datasets()
	if err != nil {
		log.Warn().Err(err).Str("dir", outDir).Msg("Output directory not readable yet")
	} else {
		log.Info().
			Str("dir", outDir).
			Int("datasets_count", len(datasets)).
			Msg("Server context initialized successfully")
	}

	return s
}

// Datasets scans the output directory for GeoJSON files, sorted by name.
// Files that cannot be decoded are listed with zero features.
func (s *ServerContext) Datasets() ([]Dataset, error) {
	entries, err := os.ReadDir(s.OutDir)
	if err != nil {
		return nil, err
	}

	datasets := make([]Dataset, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != geoJSONExt {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		stem := strings.TrimSuffix(name, geoJSONExt)
		d := Dataset{
			Name:     stem,
			File:     "/locations/" + name,
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		}

		if n, err := countFeatures(filepath.Join(s.OutDir, name)); err != nil {
			log.Trace().Err(err).Str("file", name).Msg("Failed to count features")
		} else {
			d.Features = n
		}

		if _, err := os.Stat(filepath.Join(s.OutDir, stem+previewExt)); err == nil {
			d.Preview = "/locations/" + stem + previewExt
		}

		datasets = append(datasets, d)
	}

	sort.Slice(datasets, func(i, j int) bool {
		return datasets[i].Name < datasets[j].Name
	})

	return datasets, nil
}

func countFeatures(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return 0, err
	}

	return len(fc.Features), nil
}
