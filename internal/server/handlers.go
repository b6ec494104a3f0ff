// Package server serves scraped GeoJSON files over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const etagCap = 64

var contentTypes = map[string]string{
	geoJSONExt: "application/geo+json",
	previewExt: "image/webp",
}

// HandleLocationsList serves the list of available datasets.
func (s *ServerContext) HandleLocationsList(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.Datasets()
	if err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Str("dir", s.OutDir).Msg("Failed to scan output directory")
		http.Error(w, "failed to list locations", http.StatusInternalServerError)
		return
	}
	if datasets == nil {
		datasets = []Dataset{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(datasets)
}

// HandleLocation serves a single GeoJSON file or its preview image.
func (s *ServerContext) HandleLocation(w http.ResponseWriter, r *http.Request) {
	// Path: /locations/{file}
	name := strings.TrimPrefix(r.URL.Path, "/locations/")

	// flat names only to prevent path probing
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}

	contentType, ok := contentTypes[filepath.Ext(name)]
	if !ok {
		http.NotFound(w, r)
		return
	}

	if !s.serveFile(w, r, filepath.Join(s.OutDir, name), contentType) {
		http.NotFound(w, r)
	}
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	w.Header().Set("Content-Type", contentType)

	http.ServeFile(w, r, path)
	return true
}

// Handler returns the routes of the server wrapped in request logging.
func (s *ServerContext) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/locations", s.HandleLocationsList)
	mux.HandleFunc("/locations/", s.HandleLocation)

	return RequestLogger(mux)
}
