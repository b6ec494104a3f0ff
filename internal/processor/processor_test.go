package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/woozymasta/geoscrape/internal/config"
	"github.com/woozymasta/geoscrape/internal/extract"
	"github.com/woozymasta/geoscrape/internal/fetcher"
	"github.com/woozymasta/geoscrape/internal/geo"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const startPage = `<html><body><ul class="linkslist">
	<li><a href="/country/Israel/">Israel</a></li>
	<li><a href="/country/Israel/Rehovot/">Rehovot</a></li>
	<li><a href="/country/Empty/">Empty</a></li>
</ul></body></html>`

const rehovotPage = `<html><head><title>Rehovot</title></head><body><ul>
	<li><a href="/123/Weizmann-Institute">Weizmann Institute</a> <a href="/#lat=31.9077&lon=34.8106&z=15&m=w">map</a></li>
	<li><a href="/country/Israel/Rehovot/Center/">Rehovot Center</a> <a href="/#lat=31.8947&lon=34.8093&z=15&m=w">map</a></li>
</ul></body></html>`

const centerPage = `<html><body><ul>
	<li><a href="/456/Central-Park">Central Park</a> <a href="/#lat=31.8950&lon=34.8100&z=17&m=w">map</a></li>
</ul></body></html>`

const placePage = `<html><body><h1>Weizmann Institute</h1>
	<div id="place-description">
		Research   institute
		founded in 1934.
	</div></body></html>`

// site is a small fake of the scraped web site that counts requests per path.
type site struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

func newSite(t *testing.T) *site {
	t.Helper()

	s := &site{hits: make(map[string]int)}
	pages := map[string]string{
		"/country/":                       startPage,
		"/country/Israel/Rehovot/":        rehovotPage,
		"/country/Israel/Rehovot/Center/": centerPage,
		"/country/Empty/":                 `<html><body><p>Nothing mapped here yet.</p></body></html>`,
		"/123/Weizmann-Institute":         placePage,
	}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()

		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *site) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newConfig(t *testing.T, baseURL, name string) *config.RunConfig {
	t.Helper()

	cfg := &config.RunConfig{
		SearchName: name,
		StartURL:   baseURL + "/country/",
		OutDir:     filepath.Join(t.TempDir(), "out"),
	}
	cfg.ApplyDefaults()
	cfg.Timeout = 5 * time.Second
	require.NoError(t, cfg.Validate())

	return cfg
}

func newScraper(cfg *config.RunConfig) *Scraper {
	return NewScraper(cfg, fetcher.New(nil, fetcher.Options{Timeout: cfg.Timeout, UserAgent: "test"}))
}

func readCollection(t *testing.T, path string) *geojson.FeatureCollection {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	return &fc
}

func featureNames(fc *geojson.FeatureCollection) []string {
	names := make([]string, 0, len(fc.Features))
	for _, f := range fc.Features {
		names = append(names, fmt.Sprint(f.Properties["name"]))
	}
	return names
}

func TestRun(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Rehovot")
	s := newScraper(cfg)

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StageDone, s.Stage())
	assert.Equal(t, filepath.Join(cfg.OutDir, "rehovot.geojson"), res.Path)
	assert.Equal(t, srv.URL+"/country/Israel/Rehovot/", res.TargetURL)
	assert.Equal(t, 2, res.Features)
	assert.Equal(t, 1, res.Pages)

	fc := readCollection(t, res.Path)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, []string{"Weizmann Institute", "Rehovot Center"}, featureNames(fc))

	first := fc.Features[0]
	assert.InDeltaSlice(t, []float64{34.8106, 31.9077}, first.Geometry.FlatCoords(), 1e-9)
	assert.Equal(t, float64(123), first.Properties["id"])

	// nothing below the target is crawled at depth 0
	assert.Zero(t, srv.hitCount("/country/Israel/Rehovot/Center/"))
}

func TestRunLinkNotFound(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Atlantis")
	s := newScraper(cfg)

	res, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, StageError, s.Stage())

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageResolving, stageErr.Stage)

	var notFound *extract.LinkNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Atlantis", notFound.Name)

	_, statErr := os.Stat(filepath.Join(cfg.OutDir, "atlantis.geojson"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunStartFetchFails(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Rehovot")
	cfg.StartURL = srv.URL + "/missing/"

	_, err := newScraper(cfg).Run(context.Background())

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageFetchingStart, stageErr.Stage)

	var netErr *fetcher.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)

	_, statErr := os.Stat(cfg.OutDir)
	assert.True(t, os.IsNotExist(statErr), "no output directory on failure")
}

func TestRunEmptyTarget(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Empty")

	res, err := newScraper(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Features)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"features": []`)
}

func TestRunIdempotent(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Rehovot")

	res, err := newScraper(cfg).Run(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(res.Path)
	require.NoError(t, err)

	res, err = newScraper(cfg).Run(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(res.Path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunCreatesNestedOutDir(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Rehovot")
	cfg.OutDir = filepath.Join(t.TempDir(), "a", "b", "c")

	res, err := newScraper(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, res.Path)
}

func TestRunOutDirIsFile(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Rehovot")

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.OutDir = blocker

	_, err := newScraper(cfg).Run(context.Background())

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageWriting, stageErr.Stage)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "mkdir", ioErr.Op)
}

func TestRunDepth(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Rehovot")
	cfg.Depth = 1

	res, err := newScraper(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 1, srv.hitCount("/country/Israel/Rehovot/Center/"))

	fc := readCollection(t, res.Path)
	assert.Equal(t, []string{"Weizmann Institute", "Rehovot Center", "Central Park"}, featureNames(fc))
}

func TestRunPageLimit(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Rehovot")
	cfg.Depth = 3
	cfg.MaxPages = 1

	res, err := newScraper(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.Zero(t, srv.hitCount("/country/Israel/Rehovot/Center/"))
}

func TestRunDescribe(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Rehovot")
	cfg.Describe = true

	res, err := newScraper(cfg).Run(context.Background())
	require.NoError(t, err)

	fc := readCollection(t, res.Path)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "Research institute founded in 1934.", fc.Features[0].Properties["description"])
	assert.NotContains(t, fc.Features[1].Properties, "description")

	assert.Equal(t, 1, srv.hitCount("/123/Weizmann-Institute"))
	assert.Zero(t, srv.hitCount("/country/Israel/Rehovot/Center/"), "listing pages are not place pages")
}

func TestRunPreview(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Rehovot")
	cfg.Preview = true

	res, err := newScraper(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutDir, "rehovot.webp"), res.PreviewPath)
	assert.FileExists(t, res.PreviewPath)
}

func TestRunCanceled(t *testing.T) {
	srv := newSite(t)
	cfg := newConfig(t, srv.URL, "Rehovot")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newScraper(cfg).Run(ctx)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageFetchingStart, stageErr.Stage)
}

func TestRunManyNames(t *testing.T) {
	const n = 25

	var items strings.Builder
	want := make([]string, 0, n)
	for i := range n {
		name := fmt.Sprintf("Place %02d", i)
		want = append(want, name)
		fmt.Fprintf(&items, `<li><a href="/%d/place">%s</a> <a href="/#lat=%f&lon=%f">map</a></li>`,
			1000+i, name, 10+float64(i)/10, 20+float64(i)/10)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/country/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/country/":
			_, _ = w.Write([]byte(`<a href="/country/Many/">Many Places</a>`))
		case "/country/Many/":
			_, _ = w.Write([]byte("<ul>" + items.String() + "</ul>"))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := newConfig(t, srv.URL, "many places")
	res, err := newScraper(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutDir, "many-places.geojson"), res.Path)

	fc := readCollection(t, res.Path)
	assert.Equal(t, want, featureNames(fc))
}

func TestWriterSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	locs := []geo.Location{
		geo.NewLocation("Good", []geo.Coordinate{{Lon: 1, Lat: 2}}, nil, ""),
		geo.NewLocation("Bad", []geo.Coordinate{{Lon: 200, Lat: 2}}, nil, ""),
	}

	var logs bytes.Buffer
	ctx := zerolog.New(&logs).WithContext(context.Background())

	out, err := NewWriter(false).Write(ctx, locs, dir, "mixed")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Features)
	assert.Equal(t, 1, out.Skipped)

	fc := readCollection(t, out.Path)
	assert.Equal(t, []string{"Good"}, featureNames(fc))

	// the warning precedes the debug summary of the write
	first, _, _ := bytes.Cut(logs.Bytes(), []byte("\n"))
	var event map[string]any
	require.NoError(t, json.Unmarshal(first, &event))
	assert.Equal(t, "warn", event["level"])
	assert.Equal(t, "Skipping location without valid geometry", event["message"])
	assert.Equal(t, "Bad", event["name"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file must not be left behind")
	assert.Equal(t, "mixed.geojson", entries[0].Name())
}

func TestWriterCompact(t *testing.T) {
	dir := t.TempDir()
	locs := []geo.Location{
		geo.NewLocation("Point", []geo.Coordinate{{Lon: 34.5, Lat: 31.25}}, map[string]any{"id": 7}, ""),
	}

	indented, err := NewWriter(false).Write(context.Background(), locs, dir, "indented")
	require.NoError(t, err)
	compact, err := NewWriter(true).Write(context.Background(), locs, dir, "compact")
	require.NoError(t, err)

	full, err := os.ReadFile(indented.Path)
	require.NoError(t, err)
	small, err := os.ReadFile(compact.Path)
	require.NoError(t, err)

	assert.Less(t, len(small), len(full))
	assert.Equal(t, 1, bytes.Count(small, []byte("\n")), "only the trailing newline")
	assert.True(t, json.Valid(small))
	assert.Equal(t, readCollection(t, indented.Path), readCollection(t, compact.Path))
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "resolving link", StageResolving.String())
	assert.Equal(t, "unknown", Stage(99).String())

	err := &StageError{Stage: StageWriting, Err: errors.New("disk full")}
	assert.Equal(t, "writing: disk full", err.Error())
}
