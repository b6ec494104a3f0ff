// Package processor runs a scrape: it finds the named location, extracts its
// geometry and writes it as GeoJSON.
package processor

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/woozymasta/geoscrape/internal/config"
	"github.com/woozymasta/geoscrape/internal/extract"
	"github.com/woozymasta/geoscrape/internal/fetcher"
	"github.com/woozymasta/geoscrape/internal/geo"
	"github.com/woozymasta/geoscrape/internal/preview"

	"github.com/rs/zerolog"
)

// PageFetcher retrieves a single page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Page, error)
}

// Result summarizes a finished run.
type Result struct {
	Path        string
	PreviewPath string
	TargetURL   string
	Features    int
	Skipped     int
	Pages       int
	Elapsed     time.Duration
}

// Scraper executes one run for a RunConfig. It is not safe for concurrent use.
type Scraper struct {
	cfg       *config.RunConfig
	fetcher   PageFetcher
	extractor *extract.Extractor
	writer    *Writer

	stage Stage
	pages int
}

// NewScraper creates a Scraper. cfg must already be validated.
func NewScraper(cfg *config.RunConfig, f PageFetcher) *Scraper {
	return &Scraper{
		cfg:       cfg,
		fetcher:   f,
		extractor: extract.NewExtractor(),
		writer:    NewWriter(cfg.Compact),
	}
}

// Stage returns the current stage of the run.
func (s *Scraper) Stage() Stage {
	return s.stage
}

// Run fetches the start page, follows the link named by the search name,
// extracts every location found there and writes them to the output
// directory. Failures are returned as *StageError; no output file is
// written in that case.
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	log := zerolog.Ctx(ctx)
	started := time.Now()
	s.pages = 0

	log.Info().
		Str("search", s.cfg.SearchName).
		Str("start", s.cfg.StartURL).
		Str("out", s.cfg.OutDir).
		Msg("Scrape started")

	s.enter(ctx, StageFetchingStart)
	startPage, err := s.fetch(ctx, s.cfg.StartURL)
	if err != nil {
		return s.fail(ctx, err)
	}

	s.enter(ctx, StageResolving)
	startDoc, err := extract.FromPage(startPage)
	if err != nil {
		return s.fail(ctx, err)
	}

	selector := s.cfg.LinkSelector
	if selector == "" {
		selector = extract.DefaultLinkSelector
	}
	target, err := extract.ResolveLinkIn(startDoc, selector, s.cfg.SearchName)
	if err != nil {
		return s.fail(ctx, err)
	}
	log.Info().Str("url", target.String()).Msg("Location link resolved")

	s.enter(ctx, StageFetchingTarget)
	targetPage, err := s.fetch(ctx, target.String())
	if err != nil {
		return s.fail(ctx, err)
	}

	s.enter(ctx, StageExtracting)
	locs, err := s.crawl(ctx, targetPage)
	if err != nil {
		return s.fail(ctx, err)
	}
	if s.cfg.Describe {
		if locs, err = s.describe(ctx, locs); err != nil {
			return s.fail(ctx, err)
		}
	}

	s.enter(ctx, StageWriting)
	out, err := s.writer.Write(ctx, locs, s.cfg.OutDir, s.cfg.Slug())
	if err != nil {
		return s.fail(ctx, err)
	}

	res := &Result{
		Path:      out.Path,
		TargetURL: target.String(),
		Features:  out.Features,
		Skipped:   out.Skipped,
		Pages:     s.pages,
	}

	if s.cfg.Preview {
		res.PreviewPath = s.preview(ctx, locs)
	}

	s.enter(ctx, StageDone)
	res.Elapsed = time.Since(started)

	log.Info().
		Str("file", res.Path).
		Int("features", res.Features).
		Int("skipped", res.Skipped).
		Int("pages", res.Pages).
		Dur("elapsed", res.Elapsed).
		Msg("Scrape finished")

	return res, nil
}

func (s *Scraper) enter(ctx context.Context, stage Stage) {
	s.stage = stage
	zerolog.Ctx(ctx).Debug().Stringer("stage", stage).Msg("Entering stage")
}

func (s *Scraper) fail(ctx context.Context, err error) (*Result, error) {
	failed := s.stage
	s.stage = StageError

	zerolog.Ctx(ctx).Error().
		Err(err).
		Stringer("stage", failed).
		Msg("Scrape failed")

	return nil, &StageError{Stage: failed, Err: err}
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) (*fetcher.Page, error) {
	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("url", page.URL.String()).
		Int("status", page.StatusCode).
		Int("bytes", len(page.Body)).
		Msg("Page fetched")

	return page, nil
}

// describe adds the place description to locations that link to their own
// page outside the start URL tree.
func (s *Scraper) describe(ctx context.Context, locs []geo.Location) ([]geo.Location, error) {
	log := zerolog.Ctx(ctx)

	start, err := url.Parse(s.cfg.StartURL)
	if err != nil {
		return nil, err
	}

	cache := make(map[string]string)
	out := make([]geo.Location, len(locs))
	for i, l := range locs {
		out[i] = l
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		u, err := url.Parse(l.SourceURL())
		if err != nil || !isPlacePage(start, u) {
			continue
		}

		key := u.String()
		desc, ok := cache[key]
		if !ok {
			desc = s.fetchDescription(ctx, key)
			cache[key] = desc
		}
		if desc != "" {
			out[i] = l.WithAttributes(map[string]any{"description": desc})
		}
	}

	log.Debug().Int("pages", len(cache)).Msg("Descriptions fetched")
	return out, nil
}

func (s *Scraper) fetchDescription(ctx context.Context, rawURL string) string {
	log := zerolog.Ctx(ctx)

	page, err := s.fetch(ctx, rawURL)
	if err != nil {
		log.Warn().Err(err).Str("url", rawURL).Msg("Failed to fetch place page")
		return ""
	}
	doc, err := extract.FromPage(page)
	if err != nil {
		log.Warn().Err(err).Str("url", rawURL).Msg("Failed to parse place page")
		return ""
	}
	return doc.Description()
}

// isPlacePage reports whether u points at an individual place rather than
// at a listing below the start URL.
func isPlacePage(start, u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !strings.EqualFold(u.Host, start.Host) {
		return false
	}
	return !strings.HasPrefix(u.Path, start.Path)
}

func (s *Scraper) preview(ctx context.Context, locs []geo.Location) string {
	log := zerolog.Ctx(ctx)

	path := filepath.Join(s.cfg.OutDir, s.cfg.Slug()+".webp")
	if err := preview.Save(path, locs, preview.DefaultSize); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to render preview")
		return ""
	}

	log.Debug().Str("path", path).Msg("Preview written")
	return path
}
