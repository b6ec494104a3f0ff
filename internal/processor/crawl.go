package processor

import (
	"context"

	"github.com/woozymasta/geoscrape/internal/extract"
	"github.com/woozymasta/geoscrape/internal/fetcher"
	"github.com/woozymasta/geoscrape/internal/geo"

	"github.com/rs/zerolog"
)

type queued struct {
	url   string
	page  *fetcher.Page
	depth int
}

// crawl extracts locations from root and, up to the configured depth, from
// the pages linked below it. Pages are visited breadth first and at most
// MaxPages are fetched. Sub-page failures are logged and skipped.
func (s *Scraper) crawl(ctx context.Context, root *fetcher.Page) ([]geo.Location, error) {
	log := zerolog.Ctx(ctx)

	rootURL := *root.URL
	rootURL.Fragment, rootURL.RawFragment = "", ""

	visited := map[string]bool{rootURL.String(): true}
	seen := make(map[string]bool)
	queue := []queued{{url: rootURL.String(), page: root}}

	var locs []geo.Location
	for len(queue) > 0 && s.pages < s.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := queue[0]
		queue = queue[1:]

		page := item.page
		if page == nil {
			var err error
			if page, err = s.fetch(ctx, item.url); err != nil {
				log.Warn().Err(err).Str("url", item.url).Msg("Failed to fetch sub-page")
				continue
			}
		}
		s.pages++

		doc, err := extract.FromPage(page)
		if err != nil {
			log.Warn().Err(err).Str("url", item.url).Msg("Failed to parse page")
			continue
		}

		found, err := s.extractor.Extract(doc)
		if err != nil {
			log.Warn().Err(err).Str("url", item.url).Msg("No locations on page")
		}
		for _, l := range found {
			if key := l.Key(); !seen[key] {
				seen[key] = true
				locs = append(locs, l)
			}
		}

		log.Debug().
			Str("url", item.url).
			Int("depth", item.depth).
			Int("found", len(found)).
			Msg("Page processed")

		if item.depth >= s.cfg.Depth {
			continue
		}
		for _, u := range doc.DeeperLinks() {
			key := u.String()
			if visited[key] {
				continue
			}
			visited[key] = true
			queue = append(queue, queued{url: key, depth: item.depth + 1})
		}
	}

	if len(queue) > 0 {
		log.Warn().
			Int("limit", s.cfg.MaxPages).
			Int("pending", len(queue)).
			Msg("Page limit reached, crawl truncated")
	}

	return locs, nil
}
