// Package extract reads links and embedded geometry out of fetched HTML pages.
package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/woozymasta/geoscrape/internal/fetcher"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page together with the URL it was fetched from.
type Document struct {
	URL *url.URL
	sel *goquery.Document
}

// Parse builds a Document from raw HTML.
func Parse(pageURL *url.URL, body []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{URL: pageURL.String(), Reason: "invalid html", Err: err}
	}

	return &Document{URL: pageURL, sel: goquery.NewDocumentFromNode(root)}, nil
}

// FromPage parses a fetched page.
func FromPage(p *fetcher.Page) (*Document, error) {
	return Parse(p.URL, p.Body)
}

// Base returns the URL relative links are resolved against: the <base href>
// of the page when present, otherwise the page URL.
func (d *Document) Base() *url.URL {
	href, ok := d.sel.Find("base[href]").First().Attr("href")
	if !ok {
		return d.URL
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return d.URL
	}
	return d.URL.ResolveReference(ref)
}

// Resolve turns href into an absolute URL. Script, mail, phone and data
// links as well as bare fragments are rejected.
func (d *Document) Resolve(href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") {
		return nil, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	return d.Base().ResolveReference(ref), true
}

// Title returns the best display name of the page: og:title, the first
// heading, then <title>.
func (d *Document) Title() string {
	if v, ok := d.sel.Find(`meta[property="og:title"]`).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
		return collapse(v)
	}
	if h1 := collapse(d.sel.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return collapse(d.sel.Find("title").First().Text())
}

// Description returns the text of the place description block, if any.
func (d *Document) Description() string {
	return collapse(d.sel.Find("#place-description").First().Text())
}

// DeeperLinks returns the distinct links of the page that live below it:
// same host and a path starting with the page path. Fragments are dropped.
func (d *Document) DeeperLinks() []*url.URL {
	self := *d.URL
	self.Fragment, self.RawFragment = "", ""

	seen := map[string]bool{self.String(): true}
	var links []*url.URL
	d.sel.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, ok := d.Resolve(href)
		if !ok {
			return
		}
		u.Fragment, u.RawFragment = "", ""
		if !strings.EqualFold(u.Host, d.URL.Host) || !strings.HasPrefix(u.Path, d.URL.Path) {
			return
		}
		if key := u.String(); !seen[key] {
			seen[key] = true
			links = append(links, u)
		}
	})

	return links
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
