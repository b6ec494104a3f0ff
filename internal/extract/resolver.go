package extract

import (
	"net/url"

	"github.com/woozymasta/geoscrape/internal/textutil"

	"github.com/PuerkitoBio/goquery"
)

// DefaultLinkSelector matches every anchor with a target.
const DefaultLinkSelector = "a[href]"

// ResolveLink finds the first anchor whose visible text matches targetName and
// returns its absolute URL. Text is compared after trimming, whitespace
// collapsing, case folding and NFKD normalization.
func ResolveLink(doc *Document, targetName string) (*url.URL, error) {
	return ResolveLinkIn(doc, DefaultLinkSelector, targetName)
}

// ResolveLinkIn is ResolveLink restricted to the anchors matched by selector.
func ResolveLinkIn(doc *Document, selector, targetName string) (*url.URL, error) {
	if selector == "" {
		selector = DefaultLinkSelector
	}

	want := textutil.Normalize(targetName)
	notFound := &LinkNotFoundError{Name: targetName, PageURL: doc.URL.String()}
	if want == "" {
		return nil, notFound
	}

	var found *url.URL
	doc.sel.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok || textutil.Normalize(s.Text()) != want {
			return true
		}
		u, ok := doc.Resolve(href)
		if !ok {
			return true
		}
		found = u
		return false
	})

	if found == nil {
		return nil, notFound
	}
	return found, nil
}
