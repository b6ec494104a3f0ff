// Package fetcher downloads HTML pages for the scraper.
package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Options configures a Fetcher.
type Options struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int64
}

// Page is a successfully fetched document.
type Page struct {
	// URL is the final location after redirects.
	URL         *url.URL
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher performs single-attempt HTTP GET requests.
type Fetcher struct {
	client *http.Client
	opts   Options
}

// New creates a Fetcher. A nil client is replaced by one using opts.Timeout.
func New(client *http.Client, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 10 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "geoscrape/1.0"
	}
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: opts.Timeout,
		}
	}

	return &Fetcher{client: client, opts: opts}
}

// Fetch downloads rawURL and returns its body.
// Failures are reported as *NetworkError or *EmptyResponseError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &NetworkError{URL: rawURL, Err: ErrInvalidURL}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: errBadStatus}
	}

	// one byte past the limit tells a truncated page from a complete one
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodySize+1))
	if err != nil {
		return nil, &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > f.opts.MaxBodySize {
		return nil, &NetworkError{URL: rawURL, Err: ErrBodyTooLarge}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &EmptyResponseError{URL: rawURL}
	}

	final := u
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}

	return &Page{
		URL:         final,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
