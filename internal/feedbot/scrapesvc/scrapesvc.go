// Package scrapesvc provides access to the managed scraping service used by the
// web tier: rendered page text and site-restricted search.
package scrapesvc

import (
	"context"
	"errors"

	"github.com/RobinCoderZhao/feedbot/pkg/scraper"
)

// ErrSearchUnsupported is returned by services that cannot search.
var ErrSearchUnsupported = errors.New("scrapesvc: search not supported")

// SearchResult is one search hit.
type SearchResult struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Service is the scraping-service boundary.
type Service interface {
	// Scrape returns the rendered text content of url.
	Scrape(ctx context.Context, url string) (string, error)

	// Search returns up to limit results for query.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Direct scrapes pages with plain HTTP and HTML text extraction. It is used
// when no managed service is configured and cannot search.
type Direct struct {
	fetcher scraper.Fetcher
	opts    *scraper.FetchOptions
}

// NewDirect creates a Direct service on top of fetcher.
func NewDirect(fetcher scraper.Fetcher, opts *scraper.FetchOptions) *Direct {
	if opts == nil {
		opts = scraper.DefaultFetchOptions()
	}
	return &Direct{fetcher: fetcher, opts: opts}
}

func (d *Direct) Scrape(ctx context.Context, url string) (string, error) {
	// Fetch mutates the headers map; give it a private copy.
	opts := *d.opts
	opts.Headers = make(map[string]string, len(d.opts.Headers))
	for k, v := range d.opts.Headers {
		opts.Headers[k] = v
	}

	res, err := d.fetcher.Fetch(ctx, url, &opts)
	if err != nil {
		return "", err
	}
	return res.CleanText, nil
}

func (d *Direct) Search(context.Context, string, int) ([]SearchResult, error) {
	return nil, ErrSearchUnsupported
}
