// Package scraper provides HTTP content fetching and HTML parsing utilities.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BrowserUserAgent is sent by default; several news sites reject bot agents.
const BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const defaultMaxBytes = 4 << 20

// FetchOptions configures the behavior of a Get or Fetch call.
type FetchOptions struct {
	UserAgent  string            `yaml:"user_agent"`
	Timeout    time.Duration     `yaml:"timeout"`
	RetryCount int               `yaml:"retry_count"`
	Headers    map[string]string `yaml:"headers"`
	MaxBytes   int64             `yaml:"max_bytes"`
}

// DefaultFetchOptions returns sensible defaults for fetching.
func DefaultFetchOptions() *FetchOptions {
	return &FetchOptions{
		UserAgent:  BrowserUserAgent,
		Timeout:    10 * time.Second,
		RetryCount: 0,
		MaxBytes:   defaultMaxBytes,
	}
}

// FetchResult holds the result of fetching an HTML page.
type FetchResult struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	RawHTML    string        `json:"raw_html"`
	CleanText  string        `json:"clean_text"`
	Title      string        `json:"title"`
	FetchedAt  time.Time     `json:"fetched_at"`
	Duration   time.Duration `json:"duration"`
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Fetcher defines the interface for fetching web content.
type Fetcher interface {
	Get(ctx context.Context, url string, opts *FetchOptions) ([]byte, error)
	Fetch(ctx context.Context, url string, opts *FetchOptions) (*FetchResult, error)
}

// HTTPFetcher implements Fetcher using standard HTTP.
type HTTPFetcher struct {
	client    *http.Client
	readerURL string
}

// Option customizes an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient replaces the underlying HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithReader enables a rendering reader (e.g. "https://r.jina.ai/") used when a
// page yields too little text, which usually means it is rendered client-side.
func WithReader(baseURL string) Option {
	return func(f *HTTPFetcher) { f.readerURL = baseURL }
}

// NewHTTPFetcher creates a new HTTP-based fetcher.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get performs a GET with the configured headers, per-call timeout and
// retries, and returns the (size-limited) body.
func (f *HTTPFetcher) Get(ctx context.Context, url string, opts *FetchOptions) ([]byte, error) {
	if opts == nil {
		opts = DefaultFetchOptions()
	}

	var lastErr error
	for attempt := 0; attempt <= opts.RetryCount; attempt++ {
		body, err := f.getOnce(ctx, url, opts)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) || attempt == opts.RetryCount {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func (f *HTTPFetcher) getOnce(ctx context.Context, url string, opts *FetchOptions) ([]byte, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = BrowserUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	limit := opts.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func retryable(err error) bool {
	if se, ok := err.(*StatusError); ok {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

// Fetch retrieves an HTML page and extracts clean text from it.
// If the page yields very little text and a reader is configured, the reader
// rendering is used instead.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts *FetchOptions) (*FetchResult, error) {
	if opts == nil {
		opts = DefaultFetchOptions()
	}
	start := time.Now()

	if opts.Headers == nil {
		opts.Headers = map[string]string{}
	}
	if _, ok := opts.Headers["Accept"]; !ok {
		opts.Headers["Accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}

	body, err := f.Get(ctx, url, opts)
	if err != nil {
		return nil, err
	}

	rawHTML := string(body)
	result := &FetchResult{
		URL:        url,
		StatusCode: http.StatusOK,
		RawHTML:    rawHTML,
		CleanText:  ExtractText(rawHTML),
		Title:      extractTitle(rawHTML),
		FetchedAt:  time.Now(),
	}

	if f.readerURL != "" && len(result.CleanText) < 500 {
		rendered, rerr := f.fetchViaReader(ctx, url, opts)
		if rerr == nil && len(rendered) > len(result.CleanText) {
			result.CleanText = rendered
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (f *HTTPFetcher) fetchViaReader(ctx context.Context, targetURL string, opts *FetchOptions) (string, error) {
	readerOpts := &FetchOptions{
		UserAgent: opts.UserAgent,
		Timeout:   opts.Timeout + 15*time.Second,
		Headers:   map[string]string{"X-Return-Format": "text"},
		MaxBytes:  opts.MaxBytes,
	}
	body, err := f.Get(ctx, strings.TrimRight(f.readerURL, "/")+"/"+targetURL, readerOpts)
	if err != nil {
		return "", fmt.Errorf("reader fetch: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}
