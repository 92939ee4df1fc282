package scrapesvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RobinCoderZhao/feedbot/pkg/scraper"
)

const defaultFirecrawlBase = "https://api.firecrawl.dev"

// FirecrawlConfig configures the Firecrawl client.
type FirecrawlConfig struct {
	APIKey  string        `yaml:"api_key" env:"FIRECRAWL_API_KEY"`
	BaseURL string        `yaml:"base_url" env:"FIRECRAWL_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"FIRECRAWL_TIMEOUT"`
}

// Firecrawl is a Service backed by the Firecrawl v1 HTTP API.
type Firecrawl struct {
	http   *http.Client
	apiKey string
	base   string
}

// NewFirecrawl creates a Firecrawl client. An API key is required.
func NewFirecrawl(cfg FirecrawlConfig) (*Firecrawl, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("firecrawl API key is required")
	}
	base := defaultFirecrawlBase
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Firecrawl{
		http:   &http.Client{Timeout: timeout},
		apiKey: cfg.APIKey,
		base:   base,
	}, nil
}

type firecrawlScrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type firecrawlScrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		HTML    string `json:"html"`
		Content string `json:"content"`
	} `json:"data"`
}

type firecrawlSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type firecrawlSearchResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"data"`
}

// Scrape returns the plain text of url's main content. The page is requested
// as HTML and reduced to text locally, one block per line.
func (f *Firecrawl) Scrape(ctx context.Context, url string) (string, error) {
	var resp firecrawlScrapeResponse
	err := f.post(ctx, "/v1/scrape", firecrawlScrapeRequest{
		URL:             url,
		Formats:         []string{"html"},
		OnlyMainContent: true,
	}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("firecrawl scrape %s: %s", url, resp.Error)
	}
	if resp.Data.HTML != "" {
		return scraper.ExtractText(resp.Data.HTML), nil
	}
	return scraper.CollapseSpace(resp.Data.Content), nil
}

func (f *Firecrawl) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	var resp firecrawlSearchResponse
	if err := f.post(ctx, "/v1/search", firecrawlSearchRequest{Query: query, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("firecrawl search %q: %s", query, resp.Error)
	}

	results := make([]SearchResult, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL == "" {
			continue
		}
		results = append(results, SearchResult{URL: d.URL, Title: d.Title})
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

func (f *Firecrawl) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("firecrawl %s: status %d: %s", path, resp.StatusCode, truncate(string(respBody), 200))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
