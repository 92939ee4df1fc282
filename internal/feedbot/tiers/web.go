package tiers

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/gocolly/colly/v2"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/article"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/catalog"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/heuristics"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/scrapesvc"
	"github.com/RobinCoderZhao/feedbot/pkg/scraper"
)

const (
	webSourcesPerCategory = 2
	searchQueries         = 2
	searchResultsPerQuery = 3
	maxHomepageLinks      = 10
	minPageContentLen     = 100
)

// LinkDiscoverer lists likely article links found on a homepage.
type LinkDiscoverer func(ctx context.Context, homepage string) ([]string, error)

// Web scrapes ad-hoc web sources through the scraping service.
type Web struct {
	svc      scrapesvc.Service
	discover LinkDiscoverer
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// WebOption customizes the web tier.
type WebOption func(*Web)

// WithClock overrides the clock used to decide which years count as recent.
func WithClock(now func() time.Time) WebOption {
	return func(w *Web) { w.now = now }
}

// WithLinkDiscoverer replaces the homepage crawler.
func WithLinkDiscoverer(d LinkDiscoverer) WebOption {
	return func(w *Web) { w.discover = d }
}

// NewWeb creates the web tier on top of svc.
func NewWeb(svc scrapesvc.Service, opts Options, options ...WebOption) *Web {
	opts = opts.withDefaults()
	w := &Web{
		svc:    svc,
		opts:   opts,
		logger: opts.Logger,
		now:    time.Now,
	}
	w.discover = w.homepageLinks
	for _, o := range options {
		o(w)
	}
	return w
}

func (t *Web) Name() string { return article.TierWeb }

func (t *Web) Fetch(ctx context.Context, cat catalog.Category, want int) Result {
	descs := cat.Web
	if len(descs) > webSourcesPerCategory {
		descs = descs[:webSourcesPerCategory]
	}
	recency := heuristics.RecencyAt(t.now())

	res := fanOut(ctx, article.TierWeb, t.opts.Workers, descs, func(ctx context.Context, d catalog.Descriptor) Result {
		return t.fetchSite(ctx, cat.Name, d, want, recency)
	})
	for _, f := range res.Failures {
		logFailure(t.logger, f)
	}
	t.logger.Debug("web tier done", "category", cat.Name, "sites", len(descs), "articles", len(res.Articles))
	return res
}

func (t *Web) fetchSite(ctx context.Context, category string, d catalog.Descriptor, want int, recency *heuristics.Recency) Result {
	links := t.discoverLinks(ctx, category, d.URL)
	if len(links) == 0 {
		return t.homepageDigest(ctx, d.URL, recency)
	}

	if want > 0 && len(links) > want {
		links = links[:want]
	}
	var res Result
	for _, link := range links {
		if ctx.Err() != nil {
			res.Failures = append(res.Failures, sourceErr(article.TierWeb, link, ErrSourceUnavailable, ctx.Err()))
			break
		}
		raw, err := t.scrape(ctx, link)
		if err != nil {
			res.Failures = append(res.Failures, sourceErr(article.TierWeb, link, ErrSourceUnavailable, err))
			continue
		}
		content := heuristics.CleanContent(raw)
		if utf8.RuneCountInString(content) <= minPageContentLen {
			res.Failures = append(res.Failures, sourceErr(article.TierWeb, link, ErrContentTooShort, nil))
			continue
		}
		res.Articles = append(res.Articles, article.New(link, heuristics.TitleFromURL(link), content, nil, article.TierWeb))
	}
	return res
}

// discoverLinks tries site search, then homepage crawling, then known URL
// patterns; the first step that yields links wins.
func (t *Web) discoverLinks(ctx context.Context, category, homepage string) []string {
	if links := t.searchLinks(ctx, category, homepage); len(links) > 0 {
		return links
	}
	if t.discover != nil {
		links, err := t.discover(ctx, homepage)
		if err != nil {
			t.logger.Debug("homepage crawl failed", "url", homepage, "error", err)
		}
		if len(links) > 0 {
			return links
		}
	}
	return heuristics.CandidateURLs(homepage)
}

func (t *Web) searchLinks(ctx context.Context, category, homepage string) []string {
	var links []string
	seen := make(map[string]bool)
	queries := heuristics.SearchQueries(homepage, category, t.now())
	if len(queries) > searchQueries {
		queries = queries[:searchQueries]
	}
	for _, q := range queries {
		results, err := t.svc.Search(ctx, q, searchResultsPerQuery)
		if errors.Is(err, scrapesvc.ErrSearchUnsupported) {
			return nil
		}
		if err != nil {
			t.logger.Debug("site search failed", "query", q, "error", err)
			continue
		}
		for _, r := range results {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			links = append(links, r.URL)
		}
	}
	return links
}

// homepageDigest summarizes the recent-looking sentences of a homepage when
// no article links could be found.
func (t *Web) homepageDigest(ctx context.Context, homepage string, recency *heuristics.Recency) Result {
	raw, err := t.scrape(ctx, homepage)
	if err != nil {
		return failed(article.TierWeb, homepage, ErrSourceUnavailable, err)
	}
	content := heuristics.CleanContent(raw)
	if utf8.RuneCountInString(content) <= minPageContentLen {
		return failed(article.TierWeb, homepage, ErrContentTooShort, nil)
	}
	digest := recency.Extract(content)
	if digest == "" {
		return failed(article.TierWeb, homepage, ErrContentTooShort, errors.New("no recent sentences"))
	}
	title := "Latest from " + heuristics.Domain(homepage)
	return Result{Articles: []article.Article{article.New(homepage, title, digest, nil, article.TierWeb)}}
}

func (t *Web) scrape(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.opts.SourceTimeout)
	defer cancel()
	return t.svc.Scrape(ctx, url)
}

// homepageLinks crawls a homepage and keeps same-site links that look like
// articles.
func (t *Web) homepageLinks(ctx context.Context, homepage string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ua := t.opts.UserAgent
	if ua == "" {
		ua = scraper.BrowserUserAgent
	}
	c := colly.NewCollector(colly.UserAgent(ua))
	c.SetRequestTimeout(t.opts.SourceTimeout)

	var links []string
	seen := make(map[string]bool)
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if len(links) >= maxHomepageLinks {
			return
		}
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" || seen[link] || !heuristics.IsLikelyArticleURL(link, homepage) {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	if err := c.Visit(homepage); err != nil {
		return nil, err
	}
	return links, nil
}
