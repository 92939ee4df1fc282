package tiers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/article"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/catalog"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/heuristics"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/parse"
	"github.com/RobinCoderZhao/feedbot/pkg/scraper"
)

const (
	apiItemsPerSource = 5
	minAggregatorPts  = 5
	minSocialScore    = 10
)

// API fetches the structured sources of a category: aggregator search
// results, social-feed listings and academic Atom feeds.
type API struct {
	fetcher scraper.Fetcher
	opts    Options
	logger  *slog.Logger
}

// NewAPI creates the API tier.
func NewAPI(fetcher scraper.Fetcher, opts Options) *API {
	opts = opts.withDefaults()
	return &API{fetcher: fetcher, opts: opts, logger: opts.Logger}
}

func (t *API) Name() string { return article.TierAPI }

func (t *API) Fetch(ctx context.Context, cat catalog.Category, _ int) Result {
	res := fanOut(ctx, article.TierAPI, t.opts.Workers, cat.API, t.fetchSource)
	for _, f := range res.Failures {
		logFailure(t.logger, f)
	}
	t.logger.Debug("api tier done", "category", cat.Name, "sources", len(cat.API), "articles", len(res.Articles))
	return res
}

func (t *API) fetchSource(ctx context.Context, d catalog.Descriptor) Result {
	accept := "application/json"
	if d.Kind == catalog.KindAcademic {
		accept = "application/atom+xml,application/xml;q=0.9"
	}
	body, err := t.fetcher.Get(ctx, d.URL, t.opts.fetchOptions(accept))
	if err != nil {
		return failed(article.TierAPI, d.URL, ErrSourceUnavailable, err)
	}

	var (
		articles []article.Article
		perr     error
	)
	switch d.Kind {
	case catalog.KindAggregator:
		articles, perr = t.aggregator(ctx, body)
	case catalog.KindSocial:
		articles, perr = t.social(ctx, body)
	case catalog.KindAcademic:
		articles, perr = academic(body)
	default:
		perr = fmt.Errorf("unsupported api kind %q", d.Kind)
	}
	if perr != nil {
		return failed(article.TierAPI, d.URL, ErrParseFailure, perr)
	}
	return Result{Articles: articles}
}

func (t *API) aggregator(ctx context.Context, body []byte) ([]article.Article, error) {
	hits, err := parse.Aggregator(body)
	if err != nil {
		return nil, err
	}
	if len(hits) > apiItemsPerSource {
		hits = hits[:apiItemsPerSource]
	}

	var out []article.Article
	for _, h := range hits {
		if h.Title == "" || h.URL == "" || h.Points <= minAggregatorPts {
			continue
		}
		content := t.lead(ctx, h.URL)
		if content == "" {
			content = scraper.StripMarkup(h.StoryText)
		}
		if content == "" {
			content = h.Title
		}
		out = append(out, article.New(h.URL, h.Title, content, article.TimePtr(h.CreatedAt), article.TierAPI))
	}
	return out, nil
}

func (t *API) social(ctx context.Context, body []byte) ([]article.Article, error) {
	posts, err := parse.Social(body)
	if err != nil {
		return nil, err
	}
	if len(posts) > apiItemsPerSource {
		posts = posts[:apiItemsPerSource]
	}

	var out []article.Article
	for _, p := range posts {
		if p.Title == "" || p.URL == "" || p.Score <= minSocialScore {
			continue
		}
		content := p.SelfText
		if content == "" && !isSocialHost(p.URL) {
			content = t.lead(ctx, p.URL)
		}
		if content == "" {
			content = "Discussion about: " + p.Title
		}
		out = append(out, article.New(p.URL, p.Title, content, article.TimePtr(p.CreatedAt), article.TierAPI))
	}
	return out, nil
}

func academic(body []byte) ([]article.Article, error) {
	papers, err := parse.Academic(body)
	if err != nil {
		return nil, err
	}
	if len(papers) > apiItemsPerSource {
		papers = papers[:apiItemsPerSource]
	}

	var out []article.Article
	for _, p := range papers {
		if p.Title == "" || p.Summary == "" || p.URL == "" {
			continue
		}
		out = append(out, article.New(p.URL, p.Title, p.Summary, p.Published, article.TierAPI))
	}
	return out, nil
}

// lead fetches the linked page and returns its leading paragraphs. Failures
// are not reported; the caller falls back to the payload's own text.
func (t *API) lead(ctx context.Context, url string) string {
	if !t.opts.Enrich || ctx.Err() != nil {
		return ""
	}
	body, err := t.fetcher.Get(ctx, url, t.opts.fetchOptions("text/html,application/xhtml+xml"))
	if err != nil {
		t.logger.Debug("enrichment fetch failed", "url", url, "error", err)
		return ""
	}
	return scraper.LeadText(string(body))
}

func isSocialHost(link string) bool {
	host := strings.ToLower(heuristics.Domain(link))
	return host == "reddit.com" || strings.HasSuffix(host, ".reddit.com") || host == "redd.it" || strings.HasSuffix(host, ".redd.it")
}

func failed(tier, url string, kind, cause error) Result {
	return Result{Failures: []*SourceError{sourceErr(tier, url, kind, cause)}}
}
