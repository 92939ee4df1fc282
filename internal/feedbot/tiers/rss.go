package tiers

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/article"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/catalog"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/parse"
	"github.com/RobinCoderZhao/feedbot/pkg/scraper"
)

const (
	rssEntriesPerFeed = 3
	minSummaryLen     = 50
)

// RSS fetches the feeds of a category.
type RSS struct {
	fetcher scraper.Fetcher
	opts    Options
	logger  *slog.Logger
}

// NewRSS creates the RSS tier.
func NewRSS(fetcher scraper.Fetcher, opts Options) *RSS {
	opts = opts.withDefaults()
	return &RSS{fetcher: fetcher, opts: opts, logger: opts.Logger}
}

func (t *RSS) Name() string { return article.TierRSS }

func (t *RSS) Fetch(ctx context.Context, cat catalog.Category, _ int) Result {
	res := fanOut(ctx, article.TierRSS, t.opts.Workers, cat.RSS, t.fetchFeed)
	for _, f := range res.Failures {
		logFailure(t.logger, f)
	}
	t.logger.Debug("rss tier done", "category", cat.Name, "feeds", len(cat.RSS), "articles", len(res.Articles))
	return res
}

func (t *RSS) fetchFeed(ctx context.Context, d catalog.Descriptor) Result {
	body, err := t.fetcher.Get(ctx, d.URL, t.opts.fetchOptions("application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8"))
	if err != nil {
		return failed(article.TierRSS, d.URL, ErrSourceUnavailable, err)
	}
	entries, err := parse.Feed(body)
	if err != nil {
		return failed(article.TierRSS, d.URL, ErrParseFailure, err)
	}
	if len(entries) > rssEntriesPerFeed {
		entries = entries[:rssEntriesPerFeed]
	}

	var res Result
	for _, e := range entries {
		if e.Title == "" || e.Link == "" {
			continue
		}
		summary := scraper.StripMarkup(e.Summary)
		if utf8.RuneCountInString(summary) <= minSummaryLen {
			res.Failures = append(res.Failures, sourceErr(article.TierRSS, e.Link, ErrContentTooShort, nil))
			continue
		}
		res.Articles = append(res.Articles, article.New(e.Link, e.Title, summary, e.Published, article.TierRSS))
	}
	return res
}
