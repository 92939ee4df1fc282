// Package tiers implements the source tiers of an ingestion run: structured
// APIs, RSS feeds, ad-hoc web pages and the built-in fallback table.
//
// A tier never fails as a whole. Per-source problems are logged and reported
// in Result.Failures; whatever could be fetched is returned.
package tiers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/article"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/catalog"
	"github.com/RobinCoderZhao/feedbot/pkg/scraper"
)

// Result is the outcome of one tier fetch.
type Result struct {
	Articles []article.Article
	Failures []*SourceError
}

func (r *Result) merge(other Result) {
	r.Articles = append(r.Articles, other.Articles...)
	r.Failures = append(r.Failures, other.Failures...)
}

// Tier fetches candidate articles for a category. want is how many more
// articles the caller still needs; tiers may return more or fewer.
type Tier interface {
	Name() string
	Fetch(ctx context.Context, cat catalog.Category, want int) Result
}

// Options holds the settings shared by the network tiers.
type Options struct {
	// Workers bounds how many sources of one tier are fetched at once.
	Workers int
	// SourceTimeout bounds every outbound call.
	SourceTimeout time.Duration
	// Enrich enables the secondary page fetch for API items.
	Enrich bool
	// UserAgent replaces the browser user agent when set.
	UserAgent  string
	RetryCount int
	Logger     *slog.Logger
}

// DefaultOptions returns the default tier settings.
func DefaultOptions() Options {
	return Options{
		Workers:       4,
		SourceTimeout: 10 * time.Second,
		Enrich:        true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = d.SourceTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func (o Options) fetchOptions(accept string) *scraper.FetchOptions {
	opts := scraper.DefaultFetchOptions()
	opts.Timeout = o.SourceTimeout
	opts.RetryCount = o.RetryCount
	if o.UserAgent != "" {
		opts.UserAgent = o.UserAgent
	}
	if accept != "" {
		opts.Headers = map[string]string{"Accept": accept}
	}
	return opts
}

// fanOut runs fn for every descriptor on a bounded pool. Each call writes only
// its own slot; slots are merged in descriptor order. A panicking source is
// recorded as unavailable instead of taking the process down.
func fanOut(ctx context.Context, tier string, workers int, descs []catalog.Descriptor, fn func(context.Context, catalog.Descriptor) Result) Result {
	slots := make([]Result, len(descs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, d := range descs {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					slots[i] = Result{Failures: []*SourceError{
						sourceErr(tier, d.URL, ErrSourceUnavailable, fmt.Errorf("panic: %v", r)),
					}}
				}
			}()
			slots[i] = fn(gctx, d)
			return nil
		})
	}
	_ = g.Wait()

	var out Result
	for _, s := range slots {
		out.merge(s)
	}
	return out
}

func logFailure(logger *slog.Logger, e *SourceError) {
	if errors.Is(e, ErrContentTooShort) {
		logger.Debug("source skipped", "tier", e.Tier, "url", e.URL, "error", e.Err)
		return
	}
	logger.Warn("source failed", "tier", e.Tier, "url", e.URL, "error", e.Err)
}
