// Package app wires a FeedBot configuration into a ready-to-use ingestion
// pipeline: catalog, tiers, scraping service, cache and run archive.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/catalog"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/config"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/ingest"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/scrapesvc"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/store"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/tiers"
	"github.com/RobinCoderZhao/feedbot/pkg/cache"
	"github.com/RobinCoderZhao/feedbot/pkg/notify"
	"github.com/RobinCoderZhao/feedbot/pkg/scraper"
	"github.com/RobinCoderZhao/feedbot/pkg/storage"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config       config.Config
	Catalog      *catalog.Catalog
	Orchestrator *ingest.Orchestrator
	// Store is nil when no database is configured.
	Store *store.Store
	// Notifier receives run reports; it has no channels unless configured.
	Notifier *notify.Dispatcher

	cache  cache.Cache
	logger *slog.Logger
}

// New builds an App from cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	a.Catalog = cat

	a.cache = newCache(ctx, cfg.Cache, logger)

	var fetchOpts []scraper.Option
	if cfg.Scraper.ReaderURL != "" {
		fetchOpts = append(fetchOpts, scraper.WithReader(cfg.Scraper.ReaderURL))
	}
	fetcher := scraper.NewHTTPFetcher(fetchOpts...)

	svc, err := newScrapeService(cfg, fetcher, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	svc = scrapesvc.NewCached(svc, a.cache, cfg.Cache.TTL)

	opts := tiers.Options{
		Workers:       cfg.Ingest.Workers,
		SourceTimeout: cfg.Ingest.SourceTimeout,
		Enrich:        cfg.Ingest.Enrich,
		UserAgent:     cfg.Scraper.UserAgent,
		RetryCount:    cfg.Scraper.RetryCount,
		Logger:        logger,
	}
	a.Orchestrator = ingest.New(cat, ingest.Tiers{
		API:      tiers.NewAPI(fetcher, opts),
		RSS:      tiers.NewRSS(fetcher, opts),
		Web:      tiers.NewWeb(svc, opts),
		Fallback: tiers.NewFallback(),
	}, ingest.WithRequestTimeout(cfg.Ingest.RequestTimeout), ingest.WithLogger(logger))

	a.Notifier = notify.NewDispatcher(logger)
	if cfg.Notify.Webhook.URL != "" {
		hook, err := notify.NewWebhookNotifier(cfg.Notify.Webhook)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create webhook notifier: %w", err)
		}
		a.Notifier.Register(hook)
	}
	if cfg.Notify.Log {
		a.Notifier.Register(notify.NewLogNotifier(logger))
	}

	if cfg.Store.DSN != "" {
		db, err := storage.Open(ctx, cfg.Store)
		if err != nil {
			a.Close()
			return nil, err
		}
		if a.Store, err = store.New(ctx, db); err != nil {
			db.Close()
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

func newCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemory()
	}
	r, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.Prefix)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory scrape cache", "addr", cfg.RedisAddr, "error", err)
		return cache.NewMemory()
	}
	return r
}

func newScrapeService(cfg config.Config, fetcher scraper.Fetcher, logger *slog.Logger) (scrapesvc.Service, error) {
	if cfg.Firecrawl.APIKey == "" {
		logger.Debug("no firecrawl key, scraping pages directly")
		opts := scraper.DefaultFetchOptions()
		opts.Timeout = cfg.Ingest.SourceTimeout
		if cfg.Scraper.UserAgent != "" {
			opts.UserAgent = cfg.Scraper.UserAgent
		}
		return scrapesvc.NewDirect(fetcher, opts), nil
	}
	fc, err := scrapesvc.NewFirecrawl(cfg.Firecrawl)
	if err != nil {
		return nil, fmt.Errorf("create firecrawl client: %w", err)
	}
	return fc, nil
}

// Ingest runs one request and archives it when a store is configured. The
// result is returned even if archiving fails.
func (a *App) Ingest(ctx context.Context, category string, maxArticles int) (*ingest.Result, error) {
	if maxArticles <= 0 {
		maxArticles = a.Config.Ingest.MaxArticles
	}
	res := a.Orchestrator.Ingest(ctx, ingest.Request{Category: category, MaxArticles: maxArticles})
	if a.Store == nil {
		return res, nil
	}
	if err := a.markRepeated(ctx, res); err != nil {
		a.logger.Warn("check archived urls", "category", category, "error", err)
	}
	if _, err := a.Store.SaveRun(ctx, maxArticles, res); err != nil {
		return res, fmt.Errorf("archive run: %w", err)
	}
	return res, nil
}

// markRepeated records which of res's articles earlier runs already returned.
func (a *App) markRepeated(ctx context.Context, res *ingest.Result) error {
	res.Repeated = nil
	for _, art := range res.Articles {
		seen, err := a.Store.SeenURL(ctx, art.SourceURL)
		if err != nil {
			return err
		}
		if seen {
			res.Repeated = append(res.Repeated, art.SourceURL)
		}
	}
	return nil
}

// Notify sends a report of res to the configured channels. It is a no-op
// when none are configured.
func (a *App) Notify(ctx context.Context, res *ingest.Result) error {
	if a.Notifier == nil || a.Notifier.Len() == 0 || res == nil {
		return nil
	}
	return a.Notifier.SendAll(ctx, Report(res))
}

// Report renders a short plain-text summary of an ingestion run.
func Report(res *ingest.Result) notify.Message {
	var b strings.Builder
	repeated := make(map[string]bool, len(res.Repeated))
	for _, u := range res.Repeated {
		repeated[u] = true
	}
	for i, art := range res.Articles {
		mark := ""
		if repeated[art.SourceURL] {
			mark = " (seen before)"
		}
		fmt.Fprintf(&b, "%d. %s%s\n   %s\n", i+1, art.Title, mark, art.SourceURL)
	}
	if len(res.Articles) == 0 {
		b.WriteString("No articles found.\n")
	}

	fields := map[string]string{
		"category": res.Category,
		"articles": strconv.Itoa(len(res.Articles)),
		"duration": res.Duration.Round(time.Millisecond).String(),
	}
	failures := 0
	for _, t := range res.Tiers {
		failures += len(t.Failures)
	}
	fields["failures"] = strconv.Itoa(failures)
	if len(res.Repeated) > 0 {
		fields["repeated"] = strconv.Itoa(len(res.Repeated))
	}
	if res.FallbackUsed {
		fields["fallback"] = "true"
	}
	if res.TimedOut {
		fields["timed_out"] = "true"
	}
	if res.CatalogMiss {
		fields["catalog_miss"] = "true"
	}

	return notify.Message{
		Title:  fmt.Sprintf("%s: %d articles", res.Category, len(res.Articles)),
		Body:   strings.TrimRight(b.String(), "\n"),
		Format: "plain",
		Fields: fields,
	}
}

// Close releases the cache and database.
func (a *App) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
