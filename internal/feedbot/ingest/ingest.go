// Package ingest drives one ingestion request through the source tiers:
// structured APIs first, then RSS feeds, then web pages, and finally the
// built-in fallback records when fewer than Floor articles were found.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/article"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/catalog"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/tiers"
)

const (
	// DefaultMaxArticles is the quota used when a request does not set one.
	DefaultMaxArticles = 5

	// Floor is the article count below which fallback records are added.
	Floor = 2

	DefaultRequestTimeout = 60 * time.Second
)

// Request asks for up to MaxArticles articles about Category.
type Request struct {
	Category    string `json:"category"`
	MaxArticles int    `json:"max_articles"`
}

// TierReport summarizes what one tier contributed to a result.
type TierReport struct {
	Tier     string               `json:"tier"`
	Returned int                  `json:"returned"`
	Accepted int                  `json:"accepted"`
	Failures []*tiers.SourceError `json:"failures,omitempty"`
}

// Result is the outcome of an ingestion request.
type Result struct {
	Category     string            `json:"category"`
	Articles     []article.Article `json:"articles"`
	Tiers        []TierReport      `json:"tiers"`
	CatalogMiss  bool              `json:"catalog_miss,omitempty"`
	FallbackUsed bool              `json:"fallback_used,omitempty"`
	TimedOut     bool              `json:"timed_out,omitempty"`
	// Repeated lists the article URLs already returned by an earlier archived
	// run. The orchestrator leaves it empty; the run archive fills it in.
	Repeated []string `json:"repeated,omitempty"`
	Duration     time.Duration     `json:"duration"`
}

// Tiers groups the tier implementations used by an Orchestrator.
type Tiers struct {
	API      tiers.Tier
	RSS      tiers.Tier
	Web      tiers.Tier
	Fallback tiers.Tier
}

// Orchestrator runs ingestion requests. It is safe for concurrent use; all
// per-request state lives in Ingest.
type Orchestrator struct {
	catalog        *catalog.Catalog
	tiers          Tiers
	requestTimeout time.Duration
	logger         *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRequestTimeout bounds a whole request. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.requestTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator over cat. A nil Fallback tier is replaced by
// the built-in table.
func New(cat *catalog.Catalog, t Tiers, opts ...Option) *Orchestrator {
	if t.Fallback == nil {
		t.Fallback = tiers.NewFallback()
	}
	o := &Orchestrator{
		catalog:        cat,
		tiers:          t,
		requestTimeout: DefaultRequestTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ingest runs req and always returns a result; source failures are reported
// in the tier reports rather than as an error.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) *Result {
	start := time.Now()
	quota := req.MaxArticles
	if quota <= 0 {
		quota = DefaultMaxArticles
	}
	res := &Result{Category: req.Category}

	ctx, span := startRequestSpan(ctx, req.Category, quota)
	defer func() { endRequestSpan(span, res) }()

	if o.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.requestTimeout)
		defer cancel()
	}

	acc := newAccumulator()
	state := StateAPI

	cat, ok := o.catalog.Lookup(req.Category)
	if !ok {
		res.CatalogMiss = true
		cat = catalog.Category{Name: req.Category}
		o.logger.Warn("unknown category", "category", req.Category, "error", tiers.ErrCatalogMiss)
		state = floorCheck(0, Floor)
	}

	for state != StateDone {
		if state != StateFallback && ctx.Err() != nil {
			res.TimedOut = true
			o.logger.Warn("request deadline reached, skipping remaining tiers",
				"category", cat.Name, "skipped", state.String(), "articles", acc.len())
			state = floorCheck(acc.len(), Floor)
			continue
		}

		tier := o.tierFor(state)
		if tier == nil {
			state = Next(state, acc.len(), quota, Floor)
			continue
		}

		tierCtx, tierSpan := startTierSpan(ctx, tier.Name(), quota-acc.len())
		out := o.runTier(tierCtx, tier, cat, quota-acc.len())
		report := TierReport{Tier: tier.Name(), Returned: len(out.Articles), Failures: out.Failures}
		if state == StateFallback {
			report.Accepted = acc.addUnchecked(out.Articles)
			res.FallbackUsed = report.Accepted > 0
		} else {
			report.Accepted = acc.add(out.Articles)
		}
		res.Tiers = append(res.Tiers, report)
		endTierSpan(tierSpan, report)

		o.logger.Debug("tier finished", "category", cat.Name, "tier", report.Tier,
			"returned", report.Returned, "accepted", report.Accepted, "failures", len(report.Failures))
		state = Next(state, acc.len(), quota, Floor)
	}

	res.Articles = append([]article.Article{}, acc.take(quota)...)
	res.Duration = time.Since(start)
	o.logger.Info("ingestion finished", "category", req.Category, "articles", len(res.Articles),
		"fallback", res.FallbackUsed, "duration", res.Duration)
	return res
}

func (o *Orchestrator) tierFor(s State) tiers.Tier {
	switch s {
	case StateAPI:
		return o.tiers.API
	case StateRSS:
		return o.tiers.RSS
	case StateWeb:
		return o.tiers.Web
	case StateFallback:
		return o.tiers.Fallback
	default:
		return nil
	}
}

// runTier isolates a tier: a panic is logged and counts as an empty result.
func (o *Orchestrator) runTier(ctx context.Context, t tiers.Tier, cat catalog.Category, want int) (out tiers.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("tier panicked", "tier", t.Name(), "category", cat.Name, "panic", r)
			out = tiers.Result{Failures: []*tiers.SourceError{{
				Tier: t.Name(),
				Err:  fmt.Errorf("%w: panic: %v", tiers.ErrSourceUnavailable, r),
			}}}
		}
	}()
	return t.Fetch(ctx, cat, want)
}
