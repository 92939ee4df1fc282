package ingest

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Resolved on each call so a provider installed after package init is used.
func tracer() trace.Tracer {
	return otel.Tracer("github.com/RobinCoderZhao/feedbot/ingest")
}

func startRequestSpan(ctx context.Context, category string, quota int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "feedbot.ingest", trace.WithAttributes(
		attribute.String("feedbot.category", category),
		attribute.Int("feedbot.quota", quota),
	))
}

func endRequestSpan(span trace.Span, res *Result) {
	span.SetAttributes(
		attribute.Int("feedbot.articles", len(res.Articles)),
		attribute.Bool("feedbot.fallback_used", res.FallbackUsed),
		attribute.Bool("feedbot.catalog_miss", res.CatalogMiss),
		attribute.Bool("feedbot.timed_out", res.TimedOut),
	)
	if len(res.Articles) == 0 {
		span.SetStatus(codes.Error, "no articles")
	}
	span.End()
}

func startTierSpan(ctx context.Context, tier string, want int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "feedbot.tier."+tier, trace.WithAttributes(
		attribute.String("feedbot.tier", tier),
		attribute.Int("feedbot.want", want),
	))
}

func endTierSpan(span trace.Span, report TierReport) {
	span.SetAttributes(
		attribute.Int("feedbot.returned", report.Returned),
		attribute.Int("feedbot.accepted", report.Accepted),
		attribute.Int("feedbot.failures", len(report.Failures)),
	)
	span.End()
}
