package tiers

import (
	"context"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/article"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/catalog"
)

var fallbackRecords = map[string][]article.Article{
	"AI": {
		{
			SourceURL: "https://openai.com/blog/",
			Title:     "OpenAI AI Safety Research Update",
			Content:   "OpenAI continues to advance AI safety and alignment research with new developments in large language models and multimodal AI systems. Recent announcements include improvements to model reasoning capabilities and enhanced safety measures.",
			Tier:      article.TierFallback,
		},
		{
			SourceURL: "https://www.anthropic.com/news",
			Title:     "Anthropic Constitutional AI Progress",
			Content:   "Anthropic has been focusing on constitutional AI and safety-first approaches to AI development. Recent work includes advances in AI alignment and responsible AI deployment practices.",
			Tier:      article.TierFallback,
		},
	},
	"Technology": {
		{
			SourceURL: "https://techcrunch.com/",
			Title:     "Latest Technology Trends",
			Content:   "Technology companies continue to push boundaries in AI, cloud computing, and digital transformation. Recent trends include enterprise AI adoption and sustainable technology solutions.",
			Tier:      article.TierFallback,
		},
	},
}

// Fallback serves the fixed records used when live sources come up short.
// It performs no I/O and always returns the same records for a category.
type Fallback struct{}

// NewFallback creates the fallback tier.
func NewFallback() *Fallback { return &Fallback{} }

func (Fallback) Name() string { return article.TierFallback }

func (f Fallback) Fetch(_ context.Context, cat catalog.Category, _ int) Result {
	return Result{Articles: f.Records(cat.Name)}
}

// Records returns a copy of the fallback records for category, or nil.
func (Fallback) Records(category string) []article.Article {
	recs := fallbackRecords[category]
	if len(recs) == 0 {
		return nil
	}
	out := make([]article.Article, len(recs))
	copy(out, recs)
	return out
}
