// Package article defines the normalized article record produced by every
// ingestion tier.
package article

import (
	"strings"
	"time"
)

// MaxContentLen is the maximum length of Article.Content, in characters.
const MaxContentLen = 1500

// Tier names recorded on articles.
const (
	TierAPI      = "api"
	TierRSS      = "rss"
	TierWeb      = "web"
	TierFallback = "fallback"
)

// Article is the unit of ingestion output. SourceURL is its identity.
type Article struct {
	SourceURL   string     `json:"source_url"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Tier        string     `json:"tier,omitempty"`
}

// New builds a normalized Article: whitespace is trimmed and content is
// truncated to MaxContentLen characters.
func New(sourceURL, title, content string, published *time.Time, tier string) Article {
	return Article{
		SourceURL:   strings.TrimSpace(sourceURL),
		Title:       strings.TrimSpace(title),
		Content:     Truncate(strings.TrimSpace(content), MaxContentLen),
		PublishedAt: published,
		Tier:        tier,
	}
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// TimePtr returns a pointer to t, or nil for the zero time.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
