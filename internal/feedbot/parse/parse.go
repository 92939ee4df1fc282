// Package parse decodes the raw payloads of each source shape into candidate
// entries. Parsers are stateless; they do not apply acceptance thresholds.
package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
)

// AggregatorHit is one story from an HN-Algolia style search response.
type AggregatorHit struct {
	Title     string
	URL       string
	StoryText string
	Points    int
	CreatedAt time.Time
}

type aggregatorResponse struct {
	Hits []struct {
		Title     string  `json:"title"`
		URL       string  `json:"url"`
		StoryText *string `json:"story_text"`
		Points    *int    `json:"points"`
		CreatedAt string  `json:"created_at"`
	} `json:"hits"`
}

// Aggregator decodes an aggregator search response. A response without hits
// yields an empty slice.
func Aggregator(body []byte) ([]AggregatorHit, error) {
	var resp aggregatorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode aggregator json: %w", err)
	}

	hits := make([]AggregatorHit, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hit := AggregatorHit{
			Title: strings.TrimSpace(h.Title),
			URL:   strings.TrimSpace(h.URL),
		}
		if h.Points != nil {
			hit.Points = *h.Points
		}
		if h.StoryText != nil {
			hit.StoryText = *h.StoryText
		}
		if t, err := time.Parse(time.RFC3339, h.CreatedAt); err == nil {
			hit.CreatedAt = t
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// SocialPost is one post from a Reddit style listing.
type SocialPost struct {
	Title     string
	URL       string
	SelfText  string
	Score     int
	CreatedAt time.Time
}

type socialListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title      string  `json:"title"`
				URL        string  `json:"url"`
				SelfText   string  `json:"selftext"`
				Score      int     `json:"score"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Social decodes a social-feed listing.
func Social(body []byte) ([]SocialPost, error) {
	var listing socialListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode social json: %w", err)
	}

	posts := make([]SocialPost, 0, len(listing.Data.Children))
	for _, c := range listing.Data.Children {
		p := SocialPost{
			Title:    strings.TrimSpace(c.Data.Title),
			URL:      strings.TrimSpace(c.Data.URL),
			SelfText: strings.TrimSpace(c.Data.SelfText),
			Score:    c.Data.Score,
		}
		if c.Data.CreatedUTC > 0 {
			p.CreatedAt = time.Unix(int64(c.Data.CreatedUTC), 0).UTC()
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Paper is one entry of an academic Atom feed.
type Paper struct {
	Title     string
	Summary   string
	URL       string
	Published *time.Time
}

// Academic decodes an ArXiv style Atom document. The entry link is the
// text/html alternate when present, otherwise the entry id.
func Academic(body []byte) ([]Paper, error) {
	fp := &atom.Parser{}
	feed, err := fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode atom feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p := Paper{
			Title:     collapse(e.Title),
			Summary:   collapse(e.Summary),
			Published: e.PublishedParsed,
		}
		for _, l := range e.Links {
			if l.Type == "text/html" {
				p.URL = l.Href
				break
			}
		}
		if p.URL == "" {
			p.URL = strings.TrimSpace(e.ID)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// FeedEntry is one item of an RSS or Atom feed.
type FeedEntry struct {
	Title     string
	Link      string
	Summary   string
	Published *time.Time
}

// Feed decodes an RSS, Atom or JSON feed. Summary is the item description,
// or its content when the description is empty; markup is left intact.
func Feed(body []byte) ([]FeedEntry, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	entries := make([]FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		e := FeedEntry{
			Title:   strings.TrimSpace(item.Title),
			Link:    strings.TrimSpace(item.Link),
			Summary: item.Description,
		}
		if e.Summary == "" {
			e.Summary = item.Content
		}
		switch {
		case item.PublishedParsed != nil:
			e.Published = item.PublishedParsed
		case item.UpdatedParsed != nil:
			e.Published = item.UpdatedParsed
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
