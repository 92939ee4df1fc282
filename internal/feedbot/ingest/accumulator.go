package ingest

import "github.com/RobinCoderZhao/feedbot/internal/feedbot/article"

// accumulator collects articles in arrival order, keeping the first article
// seen for each source URL.
type accumulator struct {
	articles []article.Article
	seen     map[string]bool
}

func newAccumulator() *accumulator {
	return &accumulator{seen: make(map[string]bool)}
}

// add appends the articles whose SourceURL has not been seen and returns how
// many were accepted.
func (a *accumulator) add(arts []article.Article) int {
	n := 0
	for _, art := range arts {
		if art.SourceURL == "" || a.seen[art.SourceURL] {
			continue
		}
		a.seen[art.SourceURL] = true
		a.articles = append(a.articles, art)
		n++
	}
	return n
}

// addUnchecked appends arts without deduplication.
func (a *accumulator) addUnchecked(arts []article.Article) int {
	for _, art := range arts {
		a.seen[art.SourceURL] = true
	}
	a.articles = append(a.articles, arts...)
	return len(arts)
}

func (a *accumulator) len() int { return len(a.articles) }

// take returns at most n articles, preserving order.
func (a *accumulator) take(n int) []article.Article {
	if len(a.articles) > n {
		return a.articles[:n]
	}
	return a.articles
}
