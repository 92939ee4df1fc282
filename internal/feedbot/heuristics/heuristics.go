// Package heuristics contains the pure string predicates and extractors used to
// judge web content: article-link classification, recency detection, content
// cleanup and title synthesis. Nothing here performs I/O or keeps state.
package heuristics

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var (
	skipPatterns = []string{
		"/tag/", "/category/", "/author/", "/search", "/contact",
		"/about", "/privacy", "/terms", "/subscribe", "/newsletter",
		"#", "mailto:", "javascript:", "/feed", "/rss",
	}
	articleIndicators = []string{
		"/blog/", "/news/", "/article/", "/post/",
		"/ai/", "/machine-learning/", ".html", ".php",
	}
	yearPath = regexp.MustCompile(`/(19|20)\d{2}/`)

	navPrefix = regexp.MustCompile(`(?i)^(?:\s*(?:home|about(?:\s+us)?|contact(?:\s+us)?|subscribe|newsletter|sign\s+in|log\s+in|menu)\b[\s|/·•>»:\-–]*)+`)

	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	recencyWords  = regexp.MustCompile(`(?i)\b(?:yesterday|today|this week|this month|recently|latest|new|announced|released)\b`)
	knownExt      = regexp.MustCompile(`(?i)\.(html?|php|aspx?)$`)
)

// Domain returns the host (with port, if any) of rawURL, or "" when it cannot
// be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return u.Host
}

// IsLikelyArticleURL reports whether link looks like an article on the same
// site as baseURL: navigation, feed and script links are rejected and the path
// must carry an article indicator or a year segment.
func IsLikelyArticleURL(link, baseURL string) bool {
	lower := strings.ToLower(link)
	for _, p := range skipPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}

	domain := strings.ToLower(Domain(baseURL))
	if domain == "" || strings.ToLower(Domain(link)) != domain {
		return false
	}

	if yearPath.MatchString(lower) {
		return true
	}
	for _, ind := range articleIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// TitleFromURL synthesizes a title from the last path segment of rawURL:
// separators become spaces, known extensions are dropped and words are
// capitalized. It returns "Article" when nothing usable remains.
func TitleFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		p = u.Path
	}
	last := path.Base(strings.TrimRight(p, "/"))
	if last == "." || last == "/" {
		return "Article"
	}
	last = knownExt.ReplaceAllString(last, "")
	last = strings.NewReplacer("-", " ", "_", " ").Replace(last)

	words := strings.Fields(last)
	if len(words) == 0 {
		return "Article"
	}
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}

// CleanContent strips leading navigation boilerplate (Home, About, Contact,
// Subscribe, ...) from each line and collapses whitespace.
func CleanContent(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = navPrefix.ReplaceAllString(line, "")
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
}

// Recency matches sentences that look like recent news.
type Recency struct {
	years *regexp.Regexp
}

// NewRecency matches explicit mentions of the given years as well as recency
// words like "latest" or "announced".
func NewRecency(years ...int) *Recency {
	alts := make([]string, len(years))
	for i, y := range years {
		alts[i] = fmt.Sprintf("%d", y)
	}
	r := &Recency{}
	if len(alts) > 0 {
		r.years = regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\b`)
	}
	return r
}

// RecencyAt treats the year of now and the year before it as recent.
func RecencyAt(now time.Time) *Recency {
	return NewRecency(now.Year()-1, now.Year())
}

// Match reports whether sentence carries a recency signal.
func (r *Recency) Match(sentence string) bool {
	if r.years != nil && r.years.MatchString(sentence) {
		return true
	}
	return recencyWords.MatchString(sentence)
}

// Sentences returns up to max substantial sentences (longer than 50
// characters) from content that carry a recency signal.
func (r *Recency) Sentences(content string, max int) []string {
	var out []string
	for _, s := range sentenceSplit.Split(content, -1) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) <= 50 {
			continue
		}
		if r.Match(s) {
			out = append(out, s)
			if len(out) == max {
				break
			}
		}
	}
	return out
}

// Extract joins the first five recent sentences of content into a paragraph,
// or returns "" when no sentence qualifies.
func (r *Recency) Extract(content string) string {
	sentences := r.Sentences(content, 5)
	if len(sentences) == 0 {
		return ""
	}
	return strings.Join(sentences, ". ") + "."
}

// knownPaths lists well-known article paths for sites whose listing pages
// are hard to discover links from.
var knownPaths = map[string][]string{
	"openai.com":    {"gpt-4o", "gpt-4", "chatgpt"},
	"anthropic.com": {"claude", "safety"},
	"deepmind.com":  {"gemini", "research"},
}

// CandidateURLs constructs likely article URLs for known domains. Unknown
// domains yield nothing.
func CandidateURLs(baseURL string) []string {
	domain := strings.ToLower(Domain(baseURL))
	base := strings.TrimRight(baseURL, "/")

	var out []string
	for site, paths := range knownPaths {
		if domain != site && !strings.HasSuffix(domain, "."+site) {
			continue
		}
		for _, p := range paths {
			out = append(out, base+"/"+p)
		}
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// SearchQueries builds site-restricted search queries for recent category
// articles, most specific first.
func SearchQueries(baseURL, category string, now time.Time) []string {
	d := Domain(baseURL)
	return []string{
		fmt.Sprintf("site:%s %s %d", d, category, now.Year()),
		fmt.Sprintf("site:%s %s %d", d, category, now.Year()-1),
		fmt.Sprintf("site:%s latest %s", d, category),
		fmt.Sprintf("site:%s recent %s", d, category),
	}
}
