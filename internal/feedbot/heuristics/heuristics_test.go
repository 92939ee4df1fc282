package heuristics

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.anthropic.com/news":      "www.anthropic.com",
		"http://127.0.0.1:8080/blog/x":        "127.0.0.1:8080",
		"  https://openai.com/blog/  ":        "openai.com",
		"not a url at all":                    "",
		"https://example.com/path?query=1#ab": "example.com",
	}
	for in, want := range tests {
		if got := Domain(in); got != want {
			t.Errorf("Domain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsLikelyArticleURL(t *testing.T) {
	base := "https://example.com/"
	tests := []struct {
		link string
		want bool
	}{
		{"https://example.com/blog/new-model", true},
		{"https://example.com/news/launch", true},
		{"https://example.com/2025/06/some-story", true},
		{"https://example.com/research/paper.html", true},
		{"https://example.com/index.php?id=3", true},
		{"https://example.com/tag/ai/", false},
		{"https://example.com/author/jane/blog/", false},
		{"https://example.com/privacy/", false},
		{"https://example.com/blog/feed", false},
		{"https://example.com/rss.xml", false},
		{"https://example.com/blog/post#comments", false},
		{"mailto:press@example.com", false},
		{"javascript:void(0)", false},
		{"https://other.com/blog/new-model", false},
		{"https://example.com/pricing", false},
	}
	for _, tt := range tests {
		if got := IsLikelyArticleURL(tt.link, base); got != tt.want {
			t.Errorf("IsLikelyArticleURL(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}
}

func TestTitleFromURL(t *testing.T) {
	tests := map[string]string{
		"https://example.com/blog/my-great_post.html": "My Great Post",
		"https://example.com/news/launch-day/":        "Launch Day",
		"https://example.com/page.PHP":                "Page",
		"https://example.com/":                        "Article",
		"https://example.com":                         "Article",
		"https://openai.com/chatgpt":                  "Chatgpt",
	}
	for in, want := range tests {
		if got := TitleFromURL(in); got != want {
			t.Errorf("TitleFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanContent(t *testing.T) {
	in := "Home | About | Contact\n\nSubscribe\n  The   model was released today.  \nHomework tips stay put."
	want := "The model was released today. Homework tips stay put."
	if got := CleanContent(in); got != want {
		t.Fatalf("CleanContent() = %q, want %q", got, want)
	}
}

func TestRecency_Match(t *testing.T) {
	r := RecencyAt(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	tests := map[string]bool{
		"The company shipped version 4 in March 2025":   true,
		"Results published December 12, 2024":          true,
		"Company history since 2019":                   false,
		"We recently expanded the program":             true,
		"The team announced a partnership":             true,
		"Evergreen documentation about the product":    false,
		"Newsroom archive for older stories":           false,
		"The LATEST release notes are available online": true,
	}
	for s, want := range tests {
		if got := r.Match(s); got != want {
			t.Errorf("Match(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestRecency_Extract(t *testing.T) {
	r := NewRecency(2024, 2025)
	content := "Short latest line. " +
		"Our company was founded a long time ago and has grown steadily since then. " +
		"In 2025 we announced a brand new family of reasoning models for developers! " +
		"The research team recently published a detailed paper on model interpretability?"

	got := r.Extract(content)
	want := "In 2025 we announced a brand new family of reasoning models for developers. " +
		"The research team recently published a detailed paper on model interpretability."
	if got != want {
		t.Fatalf("Extract() =\n%q\nwant\n%q", got, want)
	}

	if r.Extract("Nothing timely here at all, only an evergreen description of the company.") != "" {
		t.Fatal("expected no recent content")
	}
}

func TestRecency_SentencesCap(t *testing.T) {
	r := NewRecency()
	content := strings.Repeat("This is the latest update from the team about the product roadmap. ", 8)
	if got := len(r.Sentences(content, 5)); got != 5 {
		t.Fatalf("expected 5 sentences, got %d", got)
	}
}

func TestCandidateURLs(t *testing.T) {
	got := CandidateURLs("https://www.anthropic.com/")
	want := []string{"https://www.anthropic.com/claude", "https://www.anthropic.com/safety"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("CandidateURLs mismatch (-want +got):\n%s", diff)
	}
	if got := CandidateURLs("https://example.com/"); len(got) != 0 {
		t.Fatalf("expected no candidates for unknown domain, got %q", got)
	}
}

func TestSearchQueries(t *testing.T) {
	got := SearchQueries("https://openai.com/blog/", "AI", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	want := []string{
		"site:openai.com AI 2025",
		"site:openai.com AI 2024",
		"site:openai.com latest AI",
		"site:openai.com recent AI",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SearchQueries mismatch (-want +got):\n%s", diff)
	}
}
