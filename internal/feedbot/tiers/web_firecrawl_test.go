package tiers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/catalog"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/scrapesvc"
)

const firecrawlArticleHTML = `<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<h1>Introducing GPT Next</h1>
<img src="https://openai.com/img.png" alt="hero">
<p>Today we <strong>announced</strong> a <a href="https://openai.com/gpt">new model</a> that improves
reasoning across many tasks for developers and researchers in 2025.</p>
<ul><li>faster</li><li>cheaper</li></ul>
<footer>Copyright</footer>`

func TestWeb_FirecrawlContentIsPlainText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []map[string]string{{"url": "https://openai.com/index/gpt-next", "title": "GPT Next"}},
		})
	})
	mux.HandleFunc("POST /v1/scrape", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"html": firecrawlArticleHTML},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fc, err := scrapesvc.NewFirecrawl(scrapesvc.FirecrawlConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	tier := NewWeb(fc, testOptions(), WithClock(fixedNow), WithLinkDiscoverer(noLinks))

	cat := catalog.Category{Name: "AI", Web: []catalog.Descriptor{{URL: "https://openai.com/"}}}
	res := tier.Fetch(context.Background(), cat, 1)
	if len(res.Articles) != 1 {
		t.Fatalf("expected 1 article, got %+v (failures %v)", res.Articles, res.Failures)
	}

	got := res.Articles[0].Content
	want := "Introducing GPT Next Today we announced a new model that improves reasoning across " +
		"many tasks for developers and researchers in 2025. faster cheaper"
	if got != want {
		t.Fatalf("unexpected content:\n got %q\nwant %q", got, want)
	}
	for _, markup := range []string{"<", "#", "**", "](", "![", "Home", "Copyright"} {
		if strings.Contains(got, markup) {
			t.Fatalf("content contains %q: %q", markup, got)
		}
	}
}
