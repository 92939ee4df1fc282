package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	c := Default()
	want := []string{"AI", "Machine Learning", "Data Science", "Technology"}
	if diff := cmp.Diff(want, c.Names()); diff != "" {
		t.Fatalf("category names mismatch (-want +got):\n%s", diff)
	}

	ai, ok := c.Lookup("AI")
	if !ok {
		t.Fatal("expected AI category")
	}
	if len(ai.API) != 3 || len(ai.RSS) == 0 || len(ai.Web) == 0 {
		t.Fatalf("AI category has empty tiers: %+v", ai)
	}
	wantKinds := []Kind{KindAggregator, KindSocial, KindAcademic}
	for i, d := range ai.API {
		if d.Kind != wantKinds[i] {
			t.Errorf("api[%d] kind = %s, want %s", i, d.Kind, wantKinds[i])
		}
	}
	for _, d := range ai.RSS {
		if d.Kind != KindRSS {
			t.Errorf("rss source %s has kind %s", d.URL, d.Kind)
		}
	}
	for _, d := range ai.Web {
		if d.Kind != KindWeb || d.Name == "" {
			t.Errorf("web source not normalized: %+v", d)
		}
	}
}

func TestLookup_CaseInsensitiveAndMiss(t *testing.T) {
	c := Default()
	if cat, ok := c.Lookup("machine learning"); !ok || cat.Name != "Machine Learning" {
		t.Fatalf("expected case-insensitive match, got %+v %v", cat, ok)
	}
	if _, ok := c.Lookup("Gardening"); ok {
		t.Fatal("expected miss for unknown category")
	}
}

func TestLookup_ReturnsCopies(t *testing.T) {
	c := Default()
	cat, _ := c.Lookup("AI")
	cat.API[0].URL = "https://mutated.example.com"
	cat.Web = nil

	again, _ := c.Lookup("AI")
	if again.API[0].URL == "https://mutated.example.com" || len(again.Web) == 0 {
		t.Fatal("catalog was mutated through a lookup result")
	}
}

func TestClassifyAPI(t *testing.T) {
	tests := map[string]Kind{
		"https://hn.algolia.com/api/v1/search?query=ai":      KindAggregator,
		"https://www.reddit.com/r/artificial/hot.json":       KindSocial,
		"https://reddit.com/r/golang.json":                   KindSocial,
		"https://export.arxiv.org/api/query?search_query=ai": KindAcademic,
		"https://example.com/api":                            "",
		"://bad":                                             "",
	}
	for u, want := range tests {
		if got := ClassifyAPI(u); got != want {
			t.Errorf("ClassifyAPI(%q) = %q, want %q", u, got, want)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"missing name":   "categories:\n  - api: []\n",
		"duplicate":      "categories:\n  - name: A\n  - name: A\n",
		"missing url":    "categories:\n  - name: A\n    rss:\n      - name: x\n",
		"unknown api":    "categories:\n  - name: A\n    api:\n      - url: https://example.com/api\n",
		"relative url":   "categories:\n  - name: A\n    web:\n      - url: /news\n",
		"malformed yaml": "categories: [",
	}
	for name, doc := range tests {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParse_ExplicitAPIKind(t *testing.T) {
	doc := `
categories:
  - name: Custom
    api:
      - url: https://news.example.com/api/search
        kind: api-aggregator
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cat, _ := c.Lookup("Custom")
	if cat.API[0].Kind != KindAggregator || cat.API[0].Name != "news.example.com" {
		t.Fatalf("unexpected descriptor: %+v", cat.API[0])
	}
	if cat.DisplayName != "Custom" {
		t.Fatalf("expected display name to default to name, got %q", cat.DisplayName)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("FEEDBOT_TEST_FEED_HOST", "feeds.example.com")
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "categories:\n  - name: Env\n    rss:\n      - url: https://${FEEDBOT_TEST_FEED_HOST}/rss\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cat, _ := c.Lookup("Env")
	if cat.RSS[0].URL != "https://feeds.example.com/rss" {
		t.Fatalf("env not expanded: %q", cat.RSS[0].URL)
	}
}
