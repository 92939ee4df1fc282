package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/article"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/ingest"
	"github.com/RobinCoderZhao/feedbot/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, storage.Config{DSN: filepath.Join(t.TempDir(), "runs.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s, err := New(ctx, db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }

	published := time.Date(2025, 2, 28, 17, 30, 0, 0, time.UTC)
	res := &ingest.Result{
		Category: "AI",
		Articles: []article.Article{
			article.New("https://example.com/a", "A", "Content A", &published, article.TierAPI),
			article.New("https://openai.com/blog/", "Fallback", "Content F", nil, article.TierFallback),
		},
		FallbackUsed: true,
		Duration:     1500 * time.Millisecond,
	}

	id, err := s.SaveRun(ctx, 5, res)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	run, err := s.Run(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if run == nil {
		t.Fatal("expected run")
	}
	if run.Category != "AI" || run.Requested != 5 || run.Returned != 2 || !run.FallbackUsed || run.CatalogMiss {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.Duration != 1500*time.Millisecond || !run.CreatedAt.Equal(s.now()) {
		t.Fatalf("unexpected timing: %s %s", run.Duration, run.CreatedAt)
	}
	if diff := cmp.Diff(res.Articles, run.Articles); diff != "" {
		t.Fatalf("articles mismatch (-want +got):\n%s", diff)
	}
}

func TestRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, cat := range []string{"AI", "Technology", "AI"} {
		if _, err := s.SaveRun(ctx, 5, &ingest.Result{Category: cat}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != 3 || all[2].ID != 1 {
		t.Fatalf("expected 3 runs newest first, got %+v", all)
	}

	ai, err := s.Recent(ctx, "AI", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ai) != 1 || ai[0].ID != 3 || ai[0].Articles != nil {
		t.Fatalf("expected latest AI run only, got %+v", ai)
	}
}

func TestRun_Missing(t *testing.T) {
	s := newTestStore(t)
	run, err := s.Run(context.Background(), 42)
	if err != nil || run != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", run, err)
	}
}

func TestSeenURL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	res := &ingest.Result{Category: "AI", Articles: []article.Article{
		article.New("https://example.com/seen", "T", "C", nil, article.TierRSS),
	}}
	if _, err := s.SaveRun(ctx, 5, res); err != nil {
		t.Fatal(err)
	}

	seen, err := s.SeenURL(ctx, "https://example.com/seen")
	if err != nil || !seen {
		t.Fatalf("expected URL to be seen, got %v %v", seen, err)
	}
	seen, err = s.SeenURL(ctx, "https://example.com/new")
	if err != nil || seen {
		t.Fatalf("expected URL to be unseen, got %v %v", seen, err)
	}
}
