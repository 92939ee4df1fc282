package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/article"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/config"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/ingest"
	"github.com/RobinCoderZhao/feedbot/pkg/notify"
)

func TestApp_IngestArchivesRuns(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(catalogPath, []byte("categories:\n  - name: AI\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.CatalogPath = catalogPath
	cfg.Store.DSN = filepath.Join(dir, "runs.db")

	ctx := context.Background()
	a, err := New(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	if names := a.Catalog.Names(); len(names) != 1 || names[0] != "AI" {
		t.Fatalf("expected custom catalog, got %v", names)
	}

	res, err := a.Ingest(ctx, "AI", 0)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(res.Articles) != 2 || !res.FallbackUsed {
		t.Fatalf("expected the two fallback records, got %+v", res)
	}

	if _, err := a.Ingest(ctx, "Unknown", 3); err != nil {
		t.Fatalf("ingest unknown: %v", err)
	}

	runs, err := a.Store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 archived runs, got %d", len(runs))
	}
	if runs[0].Category != "Unknown" || !runs[0].CatalogMiss || runs[0].Requested != 3 {
		t.Fatalf("unexpected latest run: %+v", runs[0])
	}
	if runs[1].Requested != cfg.Ingest.MaxArticles || runs[1].Returned != 2 {
		t.Fatalf("unexpected first run: %+v", runs[1])
	}
}

func TestApp_WithoutStore(t *testing.T) {
	cfg := config.DefaultConfig()
	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.Store != nil {
		t.Fatal("expected no store without a DSN")
	}
	if a.Catalog.Len() == 0 {
		t.Fatal("expected the built-in catalog")
	}
}

func TestApp_BadCatalog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}

func TestApp_NotifyPostsReportToWebhook(t *testing.T) {
	var got notify.WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Notify.Webhook.URL = srv.URL
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	res := &ingest.Result{
		Category: "AI",
		Articles: []article.Article{
			article.New("https://example.com/a", "First", "body", nil, article.TierRSS),
		},
		FallbackUsed: true,
	}
	if err := a.Notify(context.Background(), res); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Title != "AI: 1 articles" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if !strings.Contains(got.Text, "1. First") || !strings.Contains(got.Text, "https://example.com/a") {
		t.Fatalf("unexpected text %q", got.Text)
	}
	if got.Fields["fallback"] != "true" || got.Fields["failures"] != "0" {
		t.Fatalf("unexpected fields %v", got.Fields)
	}
}

func TestApp_NotifyWithoutChannelsIsNoop(t *testing.T) {
	a, err := New(context.Background(), config.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.Notify(context.Background(), &ingest.Result{Category: "AI"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestApp_IngestFlagsArticlesFromEarlierRuns(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.CatalogPath = filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(cfg.CatalogPath, []byte("categories:\n  - name: AI\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Store.DSN = filepath.Join(dir, "runs.db")

	ctx := context.Background()
	a, err := New(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	first, err := a.Ingest(ctx, "AI", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Repeated) != 0 {
		t.Fatalf("expected nothing repeated on the first run, got %v", first.Repeated)
	}

	second, err := a.Ingest(ctx, "AI", 0)
	if err != nil {
		t.Fatal(err)
	}
	var want []string
	for _, art := range second.Articles {
		want = append(want, art.SourceURL)
	}
	if diff := cmp.Diff(want, second.Repeated); diff != "" {
		t.Fatalf("repeated mismatch (-want +got):\n%s", diff)
	}

	msg := Report(second)
	if msg.Fields["repeated"] != "2" || strings.Count(msg.Body, "(seen before)") != 2 {
		t.Fatalf("expected report to flag repeats, got %+v", msg)
	}
}
