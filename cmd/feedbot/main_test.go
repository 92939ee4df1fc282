package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(catalogPath, []byte("categories:\n  - name: AI\n    display_name: Artificial Intelligence\n  - name: Gardening\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(dir, "feedbot.yaml")
	content := "catalog: " + catalogPath + "\nstore:\n  dsn: " + filepath.Join(dir, "runs.db") + "\nlog_level: error\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "feedbot dev\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCategories(t *testing.T) {
	cfg, _ := writeConfig(t)
	out, err := run(t, "categories", "--config", cfg, "--env-file", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Artificial Intelligence") || !strings.Contains(out, "Gardening") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestIngestAndHistory(t *testing.T) {
	cfg, _ := writeConfig(t)

	out, err := run(t, "ingest", "AI", "--json", "--config", cfg, "--env-file", "")
	if err != nil {
		t.Fatal(err)
	}
	var res struct {
		Category     string `json:"category"`
		FallbackUsed bool   `json:"fallback_used"`
		Articles     []struct {
			SourceURL string `json:"source_url"`
		} `json:"articles"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !res.FallbackUsed || len(res.Articles) != 2 {
		t.Fatalf("expected fallback records for an empty AI category, got %+v", res)
	}

	out, err = run(t, "ingest", "Gardening", "--config", cfg, "--env-file", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Gardening: 0 articles") {
		t.Fatalf("unexpected text output:\n%s", out)
	}

	out, err = run(t, "ingest", "AI", "--config", cfg, "--env-file", "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "(seen before)") != 2 {
		t.Fatalf("expected both fallback articles flagged as seen before:\n%s", out)
	}

	out, err = run(t, "history", "--config", cfg, "--env-file", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Gardening") || !strings.Contains(out, "AI") {
		t.Fatalf("expected both runs in history:\n%s", out)
	}
}

func TestIngestRequiresCategory(t *testing.T) {
	if _, err := run(t, "ingest"); err == nil {
		t.Fatal("expected argument error")
	}
}
