package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Name    string        `yaml:"name" env:"FEEDBOT_TEST_NAME"`
	Workers int           `yaml:"workers" env:"FEEDBOT_TEST_WORKERS"`
	Enrich  bool          `yaml:"enrich" env:"FEEDBOT_TEST_ENRICH"`
	Timeout time.Duration `yaml:"timeout" env:"FEEDBOT_TEST_TIMEOUT"`
	Tags    []string      `yaml:"tags" env:"FEEDBOT_TEST_TAGS"`
	Cache   struct {
		Addr string `yaml:"addr" env:"FEEDBOT_TEST_REDIS"`
	} `yaml:"cache"`
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedbot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeTemp(t, `
name: feedbot
workers: 6
enrich: true
timeout: 15s
tags: [ai, ml]
cache:
  addr: localhost:6379
`)

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "feedbot" {
		t.Fatalf("expected 'feedbot', got '%s'", cfg.Name)
	}
	if cfg.Workers != 6 {
		t.Fatalf("expected 6 workers, got %d", cfg.Workers)
	}
	if !cfg.Enrich {
		t.Fatal("expected enrich to be true")
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("expected 15s, got %s", cfg.Timeout)
	}
	if len(cfg.Tags) != 2 || cfg.Cache.Addr != "localhost:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeTemp(t, "name: partial\n")

	cfg := testConfig{Workers: 4, Timeout: 10 * time.Second}
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 4 || cfg.Timeout != 10*time.Second {
		t.Fatalf("defaults were overwritten: %+v", cfg)
	}
}

func TestEnvOverride(t *testing.T) {
	path := writeTemp(t, "name: default\nworkers: 2\n")

	t.Setenv("FEEDBOT_TEST_NAME", "from-env")
	t.Setenv("FEEDBOT_TEST_WORKERS", "8")
	t.Setenv("FEEDBOT_TEST_ENRICH", "1")
	t.Setenv("FEEDBOT_TEST_TIMEOUT", "3s")
	t.Setenv("FEEDBOT_TEST_TAGS", "a, b ,c")
	t.Setenv("FEEDBOT_TEST_REDIS", "redis:6379")

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "from-env" || cfg.Workers != 8 || !cfg.Enrich {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", cfg.Timeout)
	}
	if len(cfg.Tags) != 3 || cfg.Tags[1] != "b" {
		t.Fatalf("expected trimmed tags, got %q", cfg.Tags)
	}
	if cfg.Cache.Addr != "redis:6379" {
		t.Fatalf("expected nested override, got %q", cfg.Cache.Addr)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FEEDBOT_TEST_EXPANDED", "expanded")
	path := writeTemp(t, "name: ${FEEDBOT_TEST_EXPANDED}\n")

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "expanded" {
		t.Fatalf("expected 'expanded', got '%s'", cfg.Name)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Setenv("FEEDBOT_TEST_WORKERS", "5")

	cfg := testConfig{Name: "default"}
	if err := LoadOrDefault("/nonexistent/feedbot.yaml", &cfg); err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Name != "default" {
		t.Fatalf("expected default name, got '%s'", cfg.Name)
	}
	if cfg.Workers != 5 {
		t.Fatalf("expected env override on missing file, got %d", cfg.Workers)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "name: [unterminated\n")
	var cfg testConfig
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}
