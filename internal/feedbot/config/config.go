// Package config provides FeedBot configuration management.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/scrapesvc"
	appconfig "github.com/RobinCoderZhao/feedbot/pkg/config"
	"github.com/RobinCoderZhao/feedbot/pkg/notify"
	"github.com/RobinCoderZhao/feedbot/pkg/storage"
)

// Config is the main configuration for FeedBot.
type Config struct {
	Ingest      IngestConfig              `yaml:"ingest"`
	Scraper     ScraperConfig             `yaml:"scraper"`
	Firecrawl   scrapesvc.FirecrawlConfig `yaml:"firecrawl"`
	Cache       CacheConfig               `yaml:"cache"`
	Store       storage.Config            `yaml:"store"`
	Server      ServerConfig              `yaml:"server"`
	Schedule    ScheduleConfig            `yaml:"schedule"`
	Notify      NotifyConfig              `yaml:"notify"`
	CatalogPath string                    `yaml:"catalog" env:"FEEDBOT_CATALOG"` // empty uses the built-in catalog
	LogLevel    string                    `yaml:"log_level" env:"FEEDBOT_LOG_LEVEL"`
}

// IngestConfig holds the ingestion pipeline settings.
type IngestConfig struct {
	MaxArticles    int           `yaml:"max_articles" env:"FEEDBOT_MAX_ARTICLES"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"FEEDBOT_REQUEST_TIMEOUT"`
	SourceTimeout  time.Duration `yaml:"source_timeout" env:"FEEDBOT_SOURCE_TIMEOUT"`
	Workers        int           `yaml:"workers" env:"FEEDBOT_WORKERS"`
	Enrich         bool          `yaml:"enrich" env:"FEEDBOT_ENRICH"` // fetch linked pages for API items
}

// ScraperConfig holds settings for direct HTTP fetching.
type ScraperConfig struct {
	UserAgent  string `yaml:"user_agent" env:"FEEDBOT_USER_AGENT"`
	RetryCount int    `yaml:"retry_count"`
	ReaderURL  string `yaml:"reader_url" env:"FEEDBOT_READER_URL"` // e.g. https://r.jina.ai/
}

// CacheConfig selects the scrape cache. An empty RedisAddr keeps it in memory.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr" env:"FEEDBOT_REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"FEEDBOT_REDIS_PASSWORD"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl" env:"FEEDBOT_CACHE_TTL"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr          string `yaml:"addr" env:"FEEDBOT_ADDR"`
	AllowedOrigin string `yaml:"allowed_origin" env:"FEEDBOT_ALLOWED_ORIGIN"`
}

// ScheduleConfig holds the recurring ingestion settings.
type ScheduleConfig struct {
	Cron       string   `yaml:"cron" env:"FEEDBOT_CRON"`
	Categories []string `yaml:"categories" env:"FEEDBOT_CATEGORIES"`
}

// NotifyConfig selects where scheduled run reports are sent.
type NotifyConfig struct {
	Webhook notify.WebhookConfig `yaml:"webhook"` // empty URL disables it
	Log     bool                 `yaml:"log" env:"FEEDBOT_NOTIFY_LOG"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Ingest: IngestConfig{
			MaxArticles:    5,
			RequestTimeout: 60 * time.Second,
			SourceTimeout:  10 * time.Second,
			Workers:        4,
			Enrich:         true,
		},
		Cache: CacheConfig{
			Prefix: "feedbot:",
			TTL:    30 * time.Minute,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Schedule: ScheduleConfig{
			Cron:       "0 7 * * *",
			Categories: []string{"AI", "Technology"},
		},
		LogLevel: "info",
	}
}

// FileNames lists the configuration files looked up when no path is given,
// in order.
var FileNames = []string{"feedbot.yaml", ".feedbot.yaml"}

// GlobalPath is the per-user configuration file, under the XDG config home.
func GlobalPath() string {
	return filepath.Join(xdg.ConfigHome, "feedbot", "feedbot.yaml")
}

// Load loads configuration from path. With an empty path the working
// directory and then the user config directory are searched; a missing file
// leaves the defaults (plus environment overrides) in place.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := appconfig.Load(path, &cfg); err != nil {
			return cfg, err
		}
		return cfg, cfg.Validate()
	}

	for _, name := range FileNames {
		if _, err := os.Stat(name); err == nil {
			if err := appconfig.Load(name, &cfg); err != nil {
				return cfg, err
			}
			return cfg, cfg.Validate()
		}
	}

	if err := appconfig.LoadOrDefault(GlobalPath(), &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.Ingest.Workers < 0 {
		return fmt.Errorf("ingest.workers must not be negative")
	}
	if c.Ingest.RequestTimeout < 0 || c.Ingest.SourceTimeout < 0 {
		return fmt.Errorf("ingest timeouts must not be negative")
	}
	if u := c.Notify.Webhook.URL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return fmt.Errorf("notify.webhook.url must be an http(s) URL")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
