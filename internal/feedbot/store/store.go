// Package store archives ingestion runs in SQLite: one row per run plus the
// articles it returned.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RobinCoderZhao/feedbot/internal/feedbot/article"
	"github.com/RobinCoderZhao/feedbot/internal/feedbot/ingest"
	"github.com/RobinCoderZhao/feedbot/pkg/storage"
)

// Schema is the SQLite schema for the run archive.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    category      TEXT NOT NULL,
    requested     INTEGER NOT NULL,
    returned      INTEGER NOT NULL,
    fallback_used INTEGER NOT NULL DEFAULT 0,
    catalog_miss  INTEGER NOT NULL DEFAULT 0,
    timed_out     INTEGER NOT NULL DEFAULT 0,
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_articles (
    run_id       INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position     INTEGER NOT NULL,
    source_url   TEXT NOT NULL,
    title        TEXT NOT NULL,
    content      TEXT NOT NULL,
    published_at TEXT,
    tier         TEXT,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_category ON runs(category);
CREATE INDEX IF NOT EXISTS idx_run_articles_url ON run_articles(source_url);
`

// Run is an archived ingestion run.
type Run struct {
	ID           int64             `json:"id"`
	Category     string            `json:"category"`
	Requested    int               `json:"requested"`
	Returned     int               `json:"returned"`
	FallbackUsed bool              `json:"fallback_used"`
	CatalogMiss  bool              `json:"catalog_miss"`
	TimedOut     bool              `json:"timed_out"`
	Duration     time.Duration     `json:"duration"`
	CreatedAt    time.Time         `json:"created_at"`
	Articles     []article.Article `json:"articles,omitempty"`
}

// Store persists ingestion runs.
type Store struct {
	db  *storage.DB
	now func() time.Time
}

// New creates a Store on db and applies the schema.
func New(ctx context.Context, db *storage.DB) (*Store, error) {
	if err := db.Migrate(ctx, Schema); err != nil {
		return nil, fmt.Errorf("create run schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// SaveRun archives res, which was produced for a request of requested
// articles, and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, requested int, res *ingest.Result) (int64, error) {
	var id int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		r, err := tx.ExecContext(ctx, `
			INSERT INTO runs (category, requested, returned, fallback_used, catalog_miss, timed_out, duration_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, res.Category, requested, len(res.Articles), res.FallbackUsed, res.CatalogMiss, res.TimedOut,
			res.Duration.Milliseconds(), s.now().UnixMilli())
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if id, err = r.LastInsertId(); err != nil {
			return fmt.Errorf("run id: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO run_articles (run_id, position, source_url, title, content, published_at, tier)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare article insert: %w", err)
		}
		defer stmt.Close()

		for i, a := range res.Articles {
			var published sql.NullString
			if a.PublishedAt != nil {
				published = sql.NullString{String: a.PublishedAt.UTC().Format(time.RFC3339Nano), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, id, i, a.SourceURL, a.Title, a.Content, published, a.Tier); err != nil {
				return fmt.Errorf("insert article %s: %w", a.SourceURL, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Recent returns up to limit runs, newest first, without their articles.
// An empty category matches every run.
func (s *Store) Recent(ctx context.Context, category string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, requested, returned, fallback_used, catalog_miss, timed_out, duration_ms, created_at
		FROM runs
		WHERE ? = '' OR category = ?
		ORDER BY id DESC
		LIMIT ?
	`, category, category, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			durationMs int64
			createdMs  int64
		)
		if err := rows.Scan(&r.ID, &r.Category, &r.Requested, &r.Returned, &r.FallbackUsed,
			&r.CatalogMiss, &r.TimedOut, &durationMs, &createdMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.CreatedAt = time.UnixMilli(createdMs).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns one run with its articles. It returns (nil, nil) when the run
// does not exist.
func (s *Store) Run(ctx context.Context, id int64) (*Run, error) {
	var (
		r          Run
		durationMs int64
		createdMs  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, category, requested, returned, fallback_used, catalog_miss, timed_out, duration_ms, created_at
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Category, &r.Requested, &r.Returned, &r.FallbackUsed,
		&r.CatalogMiss, &r.TimedOut, &durationMs, &createdMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query run %d: %w", id, err)
	}
	r.Duration = time.Duration(durationMs) * time.Millisecond
	r.CreatedAt = time.UnixMilli(createdMs).UTC()

	if r.Articles, err = s.articles(ctx, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) articles(ctx context.Context, runID int64) ([]article.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_url, title, content, published_at, tier
		FROM run_articles WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run articles: %w", err)
	}
	defer rows.Close()

	var out []article.Article
	for rows.Next() {
		var (
			a         article.Article
			published sql.NullString
			tier      sql.NullString
		)
		if err := rows.Scan(&a.SourceURL, &a.Title, &a.Content, &published, &tier); err != nil {
			return nil, fmt.Errorf("scan run article: %w", err)
		}
		if published.Valid {
			if t, err := time.Parse(time.RFC3339Nano, published.String); err == nil {
				a.PublishedAt = &t
			}
		}
		a.Tier = tier.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// SeenURL reports whether any archived run returned sourceURL.
func (s *Store) SeenURL(ctx context.Context, sourceURL string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM run_articles WHERE source_url = ?", sourceURL).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count article %s: %w", sourceURL, err)
	}
	return n > 0, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
