// Package postgres records finished crawl runs in Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

const defaultTable = "crawl_runs"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RunStoreConfig controls the Postgres connection pool used for run rows.
type RunStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RunStore writes one row per finished run or shard. It implements
// crawler.RunReporter.
type RunStore struct {
	pool  execCloser
	table string
}

// NewRunStore connects to Postgres using cfg.
func NewRunStore(ctx context.Context, cfg RunStoreConfig) (*RunStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewRunStoreWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewRunStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRunStoreWithPool(pool execCloser, table string) (*RunStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RunStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *RunStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the run table when it does not exist yet.
func (s *RunStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id              TEXT        NOT NULL,
	shard_id            INTEGER     NOT NULL,
	job_name            TEXT        NOT NULL,
	pages_fetched       INTEGER     NOT NULL,
	pages_kept          INTEGER     NOT NULL,
	total_bytes_written BIGINT      NOT NULL,
	domains_seen        INTEGER     NOT NULL,
	stop_reason         TEXT        NOT NULL,
	started_at          TIMESTAMPTZ NOT NULL,
	ended_at            TIMESTAMPTZ NOT NULL,
	raw_pages_path      TEXT        NOT NULL,
	filtered_docs_path  TEXT        NOT NULL,
	PRIMARY KEY (run_id, shard_id)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// Report upserts the summary keyed by run and shard.
func (s *RunStore) Report(ctx context.Context, summary crawler.RunSummary) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("run store is not configured")
	}
	if summary.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	shard_id,
	job_name,
	pages_fetched,
	pages_kept,
	total_bytes_written,
	domains_seen,
	stop_reason,
	started_at,
	ended_at,
	raw_pages_path,
	filtered_docs_path
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
ON CONFLICT (run_id, shard_id) DO UPDATE SET
	pages_fetched = EXCLUDED.pages_fetched,
	pages_kept = EXCLUDED.pages_kept,
	total_bytes_written = EXCLUDED.total_bytes_written,
	domains_seen = EXCLUDED.domains_seen,
	stop_reason = EXCLUDED.stop_reason,
	ended_at = EXCLUDED.ended_at`, s.table)

	args := []any{
		summary.RunID,
		summary.ShardID,
		summary.JobName,
		summary.PagesFetched,
		summary.PagesKept,
		summary.TotalBytesWritten,
		summary.DomainsSeen,
		string(summary.StopReason),
		summary.StartedAt,
		summary.EndedAt,
		summary.RawPagesPath,
		summary.FilteredDocsPath,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}
