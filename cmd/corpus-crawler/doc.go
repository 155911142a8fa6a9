// Package main hosts the corpus-crawler entrypoint.
//
// Architecture overview:
//   - Seeds: explicit job seeds are used as given (one per domain); otherwise internal/discovery queries a
//     SearXNG endpoint for every language/keyword pair until limits.max_domains distinct domains are found.
//   - Crawl loop: internal/runner pops URLs from a FIFO frontier, gates them on robots.txt and the per-domain
//     quota, fetches with colly (promoting to a chromedp render when crawler.render_js is on and the page looks
//     script-driven), extracts the main text with go-trafilatura, detects its language with lingua and scores it
//     with the configured relevance model. Kept pages go to raw_pages.jsonl and filtered_docs.jsonl.
//   - Budgets: max_pages, memory_limit_mb (filtered bytes written) and max_domains are checked before every pop.
//     The first one reached ends the run; a canceled context or an empty frontier ends it too.
//   - Distribution: the distributed command splits the seeds round-robin and re-executes this binary once per
//     shard via the hidden shard subcommand. Every shard writes under <output.dir>/shard_<i> and applies the
//     budgets on its own. A crashed shard is reported and does not stop the others.
//   - Run sinks: once the files are closed, the summary is upserted to Postgres, the files are uploaded to GCS and
//     a Pub/Sub notification is published, each only when configured. Failures there are logged, never fatal.
//
// Operational notes:
//   - Configuration: Viper reads the --config YAML file and CRAWLER_* environment overrides
//     (e.g. CRAWLER_LIMITS_MAX_PAGES).
//   - Observability: zap logs carry the job name, run ID and shard index; when metrics.listen_addr is set the
//     process serves /healthz, /readyz, /metrics and /v1/status while it runs.
//   - Shutdown: SIGINT/SIGTERM cancel the run context; the runner stops with stop_reason "canceled" and still
//     closes both files and reports its summary.
//
// Quick checklist:
//   - Run locally: go run ./cmd/corpus-crawler run --config job.yaml
//   - Debug one page: go run ./cmd/corpus-crawler score --config job.yaml https://example.com/article
//   - Fan out: go run ./cmd/corpus-crawler distributed --config job.yaml --workers 8
package main
