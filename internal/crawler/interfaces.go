package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves the HTML body of a URL. An error or an empty body means
// the URL is skipped; there are no retries.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Extractor turns HTML into the main-content plain text of the page.
type Extractor interface {
	Extract(html, pageURL string) (string, error)
}

// LinkExtractor returns the same-origin links found in an HTML page.
type LinkExtractor interface {
	Links(html, baseURL string) []string
}

// LanguageDetector returns a lower-case ISO 639-1 code or LanguageOther.
type LanguageDetector interface {
	Detect(text string) string
}

// RelevanceScorer scores text against the job's topic, higher is more relevant.
type RelevanceScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// RobotsPolicy answers whether a URL may be fetched under robots.txt rules.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// HeadlessDetector decides whether a fetched page needs a JavaScript render.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// SearchEngine resolves a query into candidate result URLs.
type SearchEngine interface {
	Search(ctx context.Context, query, lang string, limit int) ([]SearchResult, error)
}

// RunReporter is notified once a run or shard has finished and its files are closed.
type RunReporter interface {
	Report(ctx context.Context, summary RunSummary) error
}

// Pauser blocks for the politeness delay between fetches.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
