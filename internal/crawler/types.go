package crawler

import (
	"net/http"
	"time"
)

// LanguageOther is reported when detection fails or yields no usable code.
const LanguageOther = "other"

// Record is one line of the raw corpus.
type Record struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Lang   string `json:"lang"`
	Text   string `json:"text"`
}

// FilteredRecord is one line of the filtered corpus.
type FilteredRecord struct {
	URL            string  `json:"url"`
	Domain         string  `json:"domain"`
	Lang           string  `json:"lang"`
	Text           string  `json:"text"`
	ScoreRelevance float64 `json:"score_relevance"`
}

// Filtered attaches a relevance score to a raw record.
func (r Record) Filtered(score float64) FilteredRecord {
	return FilteredRecord{
		URL:            r.URL,
		Domain:         r.Domain,
		Lang:           r.Lang,
		Text:           r.Text,
		ScoreRelevance: score,
	}
}

// FetchResponse captures a single HTTP fetch, used by the render promotion path.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// SearchResult is one hit returned by a SearchEngine.
type SearchResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// StopReason names why a run left the RUNNING state.
type StopReason string

const (
	// StopMaxPages fires once pages_fetched reaches limits.max_pages.
	StopMaxPages StopReason = "max_pages"
	// StopMemoryLimit fires once the filtered bytes reach limits.memory_limit_mb.
	StopMemoryLimit StopReason = "memory_limit"
	// StopMaxDomains fires once the distinct origins fetched reach limits.max_domains.
	StopMaxDomains StopReason = "max_domains"
	// StopFrontierExhausted fires when no pending URL remains.
	StopFrontierExhausted StopReason = "frontier_exhausted"
	// StopCanceled fires when the host cancels the run context.
	StopCanceled StopReason = "canceled"
	// StopSinkError fires when writing a kept record fails.
	StopSinkError StopReason = "sink_error"
)

// RunSummary describes a finished run or shard.
type RunSummary struct {
	RunID             string     `json:"run_id"`
	JobName           string     `json:"job_name"`
	ShardID           int        `json:"shard_id"` // -1 when the run was not sharded
	PagesFetched      int        `json:"pages_fetched"`
	PagesKept         int        `json:"pages_kept"`
	TotalBytesWritten int64      `json:"total_bytes_written"`
	DomainsSeen       int        `json:"domains_seen"`
	StopReason        StopReason `json:"stop_reason"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           time.Time  `json:"ended_at"`
	RawPagesPath      string     `json:"raw_pages_path"`
	FilteredDocsPath  string     `json:"filtered_docs_path"`
}
