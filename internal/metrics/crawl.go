package metrics

import "time"

// CrawlMetrics holds the counters of one run. It is owned by a single runner
// and is not safe for concurrent use.
type CrawlMetrics struct {
	PagesFetched      int
	PagesKept         int
	TotalBytesWritten int64
	StartedAt         time.Time
	EndedAt           time.Time
	finished          bool
}

// NewCrawlMetrics starts the run clock at start.
func NewCrawlMetrics(start time.Time) *CrawlMetrics {
	return &CrawlMetrics{StartedAt: start}
}

// Finish stamps the end time. Only the first call has an effect; it reports
// whether this call was the one that finished the metrics.
func (m *CrawlMetrics) Finish(now time.Time) bool {
	if m.finished {
		return false
	}
	m.finished = true
	m.EndedAt = now
	return true
}

// Duration returns the run length so far, or the final length once finished.
func (m *CrawlMetrics) Duration(now time.Time) time.Duration {
	if m.finished {
		return m.EndedAt.Sub(m.StartedAt)
	}
	return now.Sub(m.StartedAt)
}

// MegabytesWritten returns the filtered bytes in whole MiB, as compared against
// limits.memory_limit_mb.
func (m *CrawlMetrics) MegabytesWritten() int64 {
	return m.TotalBytesWritten / (1 << 20)
}
