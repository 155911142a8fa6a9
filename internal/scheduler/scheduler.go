// Package scheduler enforces the per-origin page quota of a run.
package scheduler

import "github.com/JakeFAU/corpus-crawler/internal/crawler"

// Scheduler counts successful fetches per origin. Counters only grow, so an
// origin that reached the cap stays closed for the rest of the run.
type Scheduler struct {
	maxPerOrigin int
	counts       map[string]int
}

// New creates a Scheduler allowing maxPagesPerDomain fetches per origin.
func New(maxPagesPerDomain int) *Scheduler {
	return &Scheduler{
		maxPerOrigin: maxPagesPerDomain,
		counts:       make(map[string]int),
	}
}

// CanCrawl reports whether the origin of rawURL is still below its quota.
func (s *Scheduler) CanCrawl(rawURL string) bool {
	return s.counts[crawler.Origin(rawURL)] < s.maxPerOrigin
}

// MarkCrawled records one successful fetch for the origin of rawURL.
func (s *Scheduler) MarkCrawled(rawURL string) {
	s.counts[crawler.Origin(rawURL)]++
}

func (s *Scheduler) count(rawURL string) int {
	return s.counts[crawler.Origin(rawURL)]
}
