// Package frontier implements the pending-URL queue with exactly-once enqueue.
package frontier

import "github.com/JakeFAU/corpus-crawler/internal/crawler"

// Frontier is a FIFO queue whose seen-set only grows. A URL that was ever
// added is never enqueued again, even after it has been popped.
type Frontier struct {
	queue []string
	head  int
	seen  map[string]struct{}
}

// New creates an empty Frontier.
func New() *Frontier {
	return &Frontier{seen: make(map[string]struct{})}
}

// Add enqueues rawURL unless its normalized form was seen before. Unparseable
// URLs are dropped. It reports whether the URL was enqueued.
func (f *Frontier) Add(rawURL string) bool {
	key, err := crawler.NormalizeURL(rawURL)
	if err != nil || key == "" {
		return false
	}
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	f.queue = append(f.queue, key)
	return true
}

// Extend adds every URL in order and returns how many were new.
func (f *Frontier) Extend(urls []string) int {
	added := 0
	for _, u := range urls {
		if f.Add(u) {
			added++
		}
	}
	return added
}

// Pop removes and returns the oldest pending URL.
func (f *Frontier) Pop() (string, bool) {
	if f.head >= len(f.queue) {
		return "", false
	}
	next := f.queue[f.head]
	f.queue[f.head] = ""
	f.head++
	// compact once the consumed prefix dominates the backing array
	if f.head > 1024 && f.head*2 > len(f.queue) {
		f.queue = append([]string(nil), f.queue[f.head:]...)
		f.head = 0
	}
	return next, true
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	return len(f.queue) - f.head
}

// Pending returns a copy of the pending URLs in pop order.
func (f *Frontier) Pending() []string {
	return append([]string(nil), f.queue[f.head:]...)
}

// wasAdded reports whether rawURL was ever added.
func (f *Frontier) wasAdded(rawURL string) bool {
	key, err := crawler.NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	_, ok := f.seen[key]
	return ok
}
