// Package crawler holds the shared record types and the collaborator
// contracts (fetch, extract, detect, score, robots, report) used by the
// corpus crawl runner and its shards.
package crawler
