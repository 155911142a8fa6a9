// Package api hosts the operator HTTP endpoint of a crawl process:
//   - GET /healthz and /readyz for container probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the state of the current run.
package api
