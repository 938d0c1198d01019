// Package api hosts the status HTTP server for running progress monitors.
// Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/monitors?status=&limit=&offset= lists monitor snapshots.
//   - GET /v1/monitors/{monitor_id} returns one snapshot.
package api
