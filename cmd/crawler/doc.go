// Package main hosts the crawl orchestrator service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and job management
//     endpoints under /api/v1. Requests are validated, defaulted from config,
//     and handed to the orchestrator.
//   - Orchestration: internal/orchestrator.Manager registers each job, runs it
//     with a bounded worker pool, and owns the lifecycle state machine
//     (pending, running, completed, failed, cancelled). Cancellation propagates
//     through per-job contexts; in-flight fetches are never aborted.
//   - Fetch pipeline: workers pull URLs from the per-job frontier, wait on the
//     configured token bucket, fetch with a shared HTTP client (redirect cap,
//     per-request timeout, body size limit), and feed parsed links back into
//     the frontier one depth level down.
//   - Frontier: internal/frontier deduplicates on normalized URLs and enforces
//     the per-job page and depth caps atomically, so no URL is fetched twice
//     within a job.
//   - Progress: lifecycle and per-page events flow through the non-blocking
//     progress hub into the zap log sink and the Prometheus sink exported at
//     /metrics.
//   - Configuration & plumbing: Viper populates config from file/env
//     (CRAWLER_* variables); zap provides structured logging. The process
//     reacts to SIGINT/SIGTERM with a graceful drain of the HTTP server,
//     running jobs, and the progress hub.
//
// Run locally: go run ./cmd/crawler -config config.yaml (or rely solely on env
// overrides such as CRAWLER_SERVER_PORT and CRAWLER_LIMITER_SCOPE).
package main
