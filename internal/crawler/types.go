// Package crawler defines core types shared across subsystems.
package crawler

import (
	"time"
)

// JobStatus represents the lifecycle state of a crawl job.
type JobStatus string

// Job status values reported by the orchestrator.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether a status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// JobConfig captures per-job crawl limits requested by the client.
type JobConfig struct {
	SeedURLs      []string `json:"seed_urls"`
	MaxPages      int      `json:"max_pages"`
	MaxDepth      int      `json:"max_depth"`
	RatePerSecond float64  `json:"rate_per_second"`
}

// JobStats tracks per-job progress counters. Counters only grow while the
// job is non-terminal.
type JobStats struct {
	PagesFetched    int        `json:"pages_fetched"`
	LinksDiscovered int        `json:"links_discovered"`
	Errors          int        `json:"errors"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// JobSnapshot is a consistent point-in-time view of one job, returned by
// the orchestrator's GetStatus.
type JobSnapshot struct {
	ID     string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Config JobConfig `json:"config"`
	Stats  JobStats  `json:"stats"`
}

// FetchResult is the outcome of a single successful HTTP GET. Header keys
// are canonicalized; when a header repeats, the last value wins.
type FetchResult struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
	FinalURL   string
	Duration   time.Duration
}

// ParsedPage holds the extraction contract output: an optional title, the
// outbound links in document order, and the visible text of the body.
type ParsedPage struct {
	Title       string
	Links       []string
	TextContent string
}
