package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pagelens/crawler/internal/crawler"
	"github.com/pagelens/crawler/internal/frontier"
)

// job is the orchestrator's private record for one crawl. The mutex guards
// status and stats together so snapshots never observe a torn update.
type job struct {
	id     string
	config crawler.JobConfig

	mu     sync.Mutex
	status crawler.JobStatus
	stats  crawler.JobStats

	cancel    context.CancelFunc
	cancelled atomic.Bool
	frontier  *frontier.Frontier
}

func (j *job) snapshot() crawler.JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return crawler.JobSnapshot{
		ID:     j.id,
		Status: j.status,
		Config: j.config,
		Stats:  j.stats,
	}
}

// requestCancel flips the broadcast flag and tears down the job context.
// Safe to call at any point in the lifecycle, including after terminal.
func (j *job) requestCancel() {
	j.mu.Lock()
	terminal := j.status.Terminal()
	j.mu.Unlock()
	if terminal {
		return
	}
	j.cancelled.Store(true)
	j.cancel()
}

// markRunning performs the single Pending -> Running transition.
func (j *job) markRunning(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != crawler.JobStatusPending {
		return
	}
	j.status = crawler.JobStatusRunning
	j.stats.StartedAt = &now
}

// finalize moves the job into a terminal state exactly once. Workers have
// all exited by the time this runs, so stats are frozen afterwards.
func (j *job) finalize(status crawler.JobStatus, now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return false
	}
	j.status = status
	j.stats.FinishedAt = &now
	return true
}

func (j *job) recordPage(links int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats.PagesFetched++
	j.stats.LinksDiscovered += links
}

func (j *job) recordError() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats.Errors++
}
