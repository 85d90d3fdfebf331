package orchestrator

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pagelens/crawler/internal/crawler"
	"github.com/pagelens/crawler/internal/frontier"
	"github.com/pagelens/crawler/internal/progress"
	"github.com/pagelens/crawler/internal/ratelimit"
)

// runJob drives one job from Pending to a terminal state.
func (m *Manager) runJob(ctx context.Context, j *job) {
	defer m.limiters.Release(j.id)

	if j.cancelled.Load() {
		m.finish(j, crawler.JobStatusCancelled, "cancelled before start")
		return
	}

	m.logger.Info("job starting",
		zap.String("job_id", j.id),
		zap.Int("seeds", len(j.config.SeedURLs)),
		zap.Int("max_pages", j.config.MaxPages),
		zap.Int("max_depth", j.config.MaxDepth),
	)
	now := m.clock.Now()
	j.markRunning(now)
	m.hub.Emit(progress.Event{
		JobID: j.id,
		TS:    now,
		Stage: progress.StageJobStart,
	})

	for _, seed := range j.config.SeedURLs {
		j.frontier.Enqueue(seed, 0)
	}
	if j.frontier.Admitted() == 0 {
		m.finish(j, crawler.JobStatusFailed, "no seed url could be admitted")
		return
	}

	limiter := m.limiters.ForJob(j.id, j.config.RatePerSecond)

	workers := m.cfg.WorkersPerJob
	if workers > j.config.MaxPages {
		workers = j.config.MaxPages
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.workerLoop(ctx, j, limiter)
		}()
	}
	wg.Wait()

	final := crawler.JobStatusCompleted
	note := ""
	if j.cancelled.Load() {
		final = crawler.JobStatusCancelled
		note = "cancelled"
	}
	m.finish(j, final, note)
}

// finish moves the job to its terminal state and emits the closing event.
func (m *Manager) finish(j *job, status crawler.JobStatus, note string) {
	now := m.clock.Now()
	if !j.finalize(status, now) {
		return
	}
	snap := j.snapshot()
	var runtime time.Duration
	if snap.Stats.StartedAt != nil {
		runtime = now.Sub(*snap.Stats.StartedAt)
	}
	m.logger.Info("job finished",
		zap.String("job_id", j.id),
		zap.String("status", string(status)),
		zap.Int("pages_fetched", snap.Stats.PagesFetched),
		zap.Int("links_discovered", snap.Stats.LinksDiscovered),
		zap.Int("errors", snap.Stats.Errors),
	)
	m.hub.Emit(progress.Event{
		JobID:  j.id,
		TS:     now,
		Stage:  progress.StageJobDone,
		Result: string(status),
		Dur:    runtime,
		Note:   note,
	})
}

// workerLoop pulls frontier entries until the frontier is exhausted or the
// job context ends. The cancellation signal is checked before every dequeue
// and again before every fetch; an in-flight fetch is never aborted.
func (m *Manager) workerLoop(ctx context.Context, j *job, limiter *ratelimit.Limiter) {
	for {
		if ctx.Err() != nil {
			return
		}
		entry, err := j.frontier.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, frontier.ErrExhausted) && ctx.Err() == nil {
				m.logger.Error("frontier dequeue failed", zap.String("job_id", j.id), zap.Error(err))
			}
			return
		}
		m.processEntry(ctx, j, limiter, entry)
		j.frontier.Done()
	}
}

// processEntry fetches one page, parses it, records stats, and feeds
// discovered links back into the frontier at depth+1. A failure on one page
// increments the error counter and never aborts the job.
func (m *Manager) processEntry(ctx context.Context, j *job, limiter *ratelimit.Limiter, entry frontier.Entry) {
	if ctx.Err() != nil {
		return
	}
	if !m.robots.Allowed(ctx, entry.URL) {
		m.logger.Debug("url disallowed by robots policy",
			zap.String("job_id", j.id), zap.String("url", entry.URL))
		return
	}

	res, err := m.fetcher.Fetch(ctx, entry.URL, limiter)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation surfacing through the limiter or transport is
			// not a page failure.
			return
		}
		j.recordError()
		m.logger.Warn("fetch failed",
			zap.String("job_id", j.id),
			zap.String("url", entry.URL),
			zap.Int("depth", entry.Depth),
			zap.Error(err),
		)
		m.hub.Emit(progress.Event{
			JobID:       j.id,
			TS:          m.clock.Now(),
			Stage:       progress.StageFetchError,
			URL:         entry.URL,
			Site:        siteOf(entry.URL),
			StatusClass: progress.ClassifyStatus(res.StatusCode),
			Note:        err.Error(),
		})
		return
	}

	page := m.parser.Parse(string(res.Body), res.FinalURL)
	j.recordPage(len(page.Links))

	for _, link := range page.Links {
		j.frontier.Enqueue(link, entry.Depth+1)
	}

	m.hub.Emit(progress.Event{
		JobID:       j.id,
		TS:          m.clock.Now(),
		Stage:       progress.StagePageParsed,
		URL:         res.FinalURL,
		Site:        siteOf(res.FinalURL),
		StatusClass: progress.ClassifyStatus(res.StatusCode),
		Title:       page.Title,
		Links:       len(page.Links),
		Bytes:       int64(len(res.Body)),
		Dur:         res.Duration,
	})
}

func siteOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
