// Package orchestrator owns the job registry and drives crawl execution.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pagelens/crawler/internal/crawler"
	"github.com/pagelens/crawler/internal/frontier"
	"github.com/pagelens/crawler/internal/progress"
	"github.com/pagelens/crawler/internal/ratelimit"
)

// Clock abstracts wall time so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// Config controls per-job execution.
type Config struct {
	// WorkersPerJob bounds concurrent fetches for one job.
	WorkersPerJob int
}

// Manager registers crawl jobs and runs each one with a bounded worker
// pool. It is the single ownership boundary for job state: all reads and
// writes of a job's status and stats go through its methods.
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*job

	fetcher  *crawler.Fetcher
	parser   *crawler.Parser
	limiters *ratelimit.Provider
	robots   crawler.RobotsPolicy
	hub      *progress.Hub
	clock    Clock
	logger   *zap.Logger
	cfg      Config

	baseCtx   context.Context
	baseStop  context.CancelFunc
	active    sync.WaitGroup
	closeOnce sync.Once
}

// NewManager constructs a Manager. The hub may be nil when no progress
// stream is wanted.
func NewManager(
	fetcher *crawler.Fetcher,
	parser *crawler.Parser,
	limiters *ratelimit.Provider,
	robots crawler.RobotsPolicy,
	hub *progress.Hub,
	clock Clock,
	cfg Config,
	logger *zap.Logger,
) *Manager {
	if cfg.WorkersPerJob <= 0 {
		cfg.WorkersPerJob = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if robots == nil {
		robots = crawler.NewRobotsPolicy(false, "", nil)
	}
	baseCtx, baseStop := context.WithCancel(context.Background())
	return &Manager{
		jobs:     make(map[string]*job),
		fetcher:  fetcher,
		parser:   parser,
		limiters: limiters,
		robots:   robots,
		hub:      hub,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
		baseCtx:  baseCtx,
		baseStop: baseStop,
	}
}

// CreateJob validates the config, registers the job in Pending, and starts
// crawling asynchronously. It fails with crawler.ErrDuplicateJobID when the
// id is taken and crawler.ErrInvalidConfig when limits are unusable.
func (m *Manager) CreateJob(id string, cfg crawler.JobConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.jobs[id]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", crawler.ErrDuplicateJobID, id)
	}
	if m.baseCtx.Err() != nil {
		m.mu.Unlock()
		return fmt.Errorf("orchestrator shutting down: %w", m.baseCtx.Err())
	}
	ctx, cancel := context.WithCancel(m.baseCtx)
	j := &job{
		id:       id,
		config:   cfg,
		status:   crawler.JobStatusPending,
		cancel:   cancel,
		frontier: frontier.New(cfg.MaxPages, cfg.MaxDepth),
	}
	m.jobs[id] = j
	m.active.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.active.Done()
		m.runJob(ctx, j)
	}()
	return nil
}

// GetStatus returns a consistent snapshot of one job's status and stats.
func (m *Manager) GetStatus(id string) (crawler.JobSnapshot, error) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return crawler.JobSnapshot{}, fmt.Errorf("%w: %s", crawler.ErrJobNotFound, id)
	}
	return j.snapshot(), nil
}

// Cancel signals cancellation and returns immediately. Cancelling a job
// that is already terminal is a successful no-op; the job transitions to
// Cancelled once its workers observe the signal, which is bounded by one
// fetch timeout since in-flight fetches are never aborted.
func (m *Manager) Cancel(id string) error {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", crawler.ErrJobNotFound, id)
	}
	j.requestCancel()
	return nil
}

// Shutdown cancels every active job and waits for their pools to exit or
// the context to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closeOnce.Do(m.baseStop)
	done := make(chan struct{})
	go func() {
		m.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("orchestrator shutdown wait: %w", ctx.Err())
	}
}

func validateConfig(cfg crawler.JobConfig) error {
	if len(cfg.SeedURLs) == 0 {
		return fmt.Errorf("%w: seed_urls must not be empty", crawler.ErrInvalidConfig)
	}
	if cfg.MaxPages <= 0 {
		return fmt.Errorf("%w: max_pages must be > 0", crawler.ErrInvalidConfig)
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must be >= 0", crawler.ErrInvalidConfig)
	}
	if cfg.RatePerSecond <= 0 {
		return fmt.Errorf("%w: rate_per_second must be > 0", crawler.ErrInvalidConfig)
	}
	return nil
}
