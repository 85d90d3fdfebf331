// Package frontier implements the per-job crawl queue with deduplication.
package frontier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pagelens/crawler/internal/crawler"
)

// ErrExhausted is returned by Dequeue once every admitted entry has been
// processed: there is no work now and there never will be again.
var ErrExhausted = errors.New("frontier exhausted")

// Entry is one unit of crawl work: a normalized URL and its link depth.
// Seeds sit at depth 0; a discovered link is one deeper than its parent.
type Entry struct {
	URL   string
	Depth int
}

// Frontier is a FIFO queue of entries guarded by a visited set, scoped to
// one job. Admission checks (dedup, depth cap, page cap) happen in a single
// critical section, so two workers can never both admit the same URL. The
// entries channel has capacity for every URL that can ever be admitted,
// which keeps sends under the lock non-blocking.
type Frontier struct {
	mu          sync.Mutex
	visited     map[string]struct{}
	admitted    int
	outstanding int
	maxPages    int
	maxDepth    int
	entries     chan Entry
	exhausted   chan struct{}
	closeOnce   sync.Once
}

// New constructs a Frontier bounded by maxPages admissions and maxDepth.
func New(maxPages, maxDepth int) *Frontier {
	return &Frontier{
		visited:   make(map[string]struct{}, maxPages),
		maxPages:  maxPages,
		maxDepth:  maxDepth,
		entries:   make(chan Entry, maxPages),
		exhausted: make(chan struct{}),
	}
}

// Enqueue admits a URL at the given depth. It reports false without side
// effects when the depth exceeds the cap, the admission budget is spent, the
// normalized URL was already seen, or the URL cannot be normalized.
func (f *Frontier) Enqueue(rawURL string, depth int) bool {
	if depth > f.maxDepth {
		return false
	}
	norm, err := crawler.NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.admitted >= f.maxPages {
		return false
	}
	if _, seen := f.visited[norm]; seen {
		return false
	}
	f.visited[norm] = struct{}{}
	f.admitted++
	f.outstanding++
	f.entries <- Entry{URL: norm, Depth: depth}
	return true
}

// Dequeue blocks until an entry is available, the frontier is exhausted, or
// the context ends. Every successful Dequeue must be matched by a Done call
// once the entry is fully processed (including enqueueing its children).
func (f *Frontier) Dequeue(ctx context.Context) (Entry, error) {
	select {
	case entry := <-f.entries:
		return entry, nil
	default:
	}
	select {
	case entry := <-f.entries:
		return entry, nil
	case <-f.exhausted:
		return Entry{}, ErrExhausted
	case <-ctx.Done():
		return Entry{}, fmt.Errorf("frontier dequeue: %w", ctx.Err())
	}
}

// Done marks one dequeued entry as fully processed. When the last
// outstanding entry completes, Dequeue starts returning ErrExhausted.
// An entry counts as outstanding from admission until Done, so the frontier
// cannot report exhaustion while a sibling fetch might still add work.
func (f *Frontier) Done() {
	f.mu.Lock()
	f.outstanding--
	drained := f.outstanding == 0
	f.mu.Unlock()
	if drained {
		f.closeOnce.Do(func() { close(f.exhausted) })
	}
}

// Seen reports whether the normalized form of rawURL has been admitted.
func (f *Frontier) Seen(rawURL string) bool {
	norm, err := crawler.NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[norm]
	return ok
}

// Admitted returns how many URLs have ever been admitted.
func (f *Frontier) Admitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admitted
}
