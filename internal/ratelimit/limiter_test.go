package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_BurstThenSteadyRate(t *testing.T) {
	t.Parallel()

	l := NewLimiter(5)
	ctx := context.Background()

	// The full burst is available immediately.
	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)

	// The next token takes roughly 1/rate seconds.
	require.GreaterOrEqual(t, l.Reserve(), 100*time.Millisecond)
}

func TestLimiter_RateAdherenceOverWindow(t *testing.T) {
	t.Parallel()

	const rps = 20
	l := NewLimiter(rps)
	ctx := context.Background()

	// Burn the burst, then time the steady-state grants.
	for i := 0; i < rps; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	start := time.Now()
	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	elapsed := time.Since(start)
	// n tokens at rps per second must take at least (n-1)/rps.
	require.GreaterOrEqual(t, elapsed, time.Duration(float64(n-1)/float64(rps)*float64(time.Second)))
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := NewLimiter(0.001)
	require.NoError(t, l.Wait(context.Background())) // burst token

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx)
	require.Error(t, err)
}

func TestProvider_GlobalScopeSharesOneBucket(t *testing.T) {
	t.Parallel()

	p := NewProvider(Config{Scope: ScopeGlobal, GlobalRPS: 3})
	a := p.ForJob("job-a", 100)
	b := p.ForJob("job-b", 100)
	require.Same(t, a, b)
}

func TestProvider_JobScopeIsolatesBuckets(t *testing.T) {
	t.Parallel()

	p := NewProvider(Config{Scope: ScopeJob})
	a := p.ForJob("job-a", 2)
	b := p.ForJob("job-b", 2)
	require.NotSame(t, a, b)
	require.Same(t, a, p.ForJob("job-a", 2))
}

func TestProvider_ReleaseDropsJobBucket(t *testing.T) {
	t.Parallel()

	p := NewProvider(Config{Scope: ScopeJob})
	a := p.ForJob("job-a", 2)
	p.Release("job-a")
	require.NotSame(t, a, p.ForJob("job-a", 2))
}
