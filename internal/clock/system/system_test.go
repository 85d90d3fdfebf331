package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClock_NowIsUTC(t *testing.T) {
	t.Parallel()

	c := New()
	before := time.Now().UTC()
	got := c.Now()
	after := time.Now().UTC()

	require.Equal(t, time.UTC, got.Location())
	require.False(t, got.Before(before))
	require.False(t, got.After(after))
}
