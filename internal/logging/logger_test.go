package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	dev, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, dev)
	require.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	prod, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, prod)
	require.False(t, prod.Core().Enabled(zapcore.DebugLevel))
	require.True(t, prod.Core().Enabled(zapcore.InfoLevel))
}
