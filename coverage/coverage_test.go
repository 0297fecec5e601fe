package coverage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeFullSpan(t *testing.T) {
	require.Equal(t, 1.0, Compute(0, 10, 10))
}

func TestComputePartialSpan(t *testing.T) {
	require.Equal(t, 0.5, Compute(0, 5, 10))
}

func TestComputeZeroLength(t *testing.T) {
	require.Equal(t, 0.0, Compute(0, 0, 0))
}

func TestHasCoverageModes(t *testing.T) {
	require.True(t, HasCoverage(0.5, ModeQueryAndTarget, 0.6, 0.6))
	require.False(t, HasCoverage(0.5, ModeQueryAndTarget, 0.6, 0.4))
	require.True(t, HasCoverage(0.5, ModeQuery, 0.6, 0.0))
	require.True(t, HasCoverage(0.5, ModeTarget, 0.0, 0.6))
	require.False(t, HasCoverage(0.5, ModeTarget, 0.6, 0.4))
}
