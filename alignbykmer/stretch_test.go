package alignbykmer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractStretchesMergesOverlappingDiagonal(t *testing.T) {
	// Three k=3 anchors on the same diagonal (i-j == 10), each one
	// position apart, should merge into a single run.
	anchors := []Anchor{
		{IJ: 10, I: 10, J: 0},
		{IJ: 10, I: 11, J: 1},
		{IJ: 10, I: 12, J: 2},
	}
	out := ExtractStretches(anchors, 3, nil)
	require.Len(t, out, 1)
	require.Equal(t, uint16(10), out[0].IStart)
	require.Equal(t, uint16(15), out[0].IEnd)
	require.Equal(t, uint16(0), out[0].JStart)
	require.Equal(t, uint16(5), out[0].JEnd)
	require.Equal(t, 3, out[0].KmerCnt)
}

func TestExtractStretchesSplitsDifferentDiagonals(t *testing.T) {
	// Each anchor is alone on its diagonal, so both are singletons and
	// neither survives.
	anchors := []Anchor{
		{IJ: 0, I: 10, J: 10},
		{IJ: 5, I: 20, J: 15},
	}
	out := ExtractStretches(anchors, 3, nil)
	require.Len(t, out, 0)
}

func TestExtractStretchesMergesDistantSameDiagonalAnchors(t *testing.T) {
	// Same diagonal and monotonic, so these merge into one stretch
	// regardless of how far apart they are.
	anchors := []Anchor{
		{IJ: 10, I: 10, J: 0},
		{IJ: 10, I: 50, J: 40}, // far past the first anchor's window
	}
	out := ExtractStretches(anchors, 3, nil)
	require.Len(t, out, 1)
	require.Equal(t, uint16(10), out[0].IStart)
	require.Equal(t, uint16(53), out[0].IEnd)
	require.Equal(t, 2, out[0].KmerCnt)
}

func TestExtractStretchesSortOrder(t *testing.T) {
	anchors := []Anchor{
		{IJ: 10, I: 20, J: 10},
		{IJ: 10, I: 21, J: 11},
		{IJ: 0, I: 5, J: 5},
		{IJ: 0, I: 6, J: 6},
		{IJ: 20, I: 5, J: 0},
		{IJ: 20, I: 6, J: 1},
	}
	out := ExtractStretches(anchors, 2, nil)
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		require.True(t, out[i-1].IStart <= out[i].IStart)
	}
}
