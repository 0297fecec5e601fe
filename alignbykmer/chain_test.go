package alignbykmer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainPicksCompatibleRun(t *testing.T) {
	stretches := []Stretch{
		{IStart: 0, IEnd: 5, JStart: 0, JEnd: 5, KmerCnt: 2},
		{IStart: 10, IEnd: 15, JStart: 10, JEnd: 15, KmerCnt: 2},
		{IStart: 20, IEnd: 25, JStart: 20, JEnd: 25, KmerCnt: 2},
	}
	dpRow := make([]dpEntry, len(stretches))
	chain := Chain(stretches, dpRow)

	// Chain is latest-first: index 0 is the best-scoring endpoint, the
	// last index is the root.
	require.Equal(t, stretches[2], chain[0])
	require.Equal(t, stretches[1], chain[1])
	require.Equal(t, stretches[0], chain[2])
}

func TestChainSingleStretch(t *testing.T) {
	stretches := []Stretch{{IStart: 0, IEnd: 4, JStart: 0, JEnd: 4, KmerCnt: 2}}
	dpRow := make([]dpEntry, len(stretches))
	chain := Chain(stretches, dpRow)
	require.Len(t, chain, 1)
	require.Equal(t, stretches[0], chain[0])
}

func TestChainEmpty(t *testing.T) {
	require.Nil(t, Chain(nil, nil))
}

// TestChainPreservesAxisMixupBug exercises the unconditionally-preserved
// compatibility test: a successor is only rejected when its JStart is at
// or before the predecessor's IEnd, even though that compares different
// axes. Here the successor's JStart equals the predecessor's IEnd
// exactly, so the pair must be treated as incompatible (strict >).
func TestChainPreservesAxisMixupBug(t *testing.T) {
	stretches := []Stretch{
		{IStart: 0, IEnd: 10, JStart: 0, JEnd: 10, KmerCnt: 2},
		// JStart (10) == predecessor's IEnd (10): not strictly greater, so
		// this stretch must NOT be allowed to chain off the first one. Its
		// own higher self-referential score still makes it the best chain.
		{IStart: 20, IEnd: 25, JStart: 10, JEnd: 15, KmerCnt: 3},
	}
	dpRow := make([]dpEntry, len(stretches))
	chain := Chain(stretches, dpRow)
	require.Len(t, chain, 1)
	require.Equal(t, stretches[1], chain[0])
}
