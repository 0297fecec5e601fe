package kmerutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInt2Index(t *testing.T) {
	idx, err := NewIndexer(4, 3)
	require.NoError(t, err)

	index, ok := idx.Int2Index([]int{1, 2, 3})
	require.True(t, ok)
	require.Equal(t, uint32(1+2*4+3*16), index)
}

func TestInt2IndexAmbiguous(t *testing.T) {
	idx, err := NewIndexer(4, 3)
	require.NoError(t, err)
	_, ok := idx.Int2Index([]int{1, -1, 3})
	require.False(t, ok)
}

func TestNewIndexerRejectsOverflow(t *testing.T) {
	_, err := NewIndexer(1<<20, 10)
	require.Error(t, err)
}

func TestIteratorContiguous(t *testing.T) {
	idx, err := NewIndexer(4, 2)
	require.NoError(t, err)
	it := NewIterator(idx, nil)
	it.Reset([]int{0, 1, 2, 3})

	var positions []int
	for it.Scan() {
		positions = append(positions, it.Pos())
	}
	require.Equal(t, []int{0, 1, 2}, positions)
}

func TestIteratorSkipsAmbiguousWindow(t *testing.T) {
	idx, err := NewIndexer(4, 2)
	require.NoError(t, err)
	it := NewIterator(idx, nil)
	it.Reset([]int{0, -1, 2, 3})

	var positions []int
	for it.Scan() {
		positions = append(positions, it.Pos())
	}
	// window [0,-1] and [-1,2] are both ambiguous; only [2,3] is valid.
	require.Equal(t, []int{2}, positions)
}

func TestIteratorSpacedPattern(t *testing.T) {
	idx, err := NewIndexer(4, 2)
	require.NoError(t, err)
	pattern := ParsePattern("101") // width 3, weight 2
	it := NewIterator(idx, pattern)
	it.Reset([]int{0, 9, 1, 0, 9, 1})

	var indices []uint32
	for it.Scan() {
		indices = append(indices, it.Index())
	}
	// positions 0 and 2 (skipping the don't-care at 1) form the k-mer.
	require.NotEmpty(t, indices)
}

func TestParsePatternEmpty(t *testing.T) {
	require.Nil(t, ParsePattern(""))
}
