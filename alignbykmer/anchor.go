// Package alignbykmer implements the k-mer anchor chaining aligner:
// exact k-mer seeding, diagonal-run stretch extraction, a 2D DP chain
// over stretches, a gap-bridging 1D DP boundary resolver, and the final
// score/identity/coverage/E-value accounting pass (spec.md §§3-4).
package alignbykmer

import "sort"

// Anchor is a single exact k-mer match between a query position i and a
// target position j (spec.md §3, "KmerPos"). IJ is the signed diagonal
// i-j, computed with uint16 wraparound by design: sequences are bounded
// to kmerutil.MaxSeqLen, so i-j always fits the wrapped representation,
// and the wraparound is what lets two anchors on the same diagonal sort
// adjacently regardless of whether i >= j.
type Anchor struct {
	IJ uint16
	I  uint16
	J  uint16
}

// sortAnchors orders anchors lexicographically by (IJ, I, J) ascending,
// matching KmerPos::compareKmerPos.
func sortAnchors(anchors []Anchor) {
	sort.Slice(anchors, func(a, b int) bool {
		x, y := anchors[a], anchors[b]
		if x.IJ != y.IJ {
			return x.IJ < y.IJ
		}
		if x.I != y.I {
			return x.I < y.I
		}
		return x.J < y.J
	})
}

// MatchSeeds enumerates the k-mers of a target sequence (via targetIter,
// already Reset to the target's codes) and, for every k-mer present in
// the query position lookup table, appends an anchor to anchors. It
// returns the anchor slice with newly matched anchors appended.
//
// At most one anchor is appended per target k-mer, so a target no longer
// than cap(anchors) stays within the backing array. MatchSeeds does not
// check the target's length; more anchors than cap(anchors) make append
// grow the slice into a new array.
func MatchSeeds(lookup []uint16, targetIter kmerIterator, anchors []Anchor) []Anchor {
	for targetIter.Scan() {
		ix := targetIter.Index()
		if ix >= uint32(len(lookup)) {
			continue
		}
		i := lookup[ix]
		if i == sentinel {
			continue
		}
		j := uint16(targetIter.Pos())
		anchors = append(anchors, Anchor{IJ: i - j, I: i, J: j})
	}
	return anchors
}

// kmerIterator is the subset of *kmerutil.Iterator's API the seed
// matcher needs; defined locally so anchor.go and its tests don't import
// kmerutil directly for the mock in unit tests.
type kmerIterator interface {
	Scan() bool
	Pos() int
	Index() uint32
}

const sentinel = uint16(1<<16 - 1)
