// Package kmerutil implements k-mer index encoding and sequence k-mer
// iteration for the alignbykmer engine (spec.md §4.1, §6 "K-mer index
// generator").
//
// This generalizes the teacher's fusion/kmer.go kmerizer — a fixed
// 2-bit-per-base DNA k-mer encoder — to an arbitrary integer-encoded
// alphabet of size A, matching alignbykmer's protein (A=21 by default)
// and reduced-alphabet use cases, and adds the optional spaced-kmer mask
// that fusion.Opts has no equivalent for.
package kmerutil

import (
	"math/bits"

	"github.com/grailbio/base/errors"
)

// MaxSeqLen is the largest sequence length this package supports:
// positions are encoded as uint16, and one value (Sentinel) is reserved,
// so valid positions are [0, MaxSeqLen).
const MaxSeqLen = 1<<16 - 1

// Sentinel marks an empty query-position-lookup slot (spec.md §3, "Query
// position lookup table").
const Sentinel = uint16(1<<16 - 1)

// Indexer computes the canonical little-endian base-A integer index of a
// k-mer: index = sum(code[p] * A^p for p in 0..k-1).
type Indexer struct {
	AlphabetSize int
	K            int
	powers       []uint64 // powers[p] == AlphabetSize^p
}

// NewIndexer validates (alphabetSize, k) and builds an Indexer.
//
// It rejects combinations whose lookup table would overflow a uint32
// index; A^k is not compared against 2^16. Positions are u16-encoded
// regardless of k, so the binding constraint in practice is maxSeqLen;
// the A^k overflow check guards the lookup table's own addressing.
func NewIndexer(alphabetSize, k int) (*Indexer, error) {
	if alphabetSize <= 0 || k <= 0 {
		return nil, errors.E("kmerutil: alphabetSize and k must be positive", alphabetSize, k)
	}
	powers := make([]uint64, k)
	powers[0] = 1
	for p := 1; p < k; p++ {
		hi, lo := bits.Mul64(powers[p-1], uint64(alphabetSize))
		if hi != 0 || lo > 1<<32 {
			return nil, errors.E("kmerutil: alphabetSize^k overflows the k-mer lookup table", alphabetSize, k)
		}
		powers[p] = lo
	}
	last := powers[k-1] * uint64(alphabetSize)
	if last > 1<<32 {
		return nil, errors.E("kmerutil: alphabetSize^k overflows the k-mer lookup table", alphabetSize, k)
	}
	return &Indexer{AlphabetSize: alphabetSize, K: k, powers: powers}, nil
}

// LookupSize returns A^k, the number of entries the query position
// lookup table must hold.
func (idx *Indexer) LookupSize() uint32 {
	return uint32(idx.powers[idx.K-1]) * uint32(idx.AlphabetSize)
}

// Int2Index computes the canonical index of the k residue codes in
// codes. It returns ok=false if any code is negative (an ambiguous or
// out-of-alphabet residue), in which case the k-mer must be skipped.
func (idx *Indexer) Int2Index(codes []int) (index uint32, ok bool) {
	var acc uint64
	for p, c := range codes {
		if c < 0 {
			return 0, false
		}
		acc += uint64(c) * idx.powers[p]
	}
	return uint32(acc), true
}

// Pattern is a spaced-kmer mask: a window of len(Pattern) consecutive
// sequence positions, of which the true entries are the k informative
// positions folded into the k-mer index (in window order). A nil or
// all-true Pattern is a contiguous (non-spaced) k-mer of width K.
type Pattern []bool

// Width returns the window size spanned by the pattern.
func (p Pattern) Width(k int) int {
	if p == nil {
		return k
	}
	return len(p)
}

// Weight returns the number of informative (true) positions.
func (p Pattern) Weight(k int) int {
	if p == nil {
		return k
	}
	n := 0
	for _, b := range p {
		if b {
			n++
		}
	}
	return n
}

// ParsePattern parses a "1010111"-style spaced-kmer pattern string into a
// Pattern; '1' marks an informative position, any other character marks
// a don't-care position.
func ParsePattern(s string) Pattern {
	if s == "" {
		return nil
	}
	p := make(Pattern, len(s))
	for i := 0; i < len(s); i++ {
		p[i] = s[i] == '1'
	}
	return p
}

// Iterator walks the contiguous or spaced k-mers of an integer-encoded
// sequence, in increasing position order, skipping windows that cross an
// ambiguous (negative-code) residue. It is reset and reused once per
// query/target the way the teacher's kmerizer is reset and reused once
// per read (fusion/stitcher.go).
type Iterator struct {
	idx     *Indexer
	pattern Pattern
	width   int

	codes []int
	pos   int // next candidate window start

	curPos   int
	curIndex uint32
	window   []int // scratch, length == idx.K
}

// NewIterator creates an Iterator for idx, using an optional spaced
// pattern (nil for contiguous k-mers).
func NewIterator(idx *Indexer, pattern Pattern) *Iterator {
	width := pattern.Width(idx.K)
	return &Iterator{
		idx:     idx,
		pattern: pattern,
		width:   width,
		window:  make([]int, idx.K),
	}
}

// Reset rebinds the iterator to a new integer-encoded sequence (negative
// codes mark ambiguous residues) and rewinds to the first position.
func (it *Iterator) Reset(codes []int) {
	it.codes = codes
	it.pos = 0
}

// Scan advances to the next valid k-mer window, returning false once no
// further window fits within the sequence. Ambiguous windows are skipped
// transparently, matching spec.md §4.1's "k-mers crossing them are
// skipped" contract.
func (it *Iterator) Scan() bool {
	for it.pos+it.width <= len(it.codes) {
		start := it.pos
		it.pos++
		if it.fillWindow(start) {
			it.curPos = start
			return true
		}
	}
	return false
}

func (it *Iterator) fillWindow(start int) bool {
	if it.pattern == nil {
		for p := 0; p < it.idx.K; p++ {
			it.window[p] = it.codes[start+p]
		}
	} else {
		w := 0
		for off, informative := range it.pattern {
			if !informative {
				continue
			}
			it.window[w] = it.codes[start+off]
			w++
		}
	}
	index, ok := it.idx.Int2Index(it.window)
	if !ok {
		return false
	}
	it.curIndex = index
	return true
}

// Pos returns the starting residue index of the current k-mer.
func (it *Iterator) Pos() int { return it.curPos }

// Index returns the canonical index of the current k-mer.
func (it *Iterator) Index() uint32 { return it.curIndex }
