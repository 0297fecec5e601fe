package alignbykmer

import (
	"github.com/fanhuan/MMseqs2/evalue"
	"github.com/fanhuan/MMseqs2/kmerutil"
)

// Worker holds the per-goroutine scratch state the engine reuses across
// every query/target pair it processes, the way fusion/stitcher.go's
// Stitcher reuses its own scratch slices across reads rather than
// reallocating per call.
type Worker struct {
	idx     *kmerutil.Indexer
	pattern kmerutil.Pattern

	lookup []uint16 // query position lookup table, size idx.LookupSize()

	queryIter  *kmerutil.Iterator
	targetIter *kmerutil.Iterator

	anchors   []Anchor
	stretches []Stretch
	dpRow     []dpEntry
	forward   []int

	subMat [][]int
	ev     *evalue.Computation
	opts   FilterOptions

	queryLen int
}

// NewWorker builds a Worker sized for sequences up to maxSeqLen long.
func NewWorker(idx *kmerutil.Indexer, pattern kmerutil.Pattern, subMat [][]int, ev *evalue.Computation, opts FilterOptions, maxSeqLen int) *Worker {
	lookup := make([]uint16, idx.LookupSize())
	for i := range lookup {
		lookup[i] = kmerutil.Sentinel
	}
	return &Worker{
		idx:        idx,
		pattern:    pattern,
		lookup:     lookup,
		queryIter:  kmerutil.NewIterator(idx, pattern),
		targetIter: kmerutil.NewIterator(idx, pattern),
		anchors:    make([]Anchor, 0, maxSeqLen),
		stretches:  make([]Stretch, 0, maxSeqLen),
		dpRow:      make([]dpEntry, maxSeqLen),
		forward:    make([]int, maxSeqLen+1),
		subMat:     subMat,
		ev:         ev,
		opts:       opts,
	}
}

// IndexQuery populates the worker's position lookup table from a single
// query's integer-coded residues. Only sentinel slots are written, so
// entries left by an earlier query that was not reset stay in place.
// Callers must call ResetQueryLookup once done with this query
// (spec.md §3's lookup-table lifecycle: one query's worth of entries
// live between IndexQuery and ResetQueryLookup).
func (w *Worker) IndexQuery(queryCodes []int) {
	w.queryLen = len(queryCodes)
	w.queryIter.Reset(queryCodes)
	for w.queryIter.Scan() {
		ix := w.queryIter.Index()
		if w.lookup[ix] == kmerutil.Sentinel {
			w.lookup[ix] = uint16(w.queryIter.Pos())
		}
	}
}

// ResetQueryLookup clears every lookup-table slot this query's IndexQuery
// call touched, by re-scanning the same query codes and resetting each
// visited slot to the sentinel. This mirrors the reference
// implementation's approach of undoing exactly the writes just made
// rather than memset-ing the whole (potentially large) table.
func (w *Worker) ResetQueryLookup(queryCodes []int) {
	w.queryIter.Reset(queryCodes)
	for w.queryIter.Scan() {
		w.lookup[w.queryIter.Index()] = kmerutil.Sentinel
	}
}

// KmerWidth returns the k-mer/pattern window width this worker indexes
// with, for callers that need it to drive ExtractStretches.
func (w *Worker) KmerWidth() int { return w.pattern.Width(w.idx.K) }

// AlignTarget aligns one target against the currently indexed query and
// reports whether the alignment passed the worker's filter thresholds.
// kmerWidth is the k-mer/pattern window width used by stretch
// extraction.
func (w *Worker) AlignTarget(queryKey, targetKey uint32, query, target []int, kmerWidth int, isIdentical bool) (Result, bool) {
	w.targetIter.Reset(target)
	w.anchors = MatchSeeds(w.lookup, w.targetIter, w.anchors[:0])
	if len(w.anchors) == 0 {
		return Result{}, false
	}
	w.stretches = ExtractStretches(w.anchors, kmerWidth, w.stretches[:0])
	if len(w.stretches) == 0 {
		return Result{}, false
	}
	chain := Chain(w.stretches, w.dpRow)
	Bridge(chain, query, target, w.subMat, w.forward)
	return Score(chain, queryKey, targetKey, query, target, w.queryLen, len(target), w.subMat, w.ev, w.opts, isIdentical)
}
