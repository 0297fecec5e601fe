package alignbykmer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fanhuan/MMseqs2/coverage"
	"github.com/fanhuan/MMseqs2/evalue"
	"github.com/fanhuan/MMseqs2/kmerutil"
	"github.com/fanhuan/MMseqs2/submat"
)

func newTestWorker(t *testing.T, k int) (*Worker, *submat.Matrix) {
	t.Helper()
	mat := submat.NewAminoAcidMatrix()
	idx, err := kmerutil.NewIndexer(mat.AlphabetSize, k)
	require.NoError(t, err)
	ev := evalue.NewComputation(1_000_000, mat.Lambda, mat.K, 11, 1)
	opts := FilterOptions{
		GapOpen: 11, GapExtend: 1,
		CovMode: coverage.ModeQueryAndTarget, CovThr: 0.7,
		SeqIDThr: 0.5, EvalThr: 1000,
	}
	return NewWorker(idx, nil, mat.SubMatrix, ev, opts, 256), mat
}

func codesOf(mat *submat.Matrix, s string) []int {
	out := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = mat.Encode(s[i])
	}
	return out
}

func TestWorkerAlignsIdenticalSequences(t *testing.T) {
	w, mat := newTestWorker(t, 4)
	seq := codesOf(mat, "MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQAPILSRVGDGTQDNLSG")

	w.IndexQuery(seq)
	res, pass := w.AlignTarget(1, 2, seq, seq, w.KmerWidth(), false)
	w.ResetQueryLookup(seq)

	require.True(t, pass)
	require.Equal(t, 1.0, res.SeqID)
	require.Equal(t, 0, res.QStart)
	require.Equal(t, len(seq), res.QEnd)
}

func TestWorkerRejectsUnrelatedSequences(t *testing.T) {
	w, mat := newTestWorker(t, 4)
	query := codesOf(mat, "MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQAPILSRVGDGTQDNLSG")
	target := codesOf(mat, "WWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWWW")

	w.IndexQuery(query)
	_, pass := w.AlignTarget(1, 2, query, target, w.KmerWidth(), false)
	w.ResetQueryLookup(query)

	require.False(t, pass)
}

func TestWorkerHandlesInternalInsertion(t *testing.T) {
	w, mat := newTestWorker(t, 4)
	query := codesOf(mat, "MKTAYIAKQRQISFVKSHFSRQLEERLGLIEVQAPILSRVGDGTQDNLSG")
	// Same sequence with a short inserted run in the middle.
	target := codesOf(mat, "MKTAYIAKQRQISFVKSHFSRQLWWWWEERLGLIEVQAPILSRVGDGTQDNLSG")

	w.IndexQuery(query)
	res, pass := w.AlignTarget(1, 2, query, target, w.KmerWidth(), false)
	w.ResetQueryLookup(query)

	// The insertion leaves two stretches that touch on the query axis (the
	// first ends at 23, the second starts at 23). Chain requires a strict
	// gap, so only the longer second stretch is aligned: it is identical
	// residue for residue, but covers 27/50 of the query, below CovThr 0.7.
	require.False(t, pass)
	require.Greater(t, res.SeqID, 0.7)
}

func TestWorkerIdentityHitAlwaysIncluded(t *testing.T) {
	mat := submat.NewAminoAcidMatrix()
	idx, err := kmerutil.NewIndexer(mat.AlphabetSize, 4)
	require.NoError(t, err)
	ev := evalue.NewComputation(1_000_000, mat.Lambda, mat.K, 11, 1)
	opts := FilterOptions{
		GapOpen: 11, GapExtend: 1,
		CovMode: coverage.ModeQueryAndTarget, CovThr: 0.99,
		SeqIDThr: 0.99, EvalThr: 0.00001,
		IncludeIdentity: true,
	}
	w := NewWorker(idx, nil, mat.SubMatrix, ev, opts, 256)
	seq := codesOf(mat, "MKTAYIAKQR")

	w.IndexQuery(seq)
	res, pass := w.AlignTarget(5, 5, seq, seq, w.KmerWidth(), true)
	w.ResetQueryLookup(seq)

	require.True(t, pass)
	require.True(t, res.Identical)
}
