package alignbykmer

import (
	"math"

	"github.com/fanhuan/MMseqs2/coverage"
	"github.com/fanhuan/MMseqs2/evalue"
)

// seqIDEpsilon mirrors C++'s std::numeric_limits<float>::epsilon(), the
// tolerance the reference implementation allows when comparing computed
// sequence identity against the --min-seq-id threshold.
const seqIDEpsilon = 1.1920929e-7

// FilterOptions gathers the acceptance thresholds scoring is judged
// against (spec.md §5's filter step).
type FilterOptions struct {
	GapOpen, GapExtend int
	CovMode            coverage.Mode
	CovThr             float64
	SeqIDThr           float64
	EvalThr            float64
	IncludeIdentity    bool
}

// Score walks the resolved chain (latest-to-earliest, as Chain and
// Bridge leave it) to build the CIGAR string and raw alignment score,
// then computes coverage, sequence identity, bit score and E-value, and
// reports whether the alignment passes opts's thresholds.
//
// isIdentical is supplied by the caller, already folding in both halves
// of spec.md §4.6's isIdentity rule (queryKey == targetKey and either
// includeIdentity is set or the search is same-database): whenever true,
// the record is emitted unconditionally, bypassing the coverage/
// identity/E-value thresholds entirely.
func Score(chain []Stretch, queryKey, targetKey uint32, query, target []int, qLen, tLen int,
	subMat [][]int, ev *evalue.Computation, opts FilterOptions, isIdentical bool) (Result, bool) {

	cigar := make([]byte, 0, qLen+tLen)
	ids, rawScore := 0, 0

	for s := len(chain) - 1; s >= 0; s-- {
		cur := chain[s]
		for i, j := int(cur.IStart), int(cur.JStart); i < int(cur.IEnd); i, j = i+1, j+1 {
			cigar = append(cigar, 'M')
			if query[i] == target[j] {
				ids++
			}
			rawScore += subMat[query[i]][target[j]]
		}
		if s > 0 {
			rawScore -= opts.GapOpen
			prev := chain[s-1]
			if prev.IStart == cur.IEnd {
				for pos := cur.JEnd; pos < prev.JStart; pos++ {
					cigar = append(cigar, 'I')
					rawScore -= opts.GapExtend
				}
			} else {
				for pos := cur.IEnd; pos < prev.IStart; pos++ {
					cigar = append(cigar, 'D')
					rawScore -= opts.GapExtend
				}
			}
		}
	}

	root := chain[len(chain)-1]
	best := chain[0]

	var seqID float64
	if len(cigar) > 0 {
		seqID = float64(ids) / float64(len(cigar))
	}
	qCov := coverage.Compute(int(root.IStart), int(best.IEnd), qLen)
	tCov := coverage.Compute(int(root.JStart), int(best.JEnd), tLen)
	bitScore := int(math.Round(ev.ComputeBitScore(rawScore)))
	eValue := ev.ComputeEvalue(rawScore, qLen)

	res := Result{
		QueryKey:  queryKey,
		TargetKey: targetKey,
		QStart:    int(root.IStart),
		QEnd:      int(best.IEnd),
		TStart:    int(root.JStart),
		TEnd:      int(best.JEnd),
		QLen:      qLen,
		TLen:      tLen,
		Score:     rawScore,
		BitScore:  bitScore,
		AlnLen:    len(cigar),
		EValue:    eValue,
		SeqID:     seqID,
		QCov:      qCov,
		TCov:      tCov,
		Cigar:     string(cigar),
		Identical: isIdentical,
	}

	if isIdentical {
		return res, true
	}
	// Length-ratio mode passes the shorter-over-longer sequence length
	// ratio in place of qCov.
	covQ := qCov
	if opts.CovMode == coverage.ModeLengthRatio && qLen > 0 && tLen > 0 {
		short, long := qLen, tLen
		if short > long {
			short, long = long, short
		}
		covQ = float64(short) / float64(long)
	}
	pass := coverage.HasCoverage(opts.CovThr, opts.CovMode, covQ, tCov) &&
		seqID >= opts.SeqIDThr-seqIDEpsilon &&
		eValue <= opts.EvalThr
	return res, pass
}
