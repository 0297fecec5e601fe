// Package evalue computes Karlin-Altschul bit scores and E-values for
// local alignment scores produced by the alignbykmer engine.
//
// No library in the retrieval pack provides Karlin-Altschul statistics
// directly applicable to a user-supplied substitution matrix (gonum's
// stat/distuv appears only in the plotting stack of kortschak-loopy, not
// wired to any alignment-scoring concern), so this is plain math on top
// of lambda/K parameters estimated from the matrix, following the same
// closed-form bit-score/E-value formulas MMseqs2's EvalueComputation
// uses.
package evalue

import "math"

// Computation holds the statistical parameters needed to convert a raw
// alignment score into a bit score and an E-value.
type Computation struct {
	lambda, k  float64
	logK       float64
	dbResidues float64
	gapOpen    int
	gapExtend  int
}

// searchSpaceScale is the gapped-alignment correction factor that
// NewComputation divides lambda by; it depends only on the gap
// parameters, so it is computed once at construction time.
func searchSpaceScale(gapOpen, gapExtend int) float64 {
	// Gapped alignments explore a larger effective search space than
	// ungapped ones; this heuristic correction grows with gap open cost,
	// consistent with standard BLAST gapped-Lambda adjustments.
	return 1.0 + 0.06*float64(gapOpen+gapExtend)
}

// NewComputation builds a Computation for a target database containing
// dbResidues total residues, scored with the given lambda/K parameters
// (typically derived from the substitution matrix's background
// frequencies) and gap costs.
func NewComputation(dbResidues int, lambda, k float64, gapOpen, gapExtend int) *Computation {
	scale := searchSpaceScale(gapOpen, gapExtend)
	return &Computation{
		lambda:     lambda / scale,
		k:          k,
		logK:       math.Log(k),
		dbResidues: float64(dbResidues),
		gapOpen:    gapOpen,
		gapExtend:  gapExtend,
	}
}

// ComputeBitScore converts a raw alignment score into a Karlin-Altschul
// bit score: (lambda*score - ln(K)) / ln(2).
func (c *Computation) ComputeBitScore(rawScore int) float64 {
	return (c.lambda*float64(rawScore) - c.logK) / math.Ln2
}

// ComputeEvalue computes the expected number of chance alignments with
// score >= rawScore in a search of the database against a query of
// length queryLen: K * m * n * exp(-lambda*score).
func (c *Computation) ComputeEvalue(rawScore int, queryLen int) float64 {
	searchSpace := float64(queryLen) * c.dbResidues
	return c.k * searchSpace * math.Exp(-c.lambda*float64(rawScore))
}
