// Package config parses and validates the alignbykmer command-line
// options, following the flag.*Var-into-a-struct convention used by
// cmd/bio-fusion/main.go.
package config

import (
	"flag"

	"github.com/grailbio/base/errors"

	"github.com/fanhuan/MMseqs2/coverage"
)

// Opts holds every alignbykmer tunable (spec.md §6's "Runtime
// parameters").
type Opts struct {
	QueryDB           string
	TargetDB          string
	PrefilterDB       string
	OutputDB          string
	Threads           int
	K                 int
	AlphabetSize      int
	MaxSeqLen         int
	SpacedKmer        bool
	SpacedKmerPattern string
	Nucleotide        bool
	MatchScore        int
	MismatchScore     int
	GapOpen           int
	GapExtend         int
	CovMode           int
	CovThr            float64
	MinSeqID          float64
	EvalThr           float64
	IncludeIdentity   bool
	FlushWindow       int
}

// Default returns the option set's defaults, matching MMseqs2's
// alignbykmer defaults where spec.md documents them.
func Default() *Opts {
	return &Opts{
		Threads:          1,
		K:                4,
		AlphabetSize:     21,
		MaxSeqLen:        65535,
		MatchScore:       1,
		MismatchScore:    0,
		GapOpen:          11,
		GapExtend:        1,
		CovMode:          0,
		CovThr:           0.8,
		MinSeqID:         0.0,
		EvalThr:          1000.0,
		IncludeIdentity:  false,
		FlushWindow:      100000,
	}
}

// RegisterFlags binds o's fields to flag.CommandLine, using o's current
// values as defaults (call Default() first to seed conventional
// defaults). The four database paths are positional arguments, not
// flags, and must be set by the caller (e.g. from flag.Args()) after
// flag.Parse() returns.
func (o *Opts) RegisterFlags() {
	flag.IntVar(&o.Threads, "threads", o.Threads, "Number of worker goroutines.")
	flag.IntVar(&o.K, "k", o.K, "K-mer length.")
	flag.IntVar(&o.AlphabetSize, "alphabet-size", o.AlphabetSize, "Reduced alphabet size (<=21 for amino acids, <=5 for nucleotides; equal to the full alphabet size disables reduction).")
	flag.IntVar(&o.MaxSeqLen, "max-seq-len", o.MaxSeqLen, "Maximum sequence length.")
	flag.BoolVar(&o.SpacedKmer, "spaced-kmer", o.SpacedKmer, "Use a spaced k-mer pattern instead of a contiguous one.")
	flag.StringVar(&o.SpacedKmerPattern, "spaced-kmer-pattern", o.SpacedKmerPattern, "Explicit spaced k-mer pattern (e.g. \"1101011\"); required by --spaced-kmer, and used whenever set.")
	flag.BoolVar(&o.Nucleotide, "nucleotide", o.Nucleotide, "Treat sequences as nucleotide instead of amino acid.")
	flag.IntVar(&o.MatchScore, "match-score", o.MatchScore, "Nucleotide match score (nucleotide mode only).")
	flag.IntVar(&o.MismatchScore, "mismatch-score", o.MismatchScore, "Nucleotide mismatch score (nucleotide mode only).")
	flag.IntVar(&o.GapOpen, "gap-open", o.GapOpen, "Gap open penalty.")
	flag.IntVar(&o.GapExtend, "gap-extend", o.GapExtend, "Gap extend penalty.")
	flag.IntVar(&o.CovMode, "cov-mode", o.CovMode, "Coverage mode: 0=query-and-target, 1=target, 2=query, 3=length-ratio.")
	flag.Float64Var(&o.CovThr, "cov-thr", o.CovThr, "Minimum coverage threshold.")
	flag.Float64Var(&o.MinSeqID, "min-seq-id", o.MinSeqID, "Minimum sequence identity threshold.")
	flag.Float64Var(&o.EvalThr, "e", o.EvalThr, "Maximum E-value threshold.")
	flag.BoolVar(&o.IncludeIdentity, "include-identity", o.IncludeIdentity, "Always report self-hits (query key == target key) even if they fail the other filters.")
	flag.IntVar(&o.FlushWindow, "flush-window", o.FlushWindow, "Number of prefilter entries processed per deterministic flush window.")
}

// Validate checks the option combination for internal consistency,
// returning a wrapped error describing the first problem found.
func (o *Opts) Validate() error {
	if o.QueryDB == "" || o.TargetDB == "" || o.PrefilterDB == "" || o.OutputDB == "" {
		return errors.E("config: the queryDB, resultDB, targetDB and outputDB positional arguments are all required")
	}
	if o.K <= 0 {
		return errors.E("config: --k must be positive", o.K)
	}
	maxAlphabet := 21
	if o.Nucleotide {
		maxAlphabet = 5
	}
	if o.AlphabetSize <= 0 || o.AlphabetSize > maxAlphabet {
		return errors.E("config: --alphabet-size out of range for this sequence type", o.AlphabetSize, maxAlphabet)
	}
	if o.MaxSeqLen <= 0 || o.MaxSeqLen > 65535 {
		return errors.E("config: --max-seq-len must be in (0, 65535]", o.MaxSeqLen)
	}
	if o.SpacedKmer && o.SpacedKmerPattern == "" {
		return errors.E("config: --spaced-kmer requires an explicit --spaced-kmer-pattern")
	}
	if o.SpacedKmerPattern != "" {
		weight := 0
		for _, ch := range o.SpacedKmerPattern {
			if ch == '1' {
				weight++
			}
		}
		if weight != o.K {
			return errors.E("config: --spaced-kmer-pattern must have exactly --k informative positions", o.SpacedKmerPattern, o.K)
		}
	}
	if o.CovMode < int(coverage.ModeQueryAndTarget) || o.CovMode > int(coverage.ModeLengthRatio) {
		return errors.E("config: --cov-mode must be 0..3", o.CovMode)
	}
	if o.CovThr < 0 || o.CovThr > 1 {
		return errors.E("config: --cov-thr must be in [0,1]", o.CovThr)
	}
	if o.MinSeqID < 0 || o.MinSeqID > 1 {
		return errors.E("config: --min-seq-id must be in [0,1]", o.MinSeqID)
	}
	if o.EvalThr < 0 {
		return errors.E("config: -e must be non-negative", o.EvalThr)
	}
	if o.Threads <= 0 {
		return errors.E("config: --threads must be positive", o.Threads)
	}
	if o.FlushWindow <= 0 {
		return errors.E("config: --flush-window must be positive", o.FlushWindow)
	}
	return nil
}
