// Command alignbykmer aligns a query sequence database against a target
// sequence database under a prefilter result database, writing an
// alignment result database, using k-mer anchor chaining.
package main

import (
	"flag"
	"runtime"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/fanhuan/MMseqs2/alignbykmer"
	"github.com/fanhuan/MMseqs2/config"
	"github.com/fanhuan/MMseqs2/coverage"
	"github.com/fanhuan/MMseqs2/evalue"
	"github.com/fanhuan/MMseqs2/kmerutil"
	"github.com/fanhuan/MMseqs2/kvstore"
	"github.com/fanhuan/MMseqs2/submat"
)

func main() {
	opts := config.Default()
	opts.RegisterFlags()
	cleanup := grail.Init()
	defer cleanup()

	if flag.NArg() != 4 {
		log.Fatal("alignbykmer: usage: alignbykmer [flags] queryDB resultDB targetDB outputDB")
	}
	opts.QueryDB = flag.Arg(0)
	opts.PrefilterDB = flag.Arg(1)
	opts.TargetDB = flag.Arg(2)
	opts.OutputDB = flag.Arg(3)

	if err := opts.Validate(); err != nil {
		log.Fatal(err)
	}
	runtime.GOMAXPROCS(opts.Threads)

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts *config.Opts) error {
	log.Printf("Query file: %s", opts.QueryDB)
	log.Printf("Prefilter file: %s", opts.PrefilterDB)
	log.Printf("Target file: %s", opts.TargetDB)
	log.Printf("Output file: %s", opts.OutputDB)

	queryR, err := kvstore.Open(opts.QueryDB, kvstore.Random, dbType(opts))
	if err != nil {
		return err
	}
	defer queryR.Close() // nolint: errcheck

	var targetR *kvstore.Reader
	if opts.TargetDB == opts.QueryDB {
		targetR = queryR
	} else {
		targetR, err = kvstore.Open(opts.TargetDB, kvstore.Random, dbType(opts))
		if err != nil {
			return err
		}
		defer targetR.Close() // nolint: errcheck
	}

	prefilterR, err := kvstore.Open(opts.PrefilterDB, kvstore.Linear, dbType(opts))
	if err != nil {
		return err
	}
	defer prefilterR.Close() // nolint: errcheck

	w, err := kvstore.Create(opts.OutputDB, opts.Threads)
	if err != nil {
		return err
	}
	defer w.Close() // nolint: errcheck

	mat, err := buildMatrix(opts)
	if err != nil {
		return err
	}
	idx, err := kmerutil.NewIndexer(mat.AlphabetSize, opts.K)
	if err != nil {
		return err
	}
	pattern := selectPattern(opts)

	ev := evalue.NewComputation(int(targetR.DataSize()), mat.Lambda, mat.K, opts.GapOpen, opts.GapExtend)

	cfg := alignbykmer.Config{
		Indexer:   idx,
		Pattern:   pattern,
		KmerWidth: pattern.Width(opts.K),
		Matrix:    mat,
		Evaluer:   ev,
		MaxSeqLen: opts.MaxSeqLen,
		Threads:   opts.Threads,
		Window:    opts.FlushWindow,
		Filter: alignbykmer.FilterOptions{
			GapOpen:         opts.GapOpen,
			GapExtend:       opts.GapExtend,
			CovMode:         coverage.Mode(opts.CovMode),
			CovThr:          opts.CovThr,
			SeqIDThr:        opts.MinSeqID,
			EvalThr:         opts.EvalThr,
			IncludeIdentity: opts.IncludeIdentity,
		},
	}

	log.Printf("alignbykmer: %d query records, %d target records, k=%d alphabet=%d threads=%d",
		queryR.Size(), targetR.Size(), opts.K, mat.AlphabetSize, opts.Threads)
	return alignbykmer.Run(queryR, targetR, prefilterR, w, cfg)
}

func dbType(opts *config.Opts) kvstore.DbType {
	if opts.Nucleotide {
		return kvstore.Nucleotide
	}
	return kvstore.Amino
}

func buildMatrix(opts *config.Opts) (*submat.Matrix, error) {
	var full *submat.Matrix
	if opts.Nucleotide {
		full = submat.NewNucleotideMatrix(opts.MatchScore, opts.MismatchScore)
	} else {
		full = submat.NewAminoAcidMatrix()
	}
	if opts.AlphabetSize >= full.AlphabetSize {
		return full, nil
	}
	return submat.Reduce(full, opts.AlphabetSize)
}

func selectPattern(opts *config.Opts) kmerutil.Pattern {
	if opts.SpacedKmerPattern != "" {
		return kmerutil.ParsePattern(opts.SpacedKmerPattern)
	}
	return nil
}
