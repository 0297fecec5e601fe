package alignbykmer

import (
	"bufio"
	"bytes"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"

	"github.com/fanhuan/MMseqs2/evalue"
	"github.com/fanhuan/MMseqs2/kmerutil"
	"github.com/fanhuan/MMseqs2/kvstore"
	"github.com/fanhuan/MMseqs2/submat"
)

// Config bundles everything Run needs beyond the three store handles:
// the k-mer indexer and optional spaced pattern, the substitution
// matrix, the E-value computation derived from it, the filter
// thresholds, and the parallelism/windowing parameters.
type Config struct {
	Indexer   *kmerutil.Indexer
	Pattern   kmerutil.Pattern
	KmerWidth int
	Matrix    *submat.Matrix
	Evaluer   *evalue.Computation
	Filter    FilterOptions
	MaxSeqLen int
	Threads   int
	Window    int
}

// Run drives the whole alignment pass: it walks the prefilter result
// database in deterministic flush windows, within each window fanning
// query processing out across cfg.Threads worker shards (one Worker per
// shard, statically partitioned the way pileup.go's main loop divides
// shards across jobIdx — traverse.Each's dynamic scheduling only
// matters for balancing uneven shard cost, not for result ordering,
// since kvstore.Writer commits blocks by sequence number regardless of
// which shard finished first), and flushing each window to w before
// starting the next.
//
// Determinism (spec.md §8 property 8) follows from: (1) each query's
// alignment set depends only on its own query/target data, never on
// other queries' processing order; (2) kvstore.Writer.Flush commits
// blocks in ascending sequence-number order regardless of goroutine
// completion order.
func Run(queryR, targetR, prefilterR *kvstore.Reader, w *kvstore.Writer, cfg Config) error {
	total := prefilterR.Size()
	sameDB := queryR == targetR

	for winStart := 0; winStart < total; winStart += cfg.Window {
		winEnd := winStart + cfg.Window
		if winEnd > total {
			winEnd = total
		}
		winSize := winEnd - winStart

		nShards := cfg.Threads
		if nShards > winSize {
			nShards = winSize
		}
		if nShards < 1 {
			nShards = 1
		}

		err := traverse.Each(nShards, func(shard int) error {
			worker := NewWorker(cfg.Indexer, cfg.Pattern, cfg.Matrix.SubMatrix, cfg.Evaluer, cfg.Filter, cfg.MaxSeqLen)
			shardStart := winStart + (shard*winSize)/nShards
			shardEnd := winStart + ((shard+1)*winSize)/nShards
			for qID := shardStart; qID < shardEnd; qID++ {
				if err := processQuery(queryR, targetR, prefilterR, w, worker, qID, qID-winStart, shard, sameDB, cfg.Matrix); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return errors.E(err, "alignbykmer: process window", winStart, winEnd)
		}
		if err := w.Flush(winSize); err != nil {
			return errors.E(err, "alignbykmer: flush window", winStart, winEnd)
		}
		if err := queryR.RemapData(); err != nil {
			return err
		}
		if err := targetR.RemapData(); err != nil {
			return err
		}
		log.Printf("alignbykmer: processed %d/%d queries", winEnd, total)
	}
	return nil
}

func processQuery(queryR, targetR, prefilterR *kvstore.Reader, w *kvstore.Writer, worker *Worker, qID, seq, tid int, sameDB bool, mat *submat.Matrix) error {
	queryKey := prefilterR.GetDbKey(qID)
	w.WriteStart(tid, seq)
	defer w.WriteEnd(tid, queryKey, true)

	queryInternalID, ok := queryR.GetID(queryKey)
	if !ok {
		return errors.E("alignbykmer: query key not found in query database", queryKey)
	}
	queryCodes := encode(mat, queryR.GetData(queryInternalID))
	worker.IndexQuery(queryCodes)
	defer worker.ResetQueryLookup(queryCodes)

	targetKeys, err := parseTargetKeys(prefilterR.GetData(qID))
	if err != nil {
		return err
	}
	for _, targetKey := range targetKeys {
		targetInternalID, ok := targetR.GetID(targetKey)
		if !ok {
			log.Error.Printf("alignbykmer: target key %d not found in target database; skipped", targetKey)
			continue
		}
		targetCodes := encode(mat, targetR.GetData(targetInternalID))
		isIdentical := targetKey == queryKey && (sameDB || worker.opts.IncludeIdentity)
		res, pass := worker.AlignTarget(queryKey, targetKey, queryCodes, targetCodes, worker.KmerWidth(), isIdentical)
		if !pass {
			continue
		}
		line := formatResult(res)
		w.WriteAdd(tid, line)
	}
	return nil
}

func encode(mat *submat.Matrix, raw []byte) []int {
	raw = bytes.TrimRight(raw, "\x00\n")
	codes := make([]int, len(raw))
	for i, b := range raw {
		codes[i] = mat.Encode(b)
	}
	return codes
}

// parseTargetKeys decodes one prefilter-result record: one target db key
// per line, matching the simple per-query key-list format the
// prefilter stage writes via kvstore.Writer.
func parseTargetKeys(data []byte) ([]uint32, error) {
	var keys []uint32
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		v, err := strconv.ParseUint(string(line), 10, 32)
		if err != nil {
			return nil, errors.E(err, "alignbykmer: malformed prefilter record")
		}
		keys = append(keys, uint32(v))
	}
	return keys, nil
}

// formatResult serializes one result record as a tab-separated line in
// spec.md §6's wire order: targetKey, bitScore, qCov, tCov, seqId,
// eValue, alnLen, qStart, qEnd, qLen, tStart, tEnd, tLen, cigar.
func formatResult(r Result) []byte {
	var buf bytes.Buffer
	buf.WriteString(strconv.FormatUint(uint64(r.TargetKey), 10))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.BitScore))
	buf.WriteByte('\t')
	buf.WriteString(strconv.FormatFloat(r.QCov, 'f', 3, 64))
	buf.WriteByte('\t')
	buf.WriteString(strconv.FormatFloat(r.TCov, 'f', 3, 64))
	buf.WriteByte('\t')
	buf.WriteString(strconv.FormatFloat(r.SeqID, 'f', 3, 64))
	buf.WriteByte('\t')
	buf.WriteString(strconv.FormatFloat(r.EValue, 'e', 3, 64))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.AlnLen))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.QStart))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.QEnd))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.QLen))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.TStart))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.TEnd))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.TLen))
	buf.WriteByte('\t')
	buf.WriteString(r.Cigar)
	buf.WriteByte('\n')
	return buf.Bytes()
}
