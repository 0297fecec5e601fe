package alignbykmer

import "sort"

// Stretch is a run of monotonic same-diagonal anchors, merged whatever
// the distance between them: a single ungapped diagonal segment
// [IStart,IEnd) x [JStart,JEnd) of matched k-mers (spec.md §3, "Stretche").
type Stretch struct {
	IStart, IEnd uint16
	JStart, JEnd uint16
	KmerCnt      int
}

// ExtractStretches groups anchors sharing a diagonal into stretches. It
// sorts anchors in place by (IJ, I, J), then sweeps left to right:
// an anchor whose diagonal matches neither its sorted predecessor nor
// successor is singleton on its diagonal and is discarded outright. An
// anchor sharing a diagonal with a neighbor extends the open region
// when it is monotonic with the region's last-seen anchor (i >= prev_i
// and j >= prev_j); a non-monotonic anchor on the same diagonal instead
// starts a fresh region, since the query lookup table's
// first-occurrence semantics can otherwise produce apparent backward
// jumps on a shared diagonal. A region is only ever emitted as a
// stretch if it accumulated at least two anchors (kmerCnt >= 2);
// singletons never reach the output, matching the data model's
// "kmerCnt >= 2" invariant. kmerWidth is the k-mer (or spaced-pattern)
// window width used to compute each anchor's own [I, I+kmerWidth)
// extent.
//
// The returned slice is sorted by (IStart asc, IEnd desc), the order
// Chain requires, reusing out's backing array.
func ExtractStretches(anchors []Anchor, kmerWidth int, out []Stretch) []Stretch {
	sortAnchors(anchors)
	out = out[:0]
	w := uint16(kmerWidth)
	n := len(anchors)

	var regionMinI, regionMaxI, regionMinJ, regionMaxJ uint16
	var prevI, prevJ uint16
	var curDiag uint16
	kmerCnt := 0
	open := false

	emit := func() {
		if open && kmerCnt >= 2 {
			out = append(out, Stretch{
				IStart:  regionMinI,
				IEnd:    regionMaxI + w,
				JStart:  regionMinJ,
				JEnd:    regionMaxJ + w,
				KmerCnt: kmerCnt,
			})
		}
		open = false
		prevI, prevJ = 0, 0
	}

	for i, a := range anchors {
		hasPrevSame := i > 0 && anchors[i-1].IJ == a.IJ
		hasNextSame := i < n-1 && anchors[i+1].IJ == a.IJ
		if !hasPrevSame && !hasNextSame {
			continue // singleton on its diagonal
		}

		if open && a.IJ == curDiag && a.I >= prevI && a.J >= prevJ {
			if a.I > regionMaxI {
				regionMaxI = a.I
			}
			if a.J > regionMaxJ {
				regionMaxJ = a.J
			}
			kmerCnt++
		} else {
			emit()
			curDiag = a.IJ
			regionMinI, regionMaxI = a.I, a.I
			regionMinJ, regionMaxJ = a.J, a.J
			kmerCnt = 1
			open = true
		}
		prevI, prevJ = a.I, a.J

		if !hasNextSame {
			emit()
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].IStart != out[j].IStart {
			return out[i].IStart < out[j].IStart
		}
		return out[i].IEnd > out[j].IEnd
	})
	return out
}
