package alignbykmer

// Bridge resolves the boundary between every consecutive pair of
// stretches in chain (chain[0] latest .. chain[len-1] earliest), then
// extends the two outer boundaries of the whole chain, using query and
// target integer-coded residues and a substitution matrix.
//
// forwardScratch is reused scratch at least len(query)+1 long; callers
// size it once per worker and reuse it across calls.
//
// Traversal order matches the reference implementation: consecutive
// pairs are visited from the highest chain index down to 1, so the
// predecessor P = chain[stretch] (earlier in query coordinates) is
// resolved against the successor S = chain[stretch-1] (later), and
// every pair's boundary move is committed before the next pair (earlier
// in the chain) is considered — each bridge sees the previous bridge's
// already-updated boundary.
func Bridge(chain []Stretch, query, target []int, subMat [][]int, forwardScratch []int) {
	for s := len(chain) - 1; s > 0; s-- {
		bridgePair(&chain[s], &chain[s-1], query, target, subMat, forwardScratch)
	}
	extendTerminals(chain, query, target, subMat)
}

func bridgePair(p, succ *Stretch, query, target []int, subMat [][]int, forward []int) {
	pos := 0
	score := 0
	i, j := int(p.IEnd), int(p.JEnd)
	for i < int(succ.IStart) && j < int(succ.JStart) {
		score += subMat[query[i]][target[j]]
		forward[pos] = score
		pos++
		i++
		j++
	}
	forward[pos] = 0 // sentinel

	maxScore, maxPos, maxRevPos := 0, 0, 0
	revPos := 0
	score = 0
	i, j = int(succ.IStart), int(succ.JStart)
	for i > int(p.IEnd) && j > int(p.JEnd) {
		score += subMat[query[i]][target[j]]
		if forward[pos]+score > maxScore {
			maxScore = forward[pos] + score
			maxPos = pos
			maxRevPos = revPos
		}
		revPos++
		pos--
		i--
		j--
	}

	succ.IStart -= uint16(maxRevPos)
	succ.JStart -= uint16(maxRevPos)
	p.IEnd += uint16(maxPos)
	p.JEnd += uint16(maxPos)
}

// extendTerminals extends the chain's two open ends — the root's
// (chain[last]) left boundary and the best-scoring stretch's
// (chain[0]) right boundary — sharing a single running max score
// across both directions: the left-extension pass's maxScore is not
// reset before the right-extension pass begins, only the per-step
// cumulative score is.
func extendTerminals(chain []Stretch, query, target []int, subMat [][]int) {
	root := &chain[len(chain)-1]
	best := &chain[0]

	maxScore := 0
	score := 0
	for i, j := int(root.IStart), int(root.JStart); i > -1 && j > -1; i, j = i-1, j-1 {
		score += subMat[query[i]][target[j]]
		if score > maxScore {
			maxScore = score
			root.IStart = uint16(i)
			root.JStart = uint16(j)
		}
	}

	score = 0
	for i, j := int(best.IEnd), int(best.JEnd); i < len(query) && j < len(target); i, j = i+1, j+1 {
		score += subMat[query[i]][target[j]]
		if score > maxScore {
			maxScore = score
			best.IEnd = uint16(i)
			best.JEnd = uint16(j)
		}
	}
}
