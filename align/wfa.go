// Copyright 2026 the hapalign authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package align

import (
	"math"
	"sort"

	"github.com/graphgenomics/hapalign/gbwt"
	"github.com/graphgenomics/hapalign/graph"
	"github.com/graphgenomics/hapalign/internal/dna"
)

// WFAExtender aligns short sequences between fixed graph positions with a
// haplotype-constrained variant of wavefront alignment.  The endpoints are
// assumed correct: an alignment never includes the endpoint bases and is
// only charged for the gap between them.  An extender is immutable after
// construction and safe for concurrent use.
type WFAExtender struct {
	graph   *graph.Graph
	scoring Scoring
	mask    *ReadMasker
}

// NewWFAExtender returns an extender over g with the given scoring
// parameters.
func NewWFAExtender(g *graph.Graph, scoring Scoring) *WFAExtender {
	return &WFAExtender{
		graph:   g,
		scoring: scoring,
		mask:    NewReadMasker("ACGT"),
	}
}

// Wavefront matrixes.
const (
	wfMatches    = 0
	wfInsertions = 1 // read bases absent from the graph
	wfDeletions  = 2 // graph bases absent from the read
)

// matchPos is a position in an alignment between the read and the tree of
// haplotype search states.  The path lists tree offsets from a leaf to the
// relevant node, with the relevant node last.
type matchPos struct {
	seqOffset  int
	nodeOffset int
	path       []uint32
}

func (p *matchPos) empty() bool      { return len(p.path) == 0 }
func (p *matchPos) atLastNode() bool { return len(p.path) == 1 }
func (p *matchPos) node() uint32     { return p.path[len(p.path)-1] }
func (p *matchPos) pop()             { p.path = p.path[:len(p.path)-1] }

// posLess orders positions by sequence offset, with empty positions before
// everything, including each other.
func posLess(a, b *matchPos) bool {
	if a.empty() {
		return true
	}
	if b.empty() {
		return false
	}
	return a.seqOffset < b.seqOffset
}

// posMax returns the non-empty position further on the read, preferring b
// on ties.
func posMax(a, b matchPos) matchPos {
	if a.empty() {
		return b
	}
	if b.empty() {
		return a
	}
	if a.seqOffset > b.seqOffset {
		return a
	}
	return b
}

// wfaPoint is a point of a wavefront: the furthest position reached on a
// diagonal with a score.
type wfaPoint struct {
	score      int
	diagonal   int // seqOffset - target offset
	seqOffset  int
	nodeOffset int
}

// targetOffset returns the offset in the target.
func (p wfaPoint) targetOffset() int {
	return p.seqOffset - p.diagonal
}

// alignmentScore converts the wavefront penalty into the four-parameter
// alignment score.
func (p wfaPoint) alignmentScore(scoring Scoring) int32 {
	return int32((int(scoring.Match)*(p.seqOffset+p.targetOffset()) - p.score) / 2)
}

func (p wfaPoint) pos(path []uint32) matchPos {
	return matchPos{seqOffset: p.seqOffset, nodeOffset: p.nodeOffset, path: path}
}

// pointBefore orders points by score, then diagonal.
func pointBefore(a, b wfaPoint) bool {
	return a.score < b.score || (a.score == b.score && a.diagonal < b.diagonal)
}

// wfaNode is one node of the tree of haplotype search states.
type wfaNode struct {
	state gbwt.SearchState

	// Offsets in the node arena of the tree.
	parent   uint32
	children []uint32

	// All haplotypes end here.
	deadEnd bool

	// Points of each wavefront, sorted by score, diagonal.
	wavefronts [3][]wfaPoint
}

func (n *wfaNode) isLeaf() bool   { return len(n.children) == 0 || n.deadEnd }
func (n *wfaNode) expanded() bool { return len(n.children) > 0 || n.deadEnd }

func (n *wfaNode) sameNode(pos Position) bool {
	return n.state.Node.ID() == pos.ID && n.state.Node.IsReverse() == pos.IsReverse
}

func (n *wfaNode) length(g *graph.Graph) int {
	return g.Length(graph.NodeToHandle(n.state.Node))
}

// findPos returns the position for the given score and diagonal with the
// given path, or an empty position if it does not exist.
func (n *wfaNode) findPos(matrix int, score, diagonal int, path []uint32) matchPos {
	points := n.wavefronts[matrix]
	i := sort.Search(len(points), func(i int) bool {
		return !pointBefore(points[i], wfaPoint{score: score, diagonal: diagonal})
	})
	if i >= len(points) || points[i].score != score || points[i].diagonal != diagonal {
		return matchPos{}
	}
	return points[i].pos(path)
}

// update stores the furthest position reached on a diagonal with a score,
// replacing an existing point for the same diagonal and score.
func (n *wfaNode) update(matrix int, score, diagonal, seqOffset, nodeOffset int) {
	key := wfaPoint{score, diagonal, seqOffset, nodeOffset}
	points := n.wavefronts[matrix]
	i := sort.Search(len(points), func(i int) bool {
		return !pointBefore(points[i], key)
	})
	if i >= len(points) || points[i].score != score || points[i].diagonal != diagonal {
		points = append(points, wfaPoint{})
		copy(points[i+1:], points[i:])
		points[i] = key
		n.wavefronts[matrix] = points
	} else {
		points[i] = key
	}
}

// matchForward advances pos to the first non-match on this node.
func (n *wfaNode) matchForward(sequence []byte, g *graph.Graph, pos *matchPos) {
	target := g.SequenceView(graph.NodeToHandle(n.state.Node))
	for pos.seqOffset < len(sequence) && pos.nodeOffset < len(target) &&
		sequence[pos.seqOffset] == target[pos.nodeOffset] {
		pos.seqOffset++
		pos.nodeOffset++
	}
}

// diagonalRange is a closed range of diagonals.
type diagonalRange struct {
	first, second int
}

// wfaTree is the search tree of one wavefront alignment: an arena of
// haplotype search states rooted at the starting position, each carrying
// its own wavefronts.
type wfaTree struct {
	graph    *graph.Graph
	sequence []byte

	nodes []wfaNode

	// Best alignment found so far.  When the destination was reached, the
	// score includes the possible insertion at the end but the point itself
	// does not.
	candidatePoint wfaPoint
	candidateNode  uint32

	// Wavefront penalty parameters derived from the scoring parameters.
	mismatch, gapOpen, gapExtend int

	// Stop if no alignment has been found with this score or less.
	scoreBound int

	// The closed range of diagonals reached with each score, and overall.
	diagonals    []diagonalRange
	maxDiagonals diagonalRange
}

func newWFATree(g *graph.Graph, sequence []byte, root gbwt.SearchState, from Position, scoring Scoring) *wfaTree {
	t := &wfaTree{
		graph:          g,
		sequence:       sequence,
		nodes:          []wfaNode{{state: root}},
		candidatePoint: wfaPoint{score: math.MaxInt32},
		mismatch:       2 * int(scoring.Match+scoring.Mismatch),
		gapOpen:        2 * int(scoring.GapOpen),
		gapExtend:      2*int(scoring.GapExtend) + int(scoring.Match),
		diagonals:      []diagonalRange{{0, 0}},
	}

	// The alignment starts after the base the root position points to.
	t.nodes[0].update(wfMatches, 0, 0, 0, from.Offset+1)

	// A reasonable upper bound for the number of edits.
	maxMismatches := int(0.03*float64(len(sequence))) + 1
	maxGaps := int(0.05*float64(len(sequence))) + 1
	maxGapLength := int(0.1*float64(len(sequence))) + 1
	t.scoreBound = maxMismatches*t.mismatch + maxGaps*t.gapOpen + maxGapLength*t.gapExtend

	return t
}

func (t *wfaTree) size() int               { return len(t.nodes) }
func isRoot(node uint32) bool              { return node == 0 }
func (t *wfaTree) parent(node uint32) uint32 { return t.nodes[node].parent }

// gapPenalty assumes length > 0.
func (t *wfaTree) gapPenalty(length int) int {
	return t.gapOpen + length*t.gapExtend
}

func noPos(pos Position) bool { return pos.Empty() }

// extend advances every furthest-reaching match position over runs of exact
// matches.  When the end of a node is reached, matching continues at the
// start of the next nodes even if no characters are used in them.
func (t *wfaTree) extend(score int, to Position) {
	for diagonal := t.maxDiagonals.first; diagonal <= t.maxDiagonals.second; diagonal++ {
		t.extendOver(score, diagonal, to, t.getLeaves())
	}
}

// extendOver runs extend on one diagonal for the haplotypes below the given
// leaves.
func (t *wfaTree) extendOver(score, diagonal int, to Position, leaves []uint32) {
	for _, leaf := range leaves {
		pos := t.findMatrixPos(wfMatches, leaf, score, diagonal, false, false)
		if pos.empty() {
			continue
		}
		for {
			n := pos.node()
			mayReachTo := t.nodes[n].sameNode(to) && pos.nodeOffset <= to.Offset
			t.nodes[n].matchForward(t.sequence, t.graph, &pos)
			// A match that covers the end position may extend past it.
			// Alternatively there is no end position and the entire read
			// was aligned.  Either way the rest of the read becomes a
			// candidate insertion.
			if (mayReachTo && pos.nodeOffset > to.Offset) || (noPos(to) && pos.seqOffset >= len(t.sequence)) {
				overshoot := 0
				if !noPos(to) {
					overshoot = pos.nodeOffset - to.Offset - 1
				}
				gapLength := (len(t.sequence) - pos.seqOffset) + overshoot
				newScore := score
				if gapLength > 0 {
					newScore += t.gapPenalty(gapLength)
				}
				if newScore < t.candidatePoint.score {
					t.candidatePoint = wfaPoint{newScore, diagonal, pos.seqOffset - overshoot, to.Offset + 1}
					t.candidateNode = n
				}
			}
			t.nodes[n].update(wfMatches, score, diagonal, pos.seqOffset, pos.nodeOffset)
			if pos.nodeOffset < t.nodes[n].length(t.graph) {
				break
			}
			if pos.atLastNode() {
				if t.propagate(&pos, score, diagonal, wfMatches) {
					// Copy the children: the slice could move if another
					// node expands its own children.
					newLeaves := append([]uint32(nil), t.nodes[leaf].children...)
					t.extendOver(score, diagonal, to, newLeaves)
				}
				break
			}
			pos.pop()
			pos.nodeOffset = 0
		}
	}
}

// next computes the wavefronts for the given score from the wavefronts of
// lower scores.
func (t *wfaTree) next(score int, to Position) {
	rng := t.getDiagonals(score)
	for diagonal := rng.first; diagonal <= rng.second; diagonal++ {
		// The same update may come from multiple leaves.
		for _, leaf := range t.getLeaves() {
			ins, _ := t.insPredecessor(leaf, score, diagonal)
			if !ins.empty() {
				ins.seqOffset++
				t.nodes[ins.node()].update(wfInsertions, score, diagonal, ins.seqOffset, ins.nodeOffset)
			}

			del, _ := t.delPredecessor(leaf, score, diagonal)
			if !del.empty() {
				del.nodeOffset++
				t.nodes[del.node()].update(wfDeletions, score, diagonal, del.seqOffset, del.nodeOffset)
				t.propagate(&del, score, diagonal, wfDeletions)
			}

			subst := t.findMatrixPos(wfMatches, leaf, score-t.mismatch, diagonal, true, true)
			if !subst.empty() {
				subst.seqOffset++
				subst.nodeOffset++
			}
			subst = posMax(subst, ins)
			subst = posMax(subst, del)
			if !subst.empty() {
				// Just past the end position, the rest of the read is a
				// candidate insertion.  If subst came from an insertion, a
				// better candidate was already seen at the preceding match.
				if t.nodes[subst.node()].sameNode(to) && subst.nodeOffset == to.Offset+1 {
					gapLength := len(t.sequence) - subst.seqOffset
					newScore := score
					if gapLength > 0 {
						newScore += t.gapPenalty(gapLength)
					}
					if newScore < t.candidatePoint.score {
						t.candidatePoint = wfaPoint{newScore, diagonal, subst.seqOffset, subst.nodeOffset}
						t.candidateNode = subst.node()
					}
				}
				t.nodes[subst.node()].update(wfMatches, score, diagonal, subst.seqOffset, subst.nodeOffset)
				t.propagate(&subst, score, diagonal, wfMatches)
			}
		}
	}
}

// insPredecessor returns the furthest predecessor position for an insertion
// at (score, diagonal) on the node or its ancestors, with the matrix the
// predecessor lives in.
func (t *wfaTree) insPredecessor(node uint32, score, diagonal int) (matchPos, EditOp) {
	open := t.findMatrixPos(wfMatches, node, score-t.gapOpen-t.gapExtend, diagonal-1, true, false)
	extend := t.findMatrixPos(wfInsertions, node, score-t.gapExtend, diagonal-1, true, false)
	if posLess(&open, &extend) {
		return extend, OpInsertion
	}
	return open, OpMatch
}

// delPredecessor returns the furthest predecessor position for a deletion
// at (score, diagonal) on the node or its ancestors, with the matrix the
// predecessor lives in.
func (t *wfaTree) delPredecessor(node uint32, score, diagonal int) (matchPos, EditOp) {
	open := t.findMatrixPos(wfMatches, node, score-t.gapOpen-t.gapExtend, diagonal+1, false, true)
	extend := t.findMatrixPos(wfDeletions, node, score-t.gapExtend, diagonal+1, false, true)
	if posLess(&open, &extend) {
		return extend, OpDeletion
	}
	return open, OpMatch
}

// matchPredecessor returns the furthest predecessor position for a run of
// matches at (score, diagonal) on the node or its ancestors, with the edit
// that produced it.
func (t *wfaTree) matchPredecessor(node uint32, score, diagonal int) (matchPos, EditOp) {
	ins := t.findMatrixPos(wfInsertions, node, score, diagonal, false, false)
	del := t.findMatrixPos(wfDeletions, node, score, diagonal, false, false)
	subst := t.findMatrixPos(wfMatches, node, score-t.mismatch, diagonal, false, false)
	if !subst.empty() {
		subst.seqOffset++
		subst.nodeOffset++
	}

	if posLess(&ins, &del) {
		if posLess(&del, &subst) {
			return subst, OpMismatch
		}
		return del, OpDeletion
	}
	if posLess(&ins, &subst) {
		return subst, OpMismatch
	}
	return ins, OpInsertion
}

// predecessorOffset moves the node and an offset in it one base backward.
func (t *wfaTree) predecessorOffset(node *uint32, offset *int) {
	if *offset > 0 {
		*offset--
	} else {
		*node = t.parent(*node)
		*offset = t.nodes[*node].length(t.graph) - 1
	}
}

// trim replaces the candidate with the partial alignment with the highest
// alignment score.
func (t *wfaTree) trim(scoring Scoring) {
	t.candidatePoint = wfaPoint{}
	t.candidateNode = 0
	best := int32(0)
	for node := range t.nodes {
		for _, point := range t.nodes[node].wavefronts[wfMatches] {
			if score := point.alignmentScore(scoring); score > best {
				t.candidatePoint = point
				t.candidateNode = uint32(node)
				best = score
			}
		}
	}
}

func (t *wfaTree) getLeaves() []uint32 {
	var leaves []uint32
	for node := range t.nodes {
		if t.nodes[node].isLeaf() {
			leaves = append(leaves, uint32(node))
		}
	}
	return leaves
}

func (t *wfaTree) updateRange(rng diagonalRange, score int) diagonalRange {
	if score > 0 && score < len(t.diagonals) {
		if t.diagonals[score].first < rng.first {
			rng.first = t.diagonals[score].first
		}
		if t.diagonals[score].second > rng.second {
			rng.second = t.diagonals[score].second
		}
	}
	return rng
}

// getDiagonals determines the diagonal range for the given score and
// updates the bookkeeping.
func (t *wfaTree) getDiagonals(score int) diagonalRange {
	rng := diagonalRange{0, 0}
	rng = t.updateRange(rng, score-t.mismatch)            // Mismatch.
	rng = t.updateRange(rng, score-t.gapOpen-t.gapExtend) // New gap.
	rng = t.updateRange(rng, score-t.gapExtend)           // Extend an existing gap.
	rng.first--
	rng.second++

	if rng.first < t.maxDiagonals.first {
		t.maxDiagonals.first = rng.first
	}
	if rng.second > t.maxDiagonals.second {
		t.maxDiagonals.second = rng.second
	}
	for len(t.diagonals) <= score {
		t.diagonals = append(t.diagonals, diagonalRange{0, 0})
	}
	t.diagonals[score] = rng

	return rng
}

// propagate expands the children of the final node of the position, if the
// position has consumed the whole path, and copies the position to the
// wavefronts of the children.  It reports whether anything was propagated.
func (t *wfaTree) propagate(pos *matchPos, score, diagonal, matrix int) bool {
	n := pos.node()
	if !pos.atLastNode() || pos.nodeOffset < t.nodes[n].length(t.graph) {
		return false
	}
	if !t.nodes[n].expanded() {
		found := false
		t.graph.FollowStates(t.nodes[n].state, func(child gbwt.SearchState) bool {
			t.nodes[n].children = append(t.nodes[n].children, uint32(len(t.nodes)))
			t.nodes = append(t.nodes, wfaNode{state: child, parent: n})
			found = true
			return true
		})
		if !found {
			t.nodes[n].deadEnd = true
		}
	}
	for _, child := range t.nodes[n].children {
		t.nodes[child].update(matrix, score, diagonal, pos.seqOffset, 0)
	}
	return len(t.nodes[n].children) > 0
}

// findMatrixPos returns the furthest position in the given matrix for
// (score, diagonal) on the node or its ancestors, or an empty position.
// When an extendable position is requested, positions that cannot be
// extended further are treated as missing.
func (t *wfaTree) findMatrixPos(matrix int, node uint32, score, diagonal int, extendableSeq, extendableGraph bool) matchPos {
	if score < 0 {
		return matchPos{}
	}
	var path []uint32
	for {
		path = append(path, node)
		pos := t.nodes[node].findPos(matrix, score, diagonal, path)
		if !pos.empty() {
			if extendableSeq && pos.seqOffset >= len(t.sequence) {
				return matchPos{}
			}
			if extendableGraph && t.atDeadEnd(&pos) {
				return matchPos{}
			}
			return pos
		}
		if isRoot(node) {
			return matchPos{}
		}
		node = t.parent(node)
	}
}

// atDeadEnd assumes that the position is non-empty.
func (t *wfaTree) atDeadEnd(pos *matchPos) bool {
	n := pos.node()
	return t.nodes[n].deadEnd && pos.nodeOffset >= t.nodes[n].length(t.graph)
}

// Connect aligns the sequence to a haplotype between the two endpoint
// positions, excluding the endpoint bases themselves.  The alignment may
// end with an unlocalized insertion if the endpoints are closer in the
// graph than the read implies.  The result is empty if no alignment within
// a reasonable score bound exists.
func (e *WFAExtender) Connect(sequence []byte, from, to Position) (Alignment, error) {
	return e.connect(sequence, from, to)
}

func (e *WFAExtender) connect(sequence []byte, from, to Position) (Alignment, error) {
	if len(sequence) == 0 {
		return Alignment{}, nil
	}
	if !e.graph.HasNode(from.ID) || (!noPos(to) && !e.graph.HasNode(to.ID)) {
		return Alignment{}, ErrInvalidPosition
	}
	rootState := e.graph.GetState(e.graph.GetHandle(from.ID, from.IsReverse))
	if rootState.Empty() {
		return Alignment{}, nil
	}
	masked := e.mask.Masked(sequence)

	tree := newWFATree(e.graph, masked, rootState, from, e.scoring)

	score := 0
	for {
		tree.extend(score, to)
		if tree.candidatePoint.score <= score {
			break
		}
		score++
		if score > tree.scoreBound {
			break
		}
		tree.next(score, to)
	}

	// Without a full-length alignment within the score bound, fall back to
	// the best partial alignment if there was no destination, or fail.
	fullLength := true
	if tree.candidatePoint.score > tree.scoreBound {
		if !noPos(to) {
			return Alignment{}, nil
		}
		tree.trim(e.scoring)
		fullLength = false
	}
	if tree.candidatePoint.seqOffset == 0 {
		return Alignment{}, nil
	}

	// Build the result. Store the path first.
	result := Alignment{
		NodeOffset: from.Offset + 1,
		SeqOffset:  0,
		Length:     tree.candidatePoint.seqOffset,
		Score:      tree.candidatePoint.alignmentScore(e.scoring),
	}
	node := tree.candidateNode
	for {
		result.Path = append(result.Path, graph.NodeToHandle(tree.nodes[node].state.Node))
		if isRoot(node) {
			break
		}
		node = tree.parent(node)
	}
	for i, j := 0, len(result.Path)-1; i < j; i, j = i+1, j-1 {
		result.Path[i], result.Path[j] = result.Path[j], result.Path[i]
	}

	// A full-length alignment may carry an implicit insertion at the end.
	point := tree.candidatePoint
	node = tree.candidateNode
	if fullLength && point.seqOffset < len(masked) {
		finalInsertion := len(masked) - point.seqOffset
		result.Append(OpInsertion, finalInsertion)
		point.score -= tree.gapPenalty(finalInsertion)
	}

	// Backtrace the edits.
	edit := OpMatch
	for point.seqOffset > 0 || point.diagonal != 0 {
		switch edit {
		case OpMatch:
			pred, predEdit := tree.matchPredecessor(node, point.score, point.diagonal)
			result.Append(OpMatch, point.seqOffset-pred.seqOffset)
			point.seqOffset = pred.seqOffset
			point.nodeOffset = pred.nodeOffset
			if pred.empty() {
				if point.seqOffset > 0 || point.diagonal != 0 {
					return Alignment{}, ErrBacktrace
				}
				continue
			}
			node = pred.node()
			edit = predEdit
		case OpMismatch:
			result.Append(OpMismatch, 1)
			point.seqOffset--
			tree.predecessorOffset(&node, &point.nodeOffset)
			point.score -= tree.mismatch
			edit = OpMatch
		case OpInsertion:
			_, predEdit := tree.insPredecessor(node, point.score, point.diagonal)
			result.Append(OpInsertion, 1)
			point.seqOffset--
			if predEdit == OpInsertion {
				point.score -= tree.gapExtend
			} else {
				point.score -= tree.gapOpen + tree.gapExtend
			}
			point.diagonal--
			edit = predEdit
		case OpDeletion:
			_, predEdit := tree.delPredecessor(node, point.score, point.diagonal)
			result.Append(OpDeletion, 1)
			tree.predecessorOffset(&node, &point.nodeOffset)
			if predEdit == OpDeletion {
				point.score -= tree.gapExtend
			} else {
				point.score -= tree.gapOpen + tree.gapExtend
			}
			point.diagonal++
			edit = predEdit
		}
	}
	for i, j := 0, len(result.Edits)-1; i < j; i, j = i+1, j-1 {
		result.Edits[i], result.Edits[j] = result.Edits[j], result.Edits[i]
	}

	// The tree of search states sometimes reaches a node without using any
	// of its bases. Deal with that now to avoid facing the issue later.
	if result.FinalOffset(e.graph) == 0 {
		result.Path = result.Path[:len(result.Path)-1]
	}

	return result, nil
}

// Suffix aligns the sequence to a haplotype starting after the given
// position, reaching the end of the read unless the alignment fails.
func (e *WFAExtender) Suffix(sequence []byte, from Position) (Alignment, error) {
	return e.connect(sequence, from, Position{})
}

// Prefix aligns the sequence to a haplotype ending before the given
// position, reaching the start of the read unless the alignment fails.
func (e *WFAExtender) Prefix(sequence []byte, to Position) (Alignment, error) {
	if !e.graph.HasNode(to.ID) {
		return Alignment{}, ErrInvalidPosition
	}

	// Flip the position, align forward, and flip the result.
	flipped := reverseBasePos(to, e.graph.Length(e.graph.GetHandle(to.ID, to.IsReverse)))
	result, err := e.connect(dna.ReverseComplement(sequence), flipped, Position{})
	if err != nil {
		return Alignment{}, err
	}
	result.Flip(e.graph, sequence)
	return result, nil
}

// reverseBasePos returns the position of the same base on the other strand.
func reverseBasePos(pos Position, nodeLength int) Position {
	return Position{
		ID:        pos.ID,
		IsReverse: !pos.IsReverse,
		Offset:    nodeLength - pos.Offset - 1,
	}
}
