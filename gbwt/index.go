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

package gbwt

import "sort"

// Index is an in-memory haplotype path index.  Every stored path is indexed
// in both orientations, so searches work on either strand.  An Index is
// immutable after construction and safe for concurrent use.
type Index struct {
	// sequences holds each stored path twice: sequence 2i is path i in its
	// stored orientation, sequence 2i+1 is its reverse.
	sequences   [][]Node
	occurrences map[Node][]position
}

// NewIndex builds an index over the given haplotype paths.  Empty paths are
// ignored.
func NewIndex(paths [][]Node) *Index {
	index := &Index{occurrences: make(map[Node][]position)}
	for _, path := range paths {
		if len(path) == 0 {
			continue
		}
		forward := append([]Node(nil), path...)
		reverse := make([]Node, len(path))
		for i, node := range path {
			reverse[len(path)-1-i] = node.Reverse()
		}
		index.addSequence(forward)
		index.addSequence(reverse)
	}
	return index
}

func (x *Index) addSequence(sequence []Node) {
	id := len(x.sequences)
	x.sequences = append(x.sequences, sequence)
	for offset, node := range sequence {
		x.occurrences[node] = append(x.occurrences[node], position{id, offset})
	}
}

// Find returns the state matching every occurrence of the given node.
func (x *Index) Find(node Node) SearchState {
	return SearchState{Node: node, positions: x.occurrences[node]}
}

// Extend advances state by one node and returns the new state, which is empty
// if no consistent haplotype continues that way.
func (x *Index) Extend(state SearchState, node Node) SearchState {
	var positions []position
	for _, p := range state.positions {
		sequence := x.sequences[p.sequence]
		if p.offset+1 < len(sequence) && sequence[p.offset+1] == node {
			positions = append(positions, position{p.sequence, p.offset + 1})
		}
	}
	return SearchState{Node: node, positions: positions}
}

// Edges returns the distinct nodes reachable by a one-step extension of
// state, in increasing token order.
func (x *Index) Edges(state SearchState) []Node {
	return x.successors(state.positions, 1)
}

// FollowStates calls visit with the extension of state by every distinct
// reachable node, in increasing token order.  Enumeration stops early if
// visit returns false.
func (x *Index) FollowStates(state SearchState, visit func(SearchState) bool) {
	for _, node := range x.successors(state.positions, 1) {
		if !visit(x.Extend(state, node)) {
			return
		}
	}
}

// BdFind returns the bidirectional state matching every occurrence of the
// given node.
func (x *Index) BdFind(node Node) BidirectionalState {
	return BidirectionalState{First: node, Last: node, Len: 1, positions: x.occurrences[node]}
}

// ExtendForward appends node to the matched segment.
func (x *Index) ExtendForward(state BidirectionalState, node Node) BidirectionalState {
	var positions []position
	for _, p := range state.positions {
		sequence := x.sequences[p.sequence]
		if p.offset+state.Len < len(sequence) && sequence[p.offset+state.Len] == node {
			positions = append(positions, p)
		}
	}
	return BidirectionalState{First: state.First, Last: node, Len: state.Len + 1, positions: positions}
}

// ExtendBackward prepends node to the matched segment.
func (x *Index) ExtendBackward(state BidirectionalState, node Node) BidirectionalState {
	var positions []position
	for _, p := range state.positions {
		sequence := x.sequences[p.sequence]
		if p.offset > 0 && sequence[p.offset-1] == node {
			positions = append(positions, position{p.sequence, p.offset - 1})
		}
	}
	return BidirectionalState{First: node, Last: state.Last, Len: state.Len + 1, positions: positions}
}

// FollowForward calls visit with the forward extension of state by every
// distinct reachable node, in increasing token order.  Enumeration stops
// early if visit returns false.
func (x *Index) FollowForward(state BidirectionalState, visit func(BidirectionalState) bool) {
	for _, node := range x.successors(state.positions, state.Len) {
		if !visit(x.ExtendForward(state, node)) {
			return
		}
	}
}

// FollowBackward calls visit with the backward extension of state by every
// distinct preceding node, in increasing token order.  Enumeration stops
// early if visit returns false.
func (x *Index) FollowBackward(state BidirectionalState, visit func(BidirectionalState) bool) {
	for _, node := range x.predecessors(state.positions) {
		if !visit(x.ExtendBackward(state, node)) {
			return
		}
	}
}

// BdFindPath returns the bidirectional state matching the given node path.
// The state is empty if the path is empty or no stored haplotype spells it.
func (x *Index) BdFindPath(path []Node) BidirectionalState {
	if len(path) == 0 {
		return BidirectionalState{}
	}
	state := x.BdFind(path[0])
	for _, node := range path[1:] {
		if state.Empty() {
			break
		}
		state = x.ExtendForward(state, node)
	}
	return state
}

// Locate returns the identifiers of the stored paths consistent with state,
// in increasing order.  A path visited in either orientation is reported
// once.
func (x *Index) Locate(state BidirectionalState) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, p := range state.positions {
		id := p.sequence / 2
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// successors returns the distinct nodes found step places after the given
// positions, in increasing token order.
func (x *Index) successors(positions []position, step int) []Node {
	seen := make(map[Node]bool)
	var nodes []Node
	for _, p := range positions {
		sequence := x.sequences[p.sequence]
		if next := p.offset + step; next < len(sequence) {
			if node := sequence[next]; !seen[node] {
				seen[node] = true
				nodes = append(nodes, node)
			}
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

func (x *Index) predecessors(positions []position) []Node {
	seen := make(map[Node]bool)
	var nodes []Node
	for _, p := range positions {
		if p.offset > 0 {
			if node := x.sequences[p.sequence][p.offset-1]; !seen[node] {
				seen[node] = true
				nodes = append(nodes, node)
			}
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}
