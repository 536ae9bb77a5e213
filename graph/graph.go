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

// Package graph provides a sequence graph view restricted to the haplotype
// paths stored in a gbwt.Index.  Node traversal always follows a stored
// haplotype; edges that no haplotype uses are invisible.
package graph

import (
	"github.com/graphgenomics/hapalign/gbwt"
	"github.com/graphgenomics/hapalign/internal/dna"
)

// Handle identifies an oriented node.  It uses the same encoding as
// gbwt.Node.
type Handle uint64

// NodeToHandle converts an index token to a graph handle.
func NodeToHandle(node gbwt.Node) Handle {
	return Handle(node)
}

// HandleToNode converts a graph handle to an index token.
func HandleToNode(handle Handle) gbwt.Node {
	return gbwt.Node(handle)
}

// ID returns the node identifier.
func (h Handle) ID() uint64 {
	return uint64(h >> 1)
}

// IsReverse reports whether the handle refers to the reverse orientation.
func (h Handle) IsReverse() bool {
	return h&1 == 1
}

// Flip returns the handle for the opposite orientation of the same node.
func (h Handle) Flip() Handle {
	return h ^ 1
}

// Graph is a haplotype-constrained view over node sequences and a path
// index.  A Graph is immutable after construction and safe for concurrent
// use.
type Graph struct {
	index   *gbwt.Index
	forward map[uint64][]byte
	reverse map[uint64][]byte
}

// New builds a graph view over the given node sequences and path index.
func New(sequences map[uint64]string, index *gbwt.Index) *Graph {
	g := &Graph{
		index:   index,
		forward: make(map[uint64][]byte, len(sequences)),
		reverse: make(map[uint64][]byte, len(sequences)),
	}
	for id, sequence := range sequences {
		g.forward[id] = []byte(sequence)
		g.reverse[id] = dna.ReverseComplement([]byte(sequence))
	}
	return g
}

// Index returns the underlying haplotype path index.
func (g *Graph) Index() *gbwt.Index {
	return g.index
}

// HasNode reports whether the graph contains a node with the given
// identifier.
func (g *Graph) HasNode(id uint64) bool {
	_, ok := g.forward[id]
	return ok
}

// GetHandle returns the handle for the given node identifier and
// orientation.
func (g *Graph) GetHandle(id uint64, isReverse bool) Handle {
	return NodeToHandle(gbwt.Encode(id, isReverse))
}

// Length returns the sequence length of the node, or zero for an unknown
// node.
func (g *Graph) Length(handle Handle) int {
	return len(g.forward[handle.ID()])
}

// SequenceView returns the node sequence on the handle's strand.  The
// returned slice is shared and must not be modified.
func (g *Graph) SequenceView(handle Handle) []byte {
	if handle.IsReverse() {
		return g.reverse[handle.ID()]
	}
	return g.forward[handle.ID()]
}

// GetState seeds a unidirectional search at the handle.
func (g *Graph) GetState(handle Handle) gbwt.SearchState {
	return g.index.Find(HandleToNode(handle))
}

// GetBdState seeds a bidirectional search at the handle.
func (g *Graph) GetBdState(handle Handle) gbwt.BidirectionalState {
	return g.index.BdFind(HandleToNode(handle))
}

// BdFind returns the bidirectional state matching the given handle path.
func (g *Graph) BdFind(path []Handle) gbwt.BidirectionalState {
	nodes := make([]gbwt.Node, len(path))
	for i, handle := range path {
		nodes[i] = HandleToNode(handle)
	}
	return g.index.BdFindPath(nodes)
}

// FollowPaths enumerates every haplotype-consistent one-step extension of a
// bidirectional state in the given direction, in increasing token order.
// Enumeration stops early if visit returns false.
func (g *Graph) FollowPaths(state gbwt.BidirectionalState, backward bool, visit func(gbwt.BidirectionalState) bool) {
	if backward {
		g.index.FollowBackward(state, visit)
		return
	}
	g.index.FollowForward(state, visit)
}

// FollowStates enumerates every haplotype-consistent one-step forward
// extension of a unidirectional state, in increasing token order.
// Enumeration stops early if visit returns false.
func (g *Graph) FollowStates(state gbwt.SearchState, visit func(gbwt.SearchState) bool) {
	g.index.FollowStates(state, visit)
}
