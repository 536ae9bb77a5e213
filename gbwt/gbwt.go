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

// Package gbwt provides a bidirectionally searchable index over a corpus of
// stored haplotype paths through a sequence graph.  A search state represents
// the set of stored haplotypes consistent with the path segment matched so
// far, extendable in either direction.
package gbwt

// Node identifies an oriented node of the graph.  The low bit stores the
// orientation and the remaining bits store the node identifier.
type Node uint64

// Encode returns the token for the node with the given identifier and
// orientation.
func Encode(id uint64, isReverse bool) Node {
	node := Node(id << 1)
	if isReverse {
		node |= 1
	}
	return node
}

// ID returns the node identifier.
func (n Node) ID() uint64 {
	return uint64(n >> 1)
}

// IsReverse reports whether the token refers to the reverse orientation.
func (n Node) IsReverse() bool {
	return n&1 == 1
}

// Reverse returns the token for the opposite orientation of the same node.
func (n Node) Reverse() Node {
	return n ^ 1
}

// A position locates one visit of a node inside the stored corpus.
type position struct {
	sequence int
	offset   int
}

// SearchState is a unidirectional search state: the occurrences of the last
// node of a matched segment, restricted to haplotypes that spell the whole
// segment.  The zero value is an empty state.
type SearchState struct {
	Node      Node
	positions []position
}

// Empty reports whether no stored haplotype matches the state.
func (s SearchState) Empty() bool {
	return len(s.positions) == 0
}

// Size returns the number of haplotype occurrences consistent with the state.
func (s SearchState) Size() int {
	return len(s.positions)
}

// BidirectionalState is a search state that can be extended in either
// direction.  First and Last are the endpoints of the matched segment and Len
// is its node count.  The zero value is an empty state.
type BidirectionalState struct {
	First, Last Node
	Len         int
	positions   []position
}

// Empty reports whether no stored haplotype matches the state.
func (s BidirectionalState) Empty() bool {
	return len(s.positions) == 0
}

// Size returns the number of haplotype occurrences consistent with the state.
func (s BidirectionalState) Size() int {
	return len(s.positions)
}

// Compare provides a total order over states for deterministic sorting.  It
// returns a negative value, zero, or a positive value as s sorts before,
// equal to, or after another.
func (s BidirectionalState) Compare(another BidirectionalState) int {
	if s.First != another.First {
		if s.First < another.First {
			return -1
		}
		return 1
	}
	if s.Last != another.Last {
		if s.Last < another.Last {
			return -1
		}
		return 1
	}
	if s.Len != another.Len {
		if s.Len < another.Len {
			return -1
		}
		return 1
	}
	for i := 0; i < len(s.positions) && i < len(another.positions); i++ {
		a, b := s.positions[i], another.positions[i]
		if a != b {
			if a.sequence != b.sequence {
				if a.sequence < b.sequence {
					return -1
				}
				return 1
			}
			if a.offset < b.offset {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(s.positions) < len(another.positions):
		return -1
	case len(s.positions) > len(another.positions):
		return 1
	}
	return 0
}
