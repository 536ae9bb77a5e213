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
	"github.com/graphgenomics/hapalign/gbwt"
	"github.com/graphgenomics/hapalign/graph"
)

// GaplessExtension is a haplotype-consistent gapless alignment of a read
// interval to a graph path.  Extensions are produced by GaplessExtender and
// are immutable once returned.
type GaplessExtension struct {
	// Path is the oriented node path of the alignment, and Offset the
	// start offset on the first node.
	Path   []graph.Handle
	Offset int

	// State is the bidirectional haplotype search state covering Path.
	State gbwt.BidirectionalState

	// ReadInterval is the aligned read range and MismatchPositions the
	// sorted read offsets of mismatching bases.
	ReadInterval      Interval
	MismatchPositions []int

	// Score is the alignment score, including the full-length bonus for
	// each read end the extension reaches.
	Score int32

	LeftFull, RightFull       bool
	LeftMaximal, RightMaximal bool

	// internalScore counts mismatches, with an extra unit per missing
	// full-length bonus.  oldScore is the value when the extension was
	// last right-maximal.  Lower is better.
	internalScore uint32
	oldScore      uint32
}

// Empty reports whether the extension aligns nothing.
func (e *GaplessExtension) Empty() bool {
	return len(e.Path) == 0
}

// Full reports whether the extension covers the entire read.
func (e *GaplessExtension) Full() bool {
	return e.LeftFull && e.RightFull
}

// Exact reports whether the extension has no mismatches.
func (e *GaplessExtension) Exact() bool {
	return len(e.MismatchPositions) == 0
}

// Length returns the number of aligned read bases.
func (e *GaplessExtension) Length() int {
	return e.ReadInterval.Length()
}

// Mismatches returns the number of mismatching bases.
func (e *GaplessExtension) Mismatches() int {
	return len(e.MismatchPositions)
}

// containsSeed reports whether the extension aligns the seed's read offset
// to the seed's graph position.
func (e *GaplessExtension) containsSeed(g *graph.CachedGraph, seed Seed) bool {
	nodeOffset, readOffset := seedStart(seed)
	if readOffset < e.ReadInterval.Start || readOffset >= e.ReadInterval.End {
		return false
	}
	handle := graph.NodeToHandle(gbwt.Encode(seed.Pos.ID, seed.Pos.IsReverse))
	offset := e.Offset
	read := e.ReadInterval.Start
	for _, h := range e.Path {
		length := g.Length(h)
		if h == handle && nodeOffset >= offset && nodeOffset < length &&
			readOffset-read == nodeOffset-offset {
			return true
		}
		read += length - offset
		offset = 0
		if read > readOffset {
			return false
		}
	}
	return false
}

// StartingPosition returns the graph position of the first aligned base.
func (e *GaplessExtension) StartingPosition() Position {
	if e.Empty() {
		return Position{}
	}
	h := e.Path[0]
	return Position{ID: h.ID(), IsReverse: h.IsReverse(), Offset: e.Offset}
}

// TailPosition returns the graph position immediately after the last aligned
// base.
func (e *GaplessExtension) TailPosition(g *graph.CachedGraph) Position {
	if e.Empty() {
		return Position{}
	}
	h := e.Path[len(e.Path)-1]
	return Position{ID: h.ID(), IsReverse: h.IsReverse(), Offset: e.tailOffset(g)}
}

// tailOffset returns the offset past the last aligned base on the final
// node of the path.
func (e *GaplessExtension) tailOffset(g *graph.CachedGraph) int {
	result := e.Offset + e.Length()
	for _, h := range e.Path[:len(e.Path)-1] {
		result -= g.Length(h)
	}
	return result
}

// overlap returns the number of read positions that a and b align to the
// same graph position.
func (a *GaplessExtension) overlap(g *graph.CachedGraph, b *GaplessExtension) int {
	result := 0
	iterA, iterB := 0, 0
	offsetA, offsetB := a.Offset, b.Offset
	readA, readB := a.ReadInterval.Start, b.ReadInterval.Start
	for readA < a.ReadInterval.End && readB < b.ReadInterval.End {
		if readA == readB && a.Path[iterA] == b.Path[iterB] && offsetA == offsetB {
			length := min(g.Length(a.Path[iterA])-offsetA, a.ReadInterval.End-readA)
			length = min(length, b.ReadInterval.End-readB)
			result += length
			readA += length
			readB += length
			offsetA += length
			offsetB += length
		} else if readA <= readB {
			readA++
			offsetA++
		} else {
			readB++
			offsetB++
		}
		if readA < a.ReadInterval.End && offsetA >= g.Length(a.Path[iterA]) {
			iterA++
			offsetA = 0
		}
		if readB < b.ReadInterval.End && offsetB >= g.Length(b.Path[iterB]) {
			iterB++
			offsetB = 0
		}
	}
	return result
}

// ToPath converts the extension into a positional alignment record, one
// mapping per visited node.
func (e *GaplessExtension) ToPath(g *graph.CachedGraph, sequence []byte) []Mapping {
	if e.Empty() {
		return nil
	}
	mappings := make([]Mapping, 0, len(e.Path))
	read := e.ReadInterval.Start
	mismatch := 0
	offset := e.Offset
	for _, h := range e.Path {
		length := g.Length(h) - offset
		if length > e.ReadInterval.End-read {
			length = e.ReadInterval.End - read
		}
		m := Mapping{Position: Position{ID: h.ID(), IsReverse: h.IsReverse(), Offset: offset}}
		limit := read + length
		for read < limit {
			matchRun := limit - read
			if mismatch < len(e.MismatchPositions) && e.MismatchPositions[mismatch] < limit {
				matchRun = e.MismatchPositions[mismatch] - read
			}
			if matchRun > 0 {
				m.Edits = append(m.Edits, Edit{FromLength: matchRun, ToLength: matchRun})
				read += matchRun
			}
			if mismatch < len(e.MismatchPositions) && e.MismatchPositions[mismatch] == read {
				m.Edits = append(m.Edits, Edit{
					FromLength: 1,
					ToLength:   1,
					Sequence:   string(sequence[read : read+1]),
				})
				read++
				mismatch++
			}
		}
		mappings = append(mappings, m)
		offset = 0
	}
	return mappings
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
