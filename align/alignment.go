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
	"fmt"

	"github.com/graphgenomics/hapalign/graph"
)

// EditOp is the type of one run of edits in an Alignment.
type EditOp uint8

const (
	// OpMatch consumes equal bases from the read and the graph.
	OpMatch EditOp = iota
	// OpMismatch consumes unequal bases from the read and the graph.
	OpMismatch
	// OpInsertion consumes read bases absent from the graph.
	OpInsertion
	// OpDeletion consumes graph bases absent from the read.
	OpDeletion
)

// String returns the CIGAR-style code for the operation.
func (op EditOp) String() string {
	switch op {
	case OpMatch:
		return "M"
	case OpMismatch:
		return "X"
	case OpInsertion:
		return "I"
	case OpDeletion:
		return "D"
	}
	return "?"
}

// EditRun is a run of consecutive edits of the same type.
type EditRun struct {
	Op     EditOp `json:"op"`
	Length int    `json:"length"`
}

// Alignment is a run-length encoded alignment of a read interval to a graph
// path.  The zero value is the empty alignment.
type Alignment struct {
	// Path is the oriented node path and NodeOffset the offset of the
	// first aligned base on its first node.
	Path       []graph.Handle
	NodeOffset int

	// Edits describe the alignment of the read interval starting at
	// SeqOffset and covering Length bases.
	Edits     []EditRun
	SeqOffset int
	Length    int

	Score int32
}

// Empty reports whether the alignment aligns nothing.
func (a *Alignment) Empty() bool {
	return len(a.Edits) == 0
}

// FromExtension converts a gapless extension into a run-length encoded
// alignment.
func FromExtension(extension *GaplessExtension) Alignment {
	result := Alignment{
		Path:       append([]graph.Handle(nil), extension.Path...),
		NodeOffset: extension.Offset,
		SeqOffset:  extension.ReadInterval.Start,
		Length:     extension.Length(),
		Score:      extension.Score,
	}
	// cursor tracks the first read offset not yet covered by an edit.
	cursor := result.SeqOffset
	for _, mismatchAt := range extension.MismatchPositions {
		if len(result.Edits) > 0 && cursor == mismatchAt && result.Edits[len(result.Edits)-1].Op == OpMismatch {
			result.Edits[len(result.Edits)-1].Length++
		} else {
			if cursor < mismatchAt {
				result.Edits = append(result.Edits, EditRun{OpMatch, mismatchAt - cursor})
			}
			result.Edits = append(result.Edits, EditRun{OpMismatch, 1})
		}
		cursor = mismatchAt + 1
	}
	if cursor < result.SeqOffset+result.Length {
		result.Edits = append(result.Edits, EditRun{OpMatch, result.SeqOffset + result.Length - cursor})
	}
	return result
}

// Append adds a run of edits to the end of the alignment, merging it into
// the final run when the types agree.  Empty runs are ignored.
func (a *Alignment) Append(op EditOp, length int) {
	if length == 0 {
		return
	}
	if len(a.Edits) == 0 || a.Edits[len(a.Edits)-1].Op != op {
		a.Edits = append(a.Edits, EditRun{op, length})
	} else {
		a.Edits[len(a.Edits)-1].Length += length
	}
}

// FinalOffset returns the offset past the last aligned base on the final
// node of the path.
func (a *Alignment) FinalOffset(g *graph.Graph) int {
	result := a.NodeOffset
	for _, edit := range a.Edits {
		if edit.Op != OpInsertion {
			result += edit.Length
		}
	}
	for _, handle := range a.Path[:len(a.Path)-1] {
		result -= g.Length(handle)
	}
	return result
}

// Flip transforms the alignment of a read interval to the alignment of its
// reverse complement on the other strand.
func (a *Alignment) Flip(g *graph.Graph, sequence []byte) {
	if a.Empty() {
		return
	}

	a.SeqOffset = len(sequence) - a.SeqOffset - a.Length
	a.NodeOffset = g.Length(a.Path[len(a.Path)-1]) - a.FinalOffset(g)

	for i, j := 0, len(a.Path)-1; i < j; i, j = i+1, j-1 {
		a.Path[i], a.Path[j] = a.Path[j], a.Path[i]
	}
	for i := range a.Path {
		a.Path[i] = a.Path[i].Flip()
	}
	for i, j := 0, len(a.Edits)-1; i < j; i, j = i+1, j-1 {
		a.Edits[i], a.Edits[j] = a.Edits[j], a.Edits[i]
	}
}

// JoinOnSharedMatch merges a second alignment into this one.  The two
// alignments must overlap on exactly one matched base: the last base of this
// alignment and the first base of second, on a shared node.  The score of
// the shared match is counted once.
func (a *Alignment) JoinOnSharedMatch(second *Alignment, matchScore int32) error {
	if a.SeqOffset+a.Length != second.SeqOffset+1 {
		return fmt.Errorf("align: joined alignments do not overlap on one base: [%d, %d) and [%d, %d)",
			a.SeqOffset, a.SeqOffset+a.Length, second.SeqOffset, second.SeqOffset+second.Length)
	}
	if len(a.Path) == 0 || len(second.Path) == 0 || a.Path[len(a.Path)-1] != second.Path[0] {
		return fmt.Errorf("align: joined alignments do not share a node")
	}
	if a.Empty() || a.Edits[len(a.Edits)-1].Op != OpMatch || second.Empty() || second.Edits[0].Op != OpMatch {
		return fmt.Errorf("align: joined alignments do not end and start with a match")
	}

	a.Path = append(a.Path, second.Path[1:]...)
	a.Edits[len(a.Edits)-1].Length += second.Edits[0].Length - 1
	a.Edits = append(a.Edits, second.Edits[1:]...)
	a.Length += second.Length - 1
	a.Score += second.Score - matchScore
	return nil
}

// ToPath converts the alignment into a positional alignment record, one
// mapping per node that aligned bases were used from.
func (a *Alignment) ToPath(g *graph.Graph, sequence []byte) []Mapping {
	if a.Empty() {
		return nil
	}
	mappings := make([]Mapping, 0, len(a.Path))
	pathIndex := 0
	nodeOffset := a.NodeOffset
	readOffset := a.SeqOffset
	current := Mapping{Position: position(a.Path[0], nodeOffset)}
	// advance moves to the next node once the current one is used up.
	advance := func() {
		for pathIndex+1 < len(a.Path) && nodeOffset >= g.Length(a.Path[pathIndex]) {
			if len(current.Edits) > 0 {
				mappings = append(mappings, current)
			}
			pathIndex++
			nodeOffset = 0
			current = Mapping{Position: position(a.Path[pathIndex], 0)}
		}
	}
	for _, edit := range a.Edits {
		switch edit.Op {
		case OpMatch, OpMismatch:
			left := edit.Length
			for left > 0 {
				advance()
				length := min(left, g.Length(a.Path[pathIndex])-nodeOffset)
				e := Edit{FromLength: length, ToLength: length}
				if edit.Op == OpMismatch {
					e.Sequence = string(sequence[readOffset : readOffset+length])
				}
				current.Edits = append(current.Edits, e)
				nodeOffset += length
				readOffset += length
				left -= length
			}
		case OpInsertion:
			advance()
			current.Edits = append(current.Edits, Edit{
				ToLength: edit.Length,
				Sequence: string(sequence[readOffset : readOffset+edit.Length]),
			})
			readOffset += edit.Length
		case OpDeletion:
			left := edit.Length
			for left > 0 {
				advance()
				length := min(left, g.Length(a.Path[pathIndex])-nodeOffset)
				current.Edits = append(current.Edits, Edit{FromLength: length})
				nodeOffset += length
				left -= length
			}
		}
	}
	if len(current.Edits) > 0 {
		mappings = append(mappings, current)
	}
	return mappings
}

func position(h graph.Handle, offset int) Position {
	return Position{ID: h.ID(), IsReverse: h.IsReverse(), Offset: offset}
}
