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

// Package align aligns query sequences against a haplotype-constrained
// sequence graph.  It provides two engines: gapless best-first extension of
// seed anchors, and gap-affine wavefront alignment between fixed graph
// positions.  Both engines are pure functions of their inputs and may be
// called concurrently from independent goroutines.
package align

import "errors"

var (
	// ErrInvalidSeed reports a seed that references a node outside the
	// graph.
	ErrInvalidSeed = errors.New("align: seed references a node outside the graph")

	// ErrInvalidPosition reports a graph position that references a node
	// outside the graph.
	ErrInvalidPosition = errors.New("align: position references a node outside the graph")

	// ErrBacktrace reports an internally inconsistent wavefront backtrace.
	// It indicates a bug rather than an unalignable input.
	ErrBacktrace = errors.New("align: inconsistent wavefront backtrace")
)

// Position identifies a single base of the graph: a node, an orientation,
// and an offset on that strand.  The zero value (ID 0) is the empty
// position.
type Position struct {
	ID        uint64 `json:"id"`
	IsReverse bool   `json:"reverse,omitempty"`
	Offset    int    `json:"offset"`
}

// Empty reports whether the position is the empty position.
func (p Position) Empty() bool {
	return p.ID == 0
}

// Seed anchors a read offset to a graph position.  Seeds come from an
// external seeding stage and are not assumed correct.
type Seed struct {
	ReadOffset int      `json:"read_offset"`
	Pos        Position `json:"pos"`
}

// Interval is a half-open range [Start, End) of read offsets.
type Interval struct {
	Start, End int
}

// Length returns the number of offsets in the interval.
func (i Interval) Length() int {
	return i.End - i.Start
}

// Scoring holds the alignment scoring parameters.  All values are
// non-negative; penalties are subtracted.
type Scoring struct {
	Match           int32
	Mismatch        int32
	GapOpen         int32
	GapExtend       int32
	FullLengthBonus int32
}

// DefaultScoring matches the usual short-read defaults.
var DefaultScoring = Scoring{
	Match:           1,
	Mismatch:        4,
	GapOpen:         6,
	GapExtend:       1,
	FullLengthBonus: 5,
}

// Edit is one step of a positional alignment record.  A match has equal
// from/to lengths and an empty sequence; a mismatch carries the substituted
// read base.
type Edit struct {
	FromLength int    `json:"from_length"`
	ToLength   int    `json:"to_length"`
	Sequence   string `json:"sequence,omitempty"`
}

// Mapping aligns a run of read bases to a single oriented node.
type Mapping struct {
	Position Position `json:"position"`
	Edits    []Edit   `json:"edits"`
}
