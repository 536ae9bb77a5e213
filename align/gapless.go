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
	"container/heap"
	"math"
	"sort"

	"github.com/graphgenomics/hapalign/gbwt"
	"github.com/graphgenomics/hapalign/graph"
)

const (
	// DefaultMaxMismatches is the mismatch budget that makes a full-length
	// extension good enough to suppress further seed processing.
	DefaultMaxMismatches = 4

	// DefaultOverlapThreshold is the highest tolerated fraction of shared
	// aligned positions between reported full-length extensions.
	DefaultOverlapThreshold = 0.8
)

// GaplessExtender extends seed anchors into haplotype-consistent gapless
// alignments.  An extender is immutable after construction and safe for
// concurrent use.
type GaplessExtender struct {
	graph   *graph.Graph
	scoring Scoring
	mask    *ReadMasker
}

// NewGaplessExtender returns an extender over g with the given scoring
// parameters.
func NewGaplessExtender(g *graph.Graph, scoring Scoring) *GaplessExtender {
	return &GaplessExtender{
		graph:   g,
		scoring: scoring,
		mask:    NewReadMasker("ACGT"),
	}
}

// seedStart normalizes a seed to the start of its diagonal: the point where
// either the read offset or the node offset is zero.
func seedStart(seed Seed) (nodeOffset, readOffset int) {
	diff := seed.ReadOffset - seed.Pos.Offset
	if diff < 0 {
		return -diff, 0
	}
	return 0, diff
}

// setScore recomputes the alignment score from the read interval, the
// mismatch count, and the full-length flags.
func (e *GaplessExtender) setScore(ext *GaplessExtension) {
	ext.Score = int32(ext.Length()) * e.scoring.Match
	ext.Score -= int32(ext.internalScore) * (e.scoring.Match + e.scoring.Mismatch)
	if ext.LeftFull {
		ext.Score += e.scoring.FullLengthBonus
	}
	if ext.RightFull {
		ext.Score += e.scoring.FullLengthBonus
	}
}

// matchInitial matches the seed node forward from the diagonal start, where
// either the read offset or the node offset is zero.  Every overlapping base
// is consumed; mismatches are counted, not limited.
func matchInitial(m *GaplessExtension, seq, target []byte) {
	nodeOffset := m.Offset
	for m.ReadInterval.End < len(seq) && nodeOffset < len(target) {
		if seq[m.ReadInterval.End] != target[nodeOffset] {
			m.internalScore++
		}
		m.ReadInterval.End++
		nodeOffset++
	}
	m.oldScore = m.internalScore
}

// matchForward matches target forward from its start and returns the number
// of matched characters.  Matching stops before the mismatch count would
// reach the limit.
func matchForward(m *GaplessExtension, seq, target []byte, mismatchLimit uint32) int {
	nodeOffset := 0
	for m.ReadInterval.End < len(seq) && nodeOffset < len(target) {
		if seq[m.ReadInterval.End] != target[nodeOffset] {
			if m.internalScore+1 >= mismatchLimit {
				return nodeOffset
			}
			m.internalScore++
		}
		m.ReadInterval.End++
		nodeOffset++
	}
	return nodeOffset
}

// matchBackward matches target backward from m.Offset.  Matching stops
// before the mismatch count would reach the limit.
func matchBackward(m *GaplessExtension, seq, target []byte, mismatchLimit uint32) {
	for m.ReadInterval.Start > 0 && m.Offset > 0 {
		if seq[m.ReadInterval.Start-1] != target[m.Offset-1] {
			if m.internalScore+1 >= mismatchLimit {
				return
			}
			m.internalScore++
		}
		m.ReadInterval.Start--
		m.Offset--
	}
}

// betterExtension orders extensions by decreasing promise.  Score decides;
// the remaining fields only break ties deterministically.
func betterExtension(a, b *GaplessExtension) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.RightMaximal != b.RightMaximal {
		return a.RightMaximal
	}
	if a.LeftMaximal != b.LeftMaximal {
		return a.LeftMaximal
	}
	return a.Length() > b.Length()
}

// extensionQueue is a max-priority queue over extensions.
type extensionQueue []*GaplessExtension

func (q extensionQueue) Len() int            { return len(q) }
func (q extensionQueue) Less(i, j int) bool  { return betterExtension(q[i], q[j]) }
func (q extensionQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *extensionQueue) Push(x interface{}) { *q = append(*q, x.(*GaplessExtension)) }

func (q *extensionQueue) Pop() interface{} {
	old := *q
	n := len(old)
	ext := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ext
}

// Extend aligns sequence around each seed of the cluster and returns the
// distinct best extensions.  If a full-length extension with at most
// maxMismatches mismatches exists, the result contains only full-length
// extensions whose pairwise overlap stays within overlapThreshold.
// Otherwise the result contains the best extension from each seed, trimmed
// to maximize its score.  Passing a nil cache allocates a private one.
func (e *GaplessExtender) Extend(cluster []Seed, sequence []byte, cache *graph.CachedGraph, maxMismatches int, overlapThreshold float64) ([]GaplessExtension, error) {
	if len(cluster) == 0 || len(sequence) == 0 {
		return nil, nil
	}
	for _, seed := range cluster {
		if !e.graph.HasNode(seed.Pos.ID) {
			return nil, ErrInvalidSeed
		}
	}
	if cache == nil {
		cache = graph.NewCachedGraph(e.graph)
	}
	masked := e.mask.Masked(sequence)

	// Find the best extension starting from each seed.
	result := make([]GaplessExtension, 0, len(cluster))
	bestAlignment := -1
	for _, seed := range cluster {

		// Skip seeds contained in an exact full-length alignment.
		if bestAlignment >= 0 && result[bestAlignment].internalScore == 0 {
			if result[bestAlignment].containsSeed(cache, seed) {
				continue
			}
		}

		best := &GaplessExtension{
			Score:         math.MinInt32,
			internalScore: math.MaxUint32,
			oldScore:      math.MaxUint32,
		}

		// Match the seed node and queue the initial extension.
		var extensions extensionQueue
		{
			handle := graph.NodeToHandle(gbwt.Encode(seed.Pos.ID, seed.Pos.IsReverse))
			nodeOffset, readOffset := seedStart(seed)
			match := &GaplessExtension{
				Path:         []graph.Handle{handle},
				Offset:       nodeOffset,
				State:        cache.GetBdState(handle),
				ReadInterval: Interval{readOffset, readOffset},
			}
			matchInitial(match, masked, cache.SequenceView(handle))
			if match.ReadInterval.Start == 0 {
				match.LeftFull = true
				match.LeftMaximal = true
			}
			if match.ReadInterval.End >= len(masked) {
				match.RightFull = true
				match.RightMaximal = true
			}
			e.setScore(match)
			heap.Push(&extensions, match)
		}

		// Process the most promising extensions first: make each one
		// right-maximal, then left-maximal.
		for extensions.Len() > 0 {
			curr := heap.Pop(&extensions).(*GaplessExtension)

			// Case 1: extend to the right.
			if !curr.RightMaximal {
				numExtensions := 0
				// Always allow at least maxMismatches/2 mismatches in the
				// current flank.
				mismatchLimit := uint32(maxMismatches + 1)
				if limit := uint32(maxMismatches/2) + curr.oldScore + 1; limit > mismatchLimit {
					mismatchLimit = limit
				}
				cache.FollowPaths(curr.State, false, func(nextState gbwt.BidirectionalState) bool {
					handle := graph.NodeToHandle(nextState.Last)
					next := &GaplessExtension{
						Offset:        curr.Offset,
						State:         nextState,
						ReadInterval:  curr.ReadInterval,
						Score:         curr.Score,
						LeftFull:      curr.LeftFull,
						RightFull:     curr.RightFull,
						LeftMaximal:   curr.LeftMaximal,
						RightMaximal:  curr.RightMaximal,
						internalScore: curr.internalScore,
						oldScore:      curr.oldScore,
					}
					nodeOffset := matchForward(next, masked, cache.SequenceView(handle), mismatchLimit)
					if nodeOffset == 0 { // Did not match anything.
						return true
					}
					next.Path = appendPath(curr.Path, handle)
					// Did the extension become right-maximal?
					if next.ReadInterval.End >= len(masked) {
						next.RightFull = true
						next.RightMaximal = true
						next.oldScore = next.internalScore
					} else if nodeOffset < cache.Length(handle) {
						next.RightMaximal = true
						next.oldScore = next.internalScore
					}
					e.setScore(next)
					numExtensions += next.State.Size()
					heap.Push(&extensions, next)
					return true
				})
				// Some threads in curr could not be extended to the right.
				// They may have different left extensions, so curr must also
				// be considered right-maximal.
				if numExtensions < curr.State.Size() {
					curr.RightMaximal = true
					curr.oldScore = curr.internalScore
					heap.Push(&extensions, curr)
				}
				continue
			}

			// Case 2: extend to the left.
			if !curr.LeftMaximal {
				foundExtension := false
				mismatchLimit := uint32(maxMismatches + 1)
				if limit := uint32(maxMismatches/2) + curr.oldScore + 1; limit > mismatchLimit {
					mismatchLimit = limit
				}
				cache.FollowPaths(curr.State, true, func(nextState gbwt.BidirectionalState) bool {
					handle := graph.NodeToHandle(nextState.First)
					nodeLength := cache.Length(handle)
					next := &GaplessExtension{
						Offset:        nodeLength,
						State:         nextState,
						ReadInterval:  curr.ReadInterval,
						Score:         curr.Score,
						LeftFull:      curr.LeftFull,
						RightFull:     curr.RightFull,
						LeftMaximal:   curr.LeftMaximal,
						RightMaximal:  curr.RightMaximal,
						internalScore: curr.internalScore,
						oldScore:      curr.oldScore,
					}
					matchBackward(next, masked, cache.SequenceView(handle), mismatchLimit)
					if next.Offset >= nodeLength { // Did not match anything.
						return true
					}
					next.Path = prependPath(handle, curr.Path)
					// Did the extension become left-maximal?
					if next.ReadInterval.Start == 0 {
						next.LeftFull = true
						next.LeftMaximal = true
					} else if next.Offset > 0 {
						next.LeftMaximal = true
					}
					e.setScore(next)
					heap.Push(&extensions, next)
					foundExtension = true
					return true
				})
				if !foundExtension {
					curr.LeftMaximal = true
				} else {
					continue
				}
			}

			// Case 3: the extension is maximal in both directions.
			if betterExtension(curr, best) {
				best = curr
			}
		}

		if !best.Empty() {
			if best.Full() && (bestAlignment < 0 || best.internalScore < result[bestAlignment].internalScore) {
				bestAlignment = len(result)
			}
			result = append(result, *best)
		}
	}

	// With a good enough full-length alignment, report the best
	// sufficiently distinct full-length alignments.
	if bestAlignment >= 0 && result[bestAlignment].internalScore <= uint32(maxMismatches) {
		result = handleFullLength(cache, result, overlapThreshold)
		findMismatches(masked, cache, result)
	} else {
		// Otherwise remove duplicates, find the mismatching positions, and
		// trim the extensions to maximize their scores.
		result = removeDuplicates(result)
		findMismatches(masked, cache, result)
		trimmed := false
		for i := range result {
			if e.trimMismatches(&result[i], cache) {
				trimmed = true
			}
		}
		if trimmed {
			result = removeDuplicates(result)
		}
	}
	return result, nil
}

func appendPath(path []graph.Handle, last graph.Handle) []graph.Handle {
	result := make([]graph.Handle, 0, len(path)+1)
	result = append(result, path...)
	return append(result, last)
}

func prependPath(first graph.Handle, path []graph.Handle) []graph.Handle {
	result := make([]graph.Handle, 0, len(path)+1)
	result = append(result, first)
	return append(result, path...)
}

// handleFullLength sorts full-length extensions by mismatch count, drops the
// partial ones, and keeps the best extensions with sufficiently low overlap.
func handleFullLength(g *graph.CachedGraph, result []GaplessExtension, overlapThreshold float64) []GaplessExtension {
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Full() && result[j].Full() {
			return result[i].internalScore < result[j].internalScore
		}
		return result[i].Full()
	})
	tail := 0
	for i := range result {
		if !result[i].Full() {
			break // No remaining full-length extensions.
		}
		overlaps := false
		for prev := 0; prev < tail; prev++ {
			if float64(result[i].overlap(g, &result[prev])) > overlapThreshold*float64(result[prev].Length()) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		if i > tail {
			result[tail] = result[i]
		}
		tail++
	}
	return result[:tail]
}

// sameExtension reports whether two extensions align the same read interval
// to the same graph path.
func sameExtension(a, b *GaplessExtension) bool {
	return a.ReadInterval == b.ReadInterval && a.Offset == b.Offset && a.State.Compare(b.State) == 0
}

// removeDuplicates sorts the extensions from left to right and removes
// duplicates and empty extensions.
func removeDuplicates(result []GaplessExtension) []GaplessExtension {
	sort.Slice(result, func(i, j int) bool {
		a, b := &result[i], &result[j]
		if a.ReadInterval != b.ReadInterval {
			if a.ReadInterval.Start != b.ReadInterval.Start {
				return a.ReadInterval.Start < b.ReadInterval.Start
			}
			return a.ReadInterval.End < b.ReadInterval.End
		}
		if c := a.State.Compare(b.State); c != 0 {
			return c < 0
		}
		return a.Offset < b.Offset
	})
	tail := 0
	for i := range result {
		if result[i].Empty() {
			continue
		}
		if tail == 0 || !sameExtension(&result[i], &result[tail-1]) {
			if i > tail {
				result[tail] = result[i]
			}
			tail++
		}
	}
	return result[:tail]
}

// findMismatches realigns the extensions to find the mismatching read
// offsets.
func findMismatches(seq []byte, g *graph.CachedGraph, result []GaplessExtension) {
	for i := range result {
		extension := &result[i]
		if extension.internalScore == 0 {
			continue
		}
		extension.MismatchPositions = make([]int, 0, extension.internalScore)
		nodeOffset, readOffset := extension.Offset, extension.ReadInterval.Start
		for _, handle := range extension.Path {
			target := g.SequenceView(handle)
			for nodeOffset < len(target) && readOffset < extension.ReadInterval.End {
				if target[nodeOffset] != seq[readOffset] {
					extension.MismatchPositions = append(extension.MismatchPositions, readOffset)
				}
				nodeOffset++
				readOffset++
			}
			nodeOffset = 0
		}
	}
}

// trimMismatches trims the extension to the run of its alignment with the
// highest score, breaking ties toward longer runs.  It reports whether
// anything was trimmed.
func (e *GaplessExtender) trimMismatches(extension *GaplessExtension, g *graph.CachedGraph) bool {
	if extension.Exact() {
		return false
	}

	// Start with the initial run of matches.
	mismatch := 0
	current := Interval{extension.ReadInterval.Start, extension.MismatchPositions[0]}
	currentScore := int32(current.Length()) * e.scoring.Match
	if extension.LeftFull {
		currentScore += e.scoring.FullLengthBonus
	}

	// Process the alignment and keep track of the best interval seen so far.
	best := current
	bestScore := currentScore
	for mismatch < len(extension.MismatchPositions) {
		// Either take the mismatch or start a new interval after it.
		if currentScore >= e.scoring.Mismatch {
			current.End++
			currentScore -= e.scoring.Mismatch
		} else {
			current.Start = extension.MismatchPositions[mismatch] + 1
			current.End = current.Start
			currentScore = 0
		}
		mismatch++

		// Process the following run of matches.
		if mismatch == len(extension.MismatchPositions) {
			length := extension.ReadInterval.End - current.End
			current.End = extension.ReadInterval.End
			currentScore += int32(length) * e.scoring.Match
			if extension.RightFull {
				currentScore += e.scoring.FullLengthBonus
			}
		} else {
			length := extension.MismatchPositions[mismatch] - current.End
			current.End = extension.MismatchPositions[mismatch]
			currentScore += int32(length) * e.scoring.Match
		}

		if currentScore > bestScore || (currentScore > 0 && currentScore == bestScore && current.Length() > best.Length()) {
			best = current
			bestScore = currentScore
		}
	}

	// Special cases: no trimming or complete trimming.
	if best == extension.ReadInterval {
		return false
	}
	if best.Length() == 0 {
		extension.Path = nil
		extension.ReadInterval = best
		extension.MismatchPositions = nil
		extension.Score = 0
		extension.LeftFull = false
		extension.RightFull = false
		return true
	}

	// Update the alignment statistics.
	if best.Start > extension.ReadInterval.Start {
		extension.LeftFull = false
	}
	if best.End < extension.ReadInterval.End {
		extension.RightFull = false
	}
	nodeOffset, readOffset := extension.Offset, extension.ReadInterval.Start
	extension.ReadInterval = best
	extension.Score = bestScore

	// Trim the path.
	head := 0
	for head < len(extension.Path) {
		nodeLength := g.Length(extension.Path[head])
		readOffset += nodeLength - nodeOffset
		nodeOffset = 0
		if readOffset > extension.ReadInterval.Start {
			extension.Offset = nodeLength - (readOffset - extension.ReadInterval.Start)
			break
		}
		head++
	}
	tail := head + 1
	for readOffset < extension.ReadInterval.End {
		readOffset += g.Length(extension.Path[tail])
		tail++
	}
	if head > 0 || tail < len(extension.Path) {
		extension.Path = append([]graph.Handle(nil), extension.Path[head:tail]...)
		extension.State = g.BdFind(extension.Path)
	}

	// Trim the mismatches.
	head = 0
	for head < len(extension.MismatchPositions) && extension.MismatchPositions[head] < extension.ReadInterval.Start {
		head++
	}
	tail = head
	for tail < len(extension.MismatchPositions) && extension.MismatchPositions[tail] < extension.ReadInterval.End {
		tail++
	}
	extension.MismatchPositions = append([]int(nil), extension.MismatchPositions[head:tail]...)

	return true
}

// FullLengthExtensions reports whether the results contain a full-length
// extension with at most maxMismatches mismatches.  The results are assumed
// sorted the way Extend returns them, with the best full-length extension
// first.
func FullLengthExtensions(result []GaplessExtension, maxMismatches int) bool {
	return len(result) > 0 && result[0].Full() && result[0].Mismatches() <= maxMismatches
}