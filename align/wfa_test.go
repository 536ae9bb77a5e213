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
	"reflect"
	"strings"
	"testing"

	"github.com/graphgenomics/hapalign/graph"
)

func TestWFAConnectExactWithinNode(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	result, err := extender.Connect([]byte("GG"), Position{ID: 4, Offset: 0}, Position{ID: 4, Offset: 2})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if result.Empty() {
		t.Fatal("Connect returned an empty alignment")
	}
	if !reflect.DeepEqual(result.Path, []graph.Handle{fwd(4)}) {
		t.Errorf("path = %v, want [4+]", result.Path)
	}
	if result.NodeOffset != 1 {
		t.Errorf("node offset = %d, want 1", result.NodeOffset)
	}
	if !reflect.DeepEqual(result.Edits, []EditRun{{OpMatch, 2}}) {
		t.Errorf("edits = %v, want [M2]", result.Edits)
	}
	if result.Score != 2 {
		t.Errorf("score = %d, want 2", result.Score)
	}
}

func TestWFAConnectWithMismatch(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	result, err := extender.Connect([]byte("GGCTA"), Position{ID: 1, Offset: 0}, Position{ID: 6, Offset: 0})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	wantPath := []graph.Handle{fwd(1), fwd(4), fwd(5), fwd(6)}
	if !reflect.DeepEqual(result.Path, wantPath) {
		t.Errorf("path = %v, want %v", result.Path, wantPath)
	}
	wantEdits := []EditRun{{OpMatch, 2}, {OpMismatch, 1}, {OpMatch, 2}}
	if !reflect.DeepEqual(result.Edits, wantEdits) {
		t.Errorf("edits = %v, want %v", result.Edits, wantEdits)
	}
	if result.NodeOffset != 1 {
		t.Errorf("node offset = %d, want 1", result.NodeOffset)
	}
	if result.Length != 5 {
		t.Errorf("length = %d, want 5", result.Length)
	}
	if result.Score != 0 {
		t.Errorf("score = %d, want 0", result.Score)
	}
}

func TestWFAConnectWithInsertion(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	result, err := extender.Connect([]byte("GGGTTA"), Position{ID: 1, Offset: 0}, Position{ID: 6, Offset: 0})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	wantEdits := []EditRun{{OpMatch, 4}, {OpInsertion, 1}, {OpMatch, 1}}
	if !reflect.DeepEqual(result.Edits, wantEdits) {
		t.Errorf("edits = %v, want %v", result.Edits, wantEdits)
	}
	if result.Score != -2 {
		t.Errorf("score = %d, want -2", result.Score)
	}
}

func TestWFAConnectWithDeletion(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	result, err := extender.Connect([]byte("GGTA"), Position{ID: 1, Offset: 0}, Position{ID: 6, Offset: 0})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if result.Empty() {
		t.Fatal("Connect returned an empty alignment")
	}
	matches, deletions := 0, 0
	for _, edit := range result.Edits {
		switch edit.Op {
		case OpMatch:
			matches += edit.Length
		case OpDeletion:
			deletions += edit.Length
		default:
			t.Errorf("unexpected edit %v", edit)
		}
	}
	if matches != 4 || deletions != 1 {
		t.Errorf("edits = %v, want 4 matched bases and a one-base deletion", result.Edits)
	}
	if result.Score != -3 {
		t.Errorf("score = %d, want -3", result.Score)
	}
}

func TestWFAConnectUnreachable(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	// No haplotype connects node 1 to node 3.
	result, err := extender.Connect([]byte("GT"), Position{ID: 1, Offset: 0}, Position{ID: 3, Offset: 0})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !result.Empty() {
		t.Errorf("Connect = %+v, want an empty alignment", result)
	}
}

func TestWFAConnectNoHaplotype(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	// Node 3 exists but no haplotype visits it.
	result, err := extender.Connect([]byte("GT"), Position{ID: 3, Offset: 0}, Position{ID: 6, Offset: 0})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !result.Empty() {
		t.Errorf("Connect = %+v, want an empty alignment", result)
	}
}

func TestWFAConnectInvalidPosition(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	if _, err := extender.Connect([]byte("GT"), Position{ID: 42, Offset: 0}, Position{}); err != ErrInvalidPosition {
		t.Errorf("Connect from unknown node: err = %v, want ErrInvalidPosition", err)
	}
	if _, err := extender.Connect([]byte("GT"), Position{ID: 1, Offset: 0}, Position{ID: 42}); err != ErrInvalidPosition {
		t.Errorf("Connect to unknown node: err = %v, want ErrInvalidPosition", err)
	}
}

func TestWFASuffixExact(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	result, err := extender.Suffix([]byte("GGGTAC"), Position{ID: 1, Offset: 0})
	if err != nil {
		t.Fatalf("Suffix: %v", err)
	}
	wantPath := []graph.Handle{fwd(1), fwd(4), fwd(5), fwd(6), fwd(7)}
	if !reflect.DeepEqual(result.Path, wantPath) {
		t.Errorf("path = %v, want %v", result.Path, wantPath)
	}
	if !reflect.DeepEqual(result.Edits, []EditRun{{OpMatch, 6}}) {
		t.Errorf("edits = %v, want [M6]", result.Edits)
	}
	if result.Score != 6 {
		t.Errorf("score = %d, want 6", result.Score)
	}
}

func TestWFASuffixTrailingInsertion(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	// The haplotypes end after "GGGTACA", so the trailing "GG" can only be
	// an insertion.
	result, err := extender.Suffix([]byte("GGGTACAGG"), Position{ID: 1, Offset: 0})
	if err != nil {
		t.Fatalf("Suffix: %v", err)
	}
	wantEdits := []EditRun{{OpMatch, 7}, {OpInsertion, 2}}
	if !reflect.DeepEqual(result.Edits, wantEdits) {
		t.Errorf("edits = %v, want %v", result.Edits, wantEdits)
	}
	if result.Score != -1 {
		t.Errorf("score = %d, want -1", result.Score)
	}
	if result.Length != 9 {
		t.Errorf("length = %d, want 9", result.Length)
	}
}

func TestWFASuffixPartialFallback(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	// The masked tail is too expensive to align in full, so the best
	// partial alignment is returned.
	sequence := []byte("GGGTA" + strings.Repeat("N", 9))
	result, err := extender.Suffix(sequence, Position{ID: 1, Offset: 0})
	if err != nil {
		t.Fatalf("Suffix: %v", err)
	}
	wantPath := []graph.Handle{fwd(1), fwd(4), fwd(5), fwd(6)}
	if !reflect.DeepEqual(result.Path, wantPath) {
		t.Errorf("path = %v, want %v", result.Path, wantPath)
	}
	if !reflect.DeepEqual(result.Edits, []EditRun{{OpMatch, 5}}) {
		t.Errorf("edits = %v, want [M5]", result.Edits)
	}
	if result.Score != 5 {
		t.Errorf("score = %d, want 5", result.Score)
	}
}

func TestWFAPrefix(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	result, err := extender.Prefix([]byte("GGT"), Position{ID: 6, Offset: 0})
	if err != nil {
		t.Fatalf("Prefix: %v", err)
	}
	wantPath := []graph.Handle{fwd(4), fwd(5), fwd(6)}
	if !reflect.DeepEqual(result.Path, wantPath) {
		t.Errorf("path = %v, want %v", result.Path, wantPath)
	}
	if result.NodeOffset != 1 {
		t.Errorf("node offset = %d, want 1", result.NodeOffset)
	}
	if result.SeqOffset != 0 {
		t.Errorf("seq offset = %d, want 0", result.SeqOffset)
	}
	if !reflect.DeepEqual(result.Edits, []EditRun{{OpMatch, 3}}) {
		t.Errorf("edits = %v, want [M3]", result.Edits)
	}
	if result.Score != 3 {
		t.Errorf("score = %d, want 3", result.Score)
	}
}

func TestWFAEmptySequence(t *testing.T) {
	g := testAlignGraph()
	extender := NewWFAExtender(g, DefaultScoring)

	result, err := extender.Connect(nil, Position{ID: 1, Offset: 0}, Position{ID: 6, Offset: 0})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !result.Empty() {
		t.Errorf("Connect with no sequence = %+v, want empty", result)
	}
}
