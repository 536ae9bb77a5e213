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

package graph

import (
	"reflect"
	"testing"

	"github.com/graphgenomics/hapalign/gbwt"
)

func testGraph() *Graph {
	n := func(id uint64) gbwt.Node { return gbwt.Encode(id, false) }
	index := gbwt.NewIndex([][]gbwt.Node{
		{n(1), n(2), n(4)},
		{n(1), n(3), n(4)},
	})
	return New(map[uint64]string{1: "GAT", 2: "A", 3: "C", 4: "TACA"}, index)
}

func TestSequenceView(t *testing.T) {
	g := testGraph()
	tests := []struct {
		id        uint64
		isReverse bool
		want      string
	}{
		{1, false, "GAT"},
		{1, true, "ATC"},
		{4, false, "TACA"},
		{4, true, "TGTA"},
	}
	for _, tc := range tests {
		handle := g.GetHandle(tc.id, tc.isReverse)
		if got := string(g.SequenceView(handle)); got != tc.want {
			t.Errorf("SequenceView(%d, %v) = %q, want %q", tc.id, tc.isReverse, got, tc.want)
		}
		if got := g.Length(handle); got != len(tc.want) {
			t.Errorf("Length(%d, %v) = %d, want %d", tc.id, tc.isReverse, got, len(tc.want))
		}
	}
}

func TestHasNode(t *testing.T) {
	g := testGraph()
	if !g.HasNode(1) || !g.HasNode(4) {
		t.Error("HasNode misses a known node")
	}
	if g.HasNode(5) {
		t.Error("HasNode reports an unknown node")
	}
}

func TestHandleRoundTrip(t *testing.T) {
	g := testGraph()
	handle := g.GetHandle(3, true)
	if handle.ID() != 3 || !handle.IsReverse() {
		t.Errorf("GetHandle(3, true) decodes to (%d, %v)", handle.ID(), handle.IsReverse())
	}
	if flipped := handle.Flip(); flipped.ID() != 3 || flipped.IsReverse() {
		t.Errorf("Flip() = (%d, %v)", flipped.ID(), flipped.IsReverse())
	}
	if HandleToNode(handle) != gbwt.Encode(3, true) {
		t.Error("HandleToNode does not preserve the token")
	}
}

func TestFollowPaths(t *testing.T) {
	g := testGraph()

	var forward []Handle
	g.FollowPaths(g.GetBdState(g.GetHandle(1, false)), false, func(next gbwt.BidirectionalState) bool {
		forward = append(forward, NodeToHandle(next.Last))
		return true
	})
	want := []Handle{g.GetHandle(2, false), g.GetHandle(3, false)}
	if !reflect.DeepEqual(forward, want) {
		t.Errorf("FollowPaths forward from 1 visited %v, want %v", forward, want)
	}

	var backward []Handle
	g.FollowPaths(g.GetBdState(g.GetHandle(4, false)), true, func(next gbwt.BidirectionalState) bool {
		backward = append(backward, NodeToHandle(next.First))
		return true
	})
	if !reflect.DeepEqual(backward, want) {
		t.Errorf("FollowPaths backward from 4 visited %v, want %v", backward, want)
	}
}

func TestBdFindPath(t *testing.T) {
	g := testGraph()
	path := []Handle{g.GetHandle(1, false), g.GetHandle(2, false), g.GetHandle(4, false)}
	if state := g.BdFind(path); state.Empty() || state.Size() != 1 {
		t.Errorf("BdFind(1 > 2 > 4) = %+v, want one occurrence", state)
	}
	unsupported := []Handle{g.GetHandle(2, false), g.GetHandle(3, false)}
	if state := g.BdFind(unsupported); !state.Empty() {
		t.Errorf("BdFind(2 > 3) = %+v, want empty", state)
	}
}

func TestCachedGraph(t *testing.T) {
	g := testGraph()
	cache := NewCachedGraph(g)

	handle := g.GetHandle(4, true)
	first := cache.SequenceView(handle)
	second := cache.SequenceView(handle)
	if string(first) != "TGTA" || string(second) != "TGTA" {
		t.Errorf("cached SequenceView = %q, %q, want TGTA", first, second)
	}

	state := cache.GetBdState(g.GetHandle(1, false))
	again := cache.GetBdState(g.GetHandle(1, false))
	if state.Compare(again) != 0 {
		t.Error("cached GetBdState differs between calls")
	}
	if state.Compare(g.GetBdState(g.GetHandle(1, false))) != 0 {
		t.Error("cached GetBdState differs from the graph")
	}
}
