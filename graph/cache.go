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

import "github.com/graphgenomics/hapalign/gbwt"

// CachedGraph memoizes sequence views and search-state seeding for one
// caller.  A CachedGraph is not safe for concurrent use; allocate one per
// alignment call, or one per worker when the caller manages its own.
type CachedGraph struct {
	*Graph
	views    map[Handle][]byte
	bdStates map[Handle]gbwt.BidirectionalState
}

// NewCachedGraph returns a fresh cache over g.
func NewCachedGraph(g *Graph) *CachedGraph {
	return &CachedGraph{
		Graph:    g,
		views:    make(map[Handle][]byte),
		bdStates: make(map[Handle]gbwt.BidirectionalState),
	}
}

// SequenceView returns the node sequence on the handle's strand.  The
// returned slice is shared and must not be modified.
func (c *CachedGraph) SequenceView(handle Handle) []byte {
	if view, ok := c.views[handle]; ok {
		return view
	}
	view := c.Graph.SequenceView(handle)
	c.views[handle] = view
	return view
}

// GetBdState seeds a bidirectional search at the handle.
func (c *CachedGraph) GetBdState(handle Handle) gbwt.BidirectionalState {
	if state, ok := c.bdStates[handle]; ok {
		return state
	}
	state := c.Graph.GetBdState(handle)
	c.bdStates[handle] = state
	return state
}
