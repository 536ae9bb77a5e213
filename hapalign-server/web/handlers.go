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

// Package web exposes the aligners over HTTP as gin handlers.
package web

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/graphgenomics/hapalign/align"
	"github.com/graphgenomics/hapalign/graph"
)

type extendRequest struct {
	Sequence         string       `json:"sequence"`
	Seeds            []align.Seed `json:"seeds"`
	MaxMismatches    *int         `json:"max_mismatches,omitempty"`
	OverlapThreshold *float64     `json:"overlap_threshold,omitempty"`
}

type extensionBody struct {
	Score      int32           `json:"score"`
	ReadStart  int             `json:"read_start"`
	ReadEnd    int             `json:"read_end"`
	Mismatches []int           `json:"mismatches,omitempty"`
	Full       bool            `json:"full"`
	Path       []align.Mapping `json:"path"`
}

type extendResponse struct {
	Extensions []extensionBody `json:"extensions"`
	FullLength bool            `json:"full_length"`
}

type connectRequest struct {
	Sequence string         `json:"sequence"`
	From     align.Position `json:"from"`
	To       align.Position `json:"to"`
}

type suffixRequest struct {
	Sequence string         `json:"sequence"`
	From     align.Position `json:"from"`
}

type prefixRequest struct {
	Sequence string         `json:"sequence"`
	To       align.Position `json:"to"`
}

type alignmentBody struct {
	Score     int32           `json:"score"`
	SeqStart  int             `json:"seq_start"`
	SeqLength int             `json:"seq_length"`
	Edits     []align.EditRun `json:"edits"`
	Path      []align.Mapping `json:"path"`
}

// AddHandlers attaches all alignment endpoints to router, serving g.
func AddHandlers(router *gin.Engine, g *graph.Graph) {
	router.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	router.POST("/extend", NewExtendHandler(g))
	router.POST("/connect", NewConnectHandler(g))
	router.POST("/suffix", NewSuffixHandler(g))
	router.POST("/prefix", NewPrefixHandler(g))
}

// NewExtendHandler builds a gin handler that runs gapless seed extension.
func NewExtendHandler(g *graph.Graph) func(c *gin.Context) {
	extender := align.NewGaplessExtender(g, align.DefaultScoring)
	return func(c *gin.Context) {
		c.Header("Hapalign-Request-Id", uuid.New().String())

		var request extendRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.String(400, "Error parsing request")
			return
		}

		maxMismatches := align.DefaultMaxMismatches
		if request.MaxMismatches != nil {
			maxMismatches = *request.MaxMismatches
		}
		threshold := align.DefaultOverlapThreshold
		if request.OverlapThreshold != nil {
			threshold = *request.OverlapThreshold
		}

		cache := graph.NewCachedGraph(g)
		sequence := []byte(request.Sequence)
		extensions, err := extender.Extend(request.Seeds, sequence, cache, maxMismatches, threshold)
		if err != nil {
			c.String(400, fmt.Sprintf("Error extending seeds: %v", err))
			return
		}

		response := extendResponse{
			Extensions: make([]extensionBody, len(extensions)),
			FullLength: align.FullLengthExtensions(extensions, maxMismatches),
		}
		for i := range extensions {
			e := &extensions[i]
			response.Extensions[i] = extensionBody{
				Score:      e.Score,
				ReadStart:  e.ReadInterval.Start,
				ReadEnd:    e.ReadInterval.End,
				Mismatches: e.MismatchPositions,
				Full:       e.Full(),
				Path:       e.ToPath(cache, sequence),
			}
		}
		c.JSON(200, &response)
	}
}

// NewConnectHandler builds a gin handler that aligns a sequence between two
// graph positions.
func NewConnectHandler(g *graph.Graph) func(c *gin.Context) {
	extender := align.NewWFAExtender(g, align.DefaultScoring)
	return func(c *gin.Context) {
		c.Header("Hapalign-Request-Id", uuid.New().String())

		var request connectRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.String(400, "Error parsing request")
			return
		}

		sequence := []byte(request.Sequence)
		result, err := extender.Connect(sequence, request.From, request.To)
		if err != nil {
			c.String(400, fmt.Sprintf("Error aligning sequence: %v", err))
			return
		}
		c.JSON(200, newAlignmentBody(g, &result, sequence))
	}
}

// NewSuffixHandler builds a gin handler that aligns a sequence running
// forward from a graph position.
func NewSuffixHandler(g *graph.Graph) func(c *gin.Context) {
	extender := align.NewWFAExtender(g, align.DefaultScoring)
	return func(c *gin.Context) {
		c.Header("Hapalign-Request-Id", uuid.New().String())

		var request suffixRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.String(400, "Error parsing request")
			return
		}

		sequence := []byte(request.Sequence)
		result, err := extender.Suffix(sequence, request.From)
		if err != nil {
			c.String(400, fmt.Sprintf("Error aligning sequence: %v", err))
			return
		}
		c.JSON(200, newAlignmentBody(g, &result, sequence))
	}
}

// NewPrefixHandler builds a gin handler that aligns a sequence running
// backward from a graph position.
func NewPrefixHandler(g *graph.Graph) func(c *gin.Context) {
	extender := align.NewWFAExtender(g, align.DefaultScoring)
	return func(c *gin.Context) {
		c.Header("Hapalign-Request-Id", uuid.New().String())

		var request prefixRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.String(400, "Error parsing request")
			return
		}

		sequence := []byte(request.Sequence)
		result, err := extender.Prefix(sequence, request.To)
		if err != nil {
			c.String(400, fmt.Sprintf("Error aligning sequence: %v", err))
			return
		}
		c.JSON(200, newAlignmentBody(g, &result, sequence))
	}
}

func newAlignmentBody(g *graph.Graph, a *align.Alignment, sequence []byte) alignmentBody {
	return alignmentBody{
		Score:     a.Score,
		SeqStart:  a.SeqOffset,
		SeqLength: a.Length,
		Edits:     a.Edits,
		Path:      a.ToPath(g, sequence),
	}
}
