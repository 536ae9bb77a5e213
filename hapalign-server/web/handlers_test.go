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

package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/graphgenomics/hapalign/align"
	"github.com/graphgenomics/hapalign/graph"
	"github.com/graphgenomics/hapalign/source"
)

const testDefinition = `{
  "nodes": [
    {"id": 1, "sequence": "G"},
    {"id": 2, "sequence": "A"},
    {"id": 4, "sequence": "GGG"},
    {"id": 5, "sequence": "T"},
    {"id": 6, "sequence": "A"},
    {"id": 7, "sequence": "C"},
    {"id": 8, "sequence": "A"},
    {"id": 9, "sequence": "A"}
  ],
  "haplotypes": [
    {"name": "short", "steps": [{"id": 1}, {"id": 4}, {"id": 5}, {"id": 6}, {"id": 7}, {"id": 9}]},
    {"name": "alt", "steps": [{"id": 1}, {"id": 2}, {"id": 4}, {"id": 5}, {"id": 6}, {"id": 8}, {"id": 9}]}
  ]
}`

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	definition, err := source.Decode(strings.NewReader(testDefinition))
	if err != nil {
		t.Fatalf("Decode() returned error: %v", err)
	}
	g, err := definition.Build()
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}
	return setupRouterWithGraph(g)
}

func setupRouterWithGraph(g *graph.Graph) *gin.Engine {
	router := gin.Default()
	AddHandlers(router, g)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHealthzRoute(t *testing.T) {
	router := setupRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestExtendRoute(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/extend", `{
		"sequence": "GTACA",
		"seeds": [{"read_offset": 0, "pos": {"id": 4, "offset": 2}}]
	}`)
	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, w.Header().Get("Hapalign-Request-Id"))

	var response extendResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.Nil(t, err)
	assert.True(t, response.FullLength)
	assert.Equal(t, 1, len(response.Extensions))

	extension := response.Extensions[0]
	assert.Equal(t, int32(15), extension.Score)
	assert.Equal(t, 0, extension.ReadStart)
	assert.Equal(t, 5, extension.ReadEnd)
	assert.True(t, extension.Full)
	assert.Empty(t, extension.Mismatches)
	assert.NotEmpty(t, extension.Path)
	assert.Equal(t, uint64(4), extension.Path[0].Position.ID)
	assert.Equal(t, 2, extension.Path[0].Position.Offset)
}

func TestExtendRouteInvalidSeed(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/extend", `{
		"sequence": "GTACA",
		"seeds": [{"read_offset": 0, "pos": {"id": 99, "offset": 0}}]
	}`)
	assert.Equal(t, 400, w.Code)
}

func TestExtendRouteBadRequest(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/extend", `{"sequence": `)
	assert.Equal(t, 400, w.Code)
}

func TestConnectRoute(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/connect", `{
		"sequence": "GG",
		"from": {"id": 4, "offset": 0},
		"to": {"id": 4, "offset": 2}
	}`)
	assert.Equal(t, 200, w.Code)

	var response alignmentBody
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.Nil(t, err)
	assert.Equal(t, int32(2), response.Score)
	assert.Equal(t, 2, response.SeqLength)
	assert.Equal(t, []align.EditRun{{Op: align.OpMatch, Length: 2}}, response.Edits)
}

func TestConnectRouteInvalidPosition(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/connect", `{
		"sequence": "GG",
		"from": {"id": 99, "offset": 0},
		"to": {"id": 4, "offset": 2}
	}`)
	assert.Equal(t, 400, w.Code)
}

func TestSuffixRoute(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/suffix", `{
		"sequence": "GGGTAC",
		"from": {"id": 1, "offset": 0}
	}`)
	assert.Equal(t, 200, w.Code)

	var response alignmentBody
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.Nil(t, err)
	assert.Equal(t, int32(6), response.Score)
	assert.Equal(t, 6, response.SeqLength)
	assert.Equal(t, []align.EditRun{{Op: align.OpMatch, Length: 6}}, response.Edits)
}

func TestPrefixRoute(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/prefix", `{
		"sequence": "GGT",
		"to": {"id": 6, "offset": 0}
	}`)
	assert.Equal(t, 200, w.Code)

	var response alignmentBody
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.Nil(t, err)
	assert.Equal(t, int32(3), response.Score)
	assert.Equal(t, 3, response.SeqLength)
	assert.Equal(t, []align.EditRun{{Op: align.OpMatch, Length: 3}}, response.Edits)
	assert.NotEmpty(t, response.Path)
	assert.Equal(t, uint64(4), response.Path[0].Position.ID)
}
