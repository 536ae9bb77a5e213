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

// Package source loads sequence graphs and their haplotype paths from JSON
// definitions stored on the local filesystem or in Google Cloud Storage.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/graphgenomics/hapalign/gbwt"
	"github.com/graphgenomics/hapalign/graph"
)

// NodeDefinition declares one node of the graph.
type NodeDefinition struct {
	ID       uint64 `json:"id"`
	Sequence string `json:"sequence"`
}

// Step is one oriented node visit of a haplotype path.
type Step struct {
	ID        uint64 `json:"id"`
	IsReverse bool   `json:"reverse,omitempty"`
}

// HaplotypeDefinition declares one stored haplotype path.
type HaplotypeDefinition struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// GraphDefinition is the serialized form of a graph and its haplotypes.
type GraphDefinition struct {
	Nodes      []NodeDefinition      `json:"nodes"`
	Haplotypes []HaplotypeDefinition `json:"haplotypes"`
}

// Decode reads a graph definition from r.
func Decode(r io.Reader) (*GraphDefinition, error) {
	var definition GraphDefinition
	if err := json.NewDecoder(r).Decode(&definition); err != nil {
		return nil, fmt.Errorf("decoding graph definition: %v", err)
	}
	return &definition, nil
}

// Validate checks the definition for internal consistency.
func (d *GraphDefinition) Validate() error {
	if len(d.Nodes) == 0 {
		return fmt.Errorf("graph definition has no nodes")
	}
	ids := make(map[uint64]bool, len(d.Nodes))
	for _, node := range d.Nodes {
		if node.ID == 0 {
			return fmt.Errorf("node identifiers must be positive")
		}
		if node.Sequence == "" {
			return fmt.Errorf("node %d has no sequence", node.ID)
		}
		if ids[node.ID] {
			return fmt.Errorf("duplicate node %d", node.ID)
		}
		ids[node.ID] = true
	}
	for _, haplotype := range d.Haplotypes {
		if len(haplotype.Steps) == 0 {
			return fmt.Errorf("haplotype %q has no steps", haplotype.Name)
		}
		for _, step := range haplotype.Steps {
			if !ids[step.ID] {
				return fmt.Errorf("haplotype %q visits unknown node %d", haplotype.Name, step.ID)
			}
		}
	}
	return nil
}

// Build validates the definition and constructs the graph and its haplotype
// index.
func (d *GraphDefinition) Build() (*graph.Graph, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	sequences := make(map[uint64]string, len(d.Nodes))
	for _, node := range d.Nodes {
		sequences[node.ID] = node.Sequence
	}
	paths := make([][]gbwt.Node, 0, len(d.Haplotypes))
	for _, haplotype := range d.Haplotypes {
		path := make([]gbwt.Node, len(haplotype.Steps))
		for i, step := range haplotype.Steps {
			path[i] = gbwt.Encode(step.ID, step.IsReverse)
		}
		paths = append(paths, path)
	}
	return graph.New(sequences, gbwt.NewIndex(paths)), nil
}

// Names returns the haplotype names in storage order, for resolving the
// path identifiers reported by gbwt.Index.Locate.
func (d *GraphDefinition) Names() []string {
	names := make([]string, len(d.Haplotypes))
	for i, haplotype := range d.Haplotypes {
		names[i] = haplotype.Name
	}
	return names
}

const gcsPrefix = "gs://"

// Open reads a graph definition from the given location and builds the
// graph.  Locations starting with gs:// are read from Google Cloud Storage
// using the bearer token, or anonymously when the token is empty; anything
// else is a local file path.  It also returns the parsed definition for
// access to the haplotype names.
func Open(ctx context.Context, location, bearerToken string) (*graph.Graph, *GraphDefinition, error) {
	r, err := open(ctx, location, bearerToken)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	definition, err := Decode(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %q: %v", location, err)
	}
	g, err := definition.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("building graph from %q: %v", location, err)
	}
	return g, definition, nil
}

func open(ctx context.Context, location, bearerToken string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, gcsPrefix) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("opening graph file: %v", err)
		}
		return f, nil
	}

	bucket, object, err := splitGCSPath(location)
	if err != nil {
		return nil, err
	}
	var opts []option.ClientOption
	if bearerToken != "" {
		token := oauth2.Token{TokenType: "Bearer", AccessToken: bearerToken}
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&token)))
	} else {
		// Without a token only publicly-readable objects can be used.
		opts = append(opts, option.WithHTTPClient(http.DefaultClient))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %v", err)
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading object %q: %v", location, err)
	}
	return r, nil
}

func splitGCSPath(location string) (bucket, object string, err error) {
	path := strings.TrimPrefix(location, gcsPrefix)
	i := strings.IndexByte(path, '/')
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("invalid object location %q", location)
	}
	return path[:i], path[i+1:], nil
}
