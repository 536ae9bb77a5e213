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

// This binary provides an alignment server that backs onto a haplotype
// graph loaded from a local file or from GCS.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/profile"

	"github.com/graphgenomics/hapalign/hapalign-server/web"
	"github.com/graphgenomics/hapalign/source"
)

var (
	port        = flag.Int("port", 8080, "HTTP service port")
	graphFile   = flag.String("graph", "", "graph definition to serve (local path or gs:// URL)")
	bearerToken = flag.String("bearer_token", "", "OAuth2 bearer token used to read private GCS objects")

	profileMode = flag.String("profile", "", "write a cpu or mem profile to the current directory")
)

func main() {
	flag.Parse()

	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile).Stop()
	case "":
	default:
		log.Fatalf("Unsupported profile mode %q", *profileMode)
	}

	if *graphFile == "" {
		log.Fatalf("No graph definition specified")
	}

	g, definition, err := source.Open(context.Background(), *graphFile, *bearerToken)
	if err != nil {
		log.Fatalf("Failed to load graph from %q: %v", *graphFile, err)
	}
	log.Printf("Serving %d nodes and %d haplotypes from %q", len(definition.Nodes), len(definition.Haplotypes), *graphFile)

	router := gin.Default()
	web.AddHandlers(router, g)

	log.Fatalf("Server exited: %v", http.ListenAndServe(fmt.Sprintf(":%d", *port), router))
}
