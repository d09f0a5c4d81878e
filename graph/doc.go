// Copyright 2026 Whittle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph traces an architecture description into coupled channel
// groups.
//
// # Overview
//
// This package contains:
//   - NodeSpec and Architecture: the YAML-loadable model description
//   - Kind: the closed set of structural node behaviors
//   - Build: topological trace wiring channel tensors through the graph
//   - Registry: per-kind trace rules, replaceable for custom modules
//
// # Basic Usage
//
//	import (
//	    "github.com/whittle-ml/whittle/graph"
//	)
//
//	func main() {
//	    arch, err := graph.LoadArchitecture("resnet_tiny.yaml")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    g, err := graph.Build(arch.Nodes)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    for _, n := range g.Nodes() {
//	        fmt.Println(n, n.OutTensor())
//	    }
//	}
//
// # Architecture Files
//
// An architecture is a list of named nodes with kinds and edges:
//
//	name: tiny-net
//	nodes:
//	  - {name: image, kind: input, out_channels: 3}
//	  - {name: conv1, kind: conv, inputs: [image], in_channels: 3, out_channels: 16}
//	  - {name: bn1, kind: norm, inputs: [conv1]}
//	  - {name: head, kind: output, inputs: [bn1]}
//
// # Custom Trace Rules
//
// Kinds dispatch through a Registry. Replacing a rule changes how a kind
// routes channel dependencies:
//
//	reg := graph.NewRegistry()
//	reg.Register(graph.KindPassthrough, myRule)
//	g, err := graph.Build(specs, graph.WithRegistry(reg))
package graph
