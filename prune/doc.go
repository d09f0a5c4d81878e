// Copyright 2026 Whittle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package prune derives pruning units from a traced graph and drives width
// choices across them.
//
// # Overview
//
// This package contains:
//   - Mutator: parses a graph into units and applies subnets
//   - Unit: one independent kept-width decision spanning coupled modules
//   - Subnet: a YAML-loadable map of unit names to choices
//   - Choice: an absolute channel count or a keep ratio
//
// # Basic Usage
//
//	import (
//	    "github.com/whittle-ml/whittle/graph"
//	    "github.com/whittle-ml/whittle/prune"
//	)
//
//	func main() {
//	    arch, _ := graph.LoadArchitecture("resnet_tiny.yaml")
//	    g, _ := graph.Build(arch.Nodes)
//
//	    m := prune.NewMutator(g)
//	    for _, u := range m.PrunableUnits() {
//	        fmt.Println(u)
//	    }
//
//	    // Keep half of every prunable unit.
//	    subnet := prune.Subnet{}
//	    for name := range m.Template() {
//	        subnet[name] = prune.Choice{Ratio: 0.5}
//	    }
//	    if err := m.Apply(subnet); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Subnet Files
//
// A subnet file names a choice per unit. Integer scalars are channel
// counts, float scalars are keep ratios:
//
//	conv1_(0, 16)__out_2_in_2: 8
//	conv2_(0, 32)__out_2_in_2: 0.5
//
// # Masks
//
// After applying a subnet, each unit exposes keep masks for its modules:
//
//	u, _ := m.Unit("conv1_(0, 16)__out_2_in_2")
//	for _, ch := range u.OutRelated() {
//	    mask := u.MaskFor(ch) // one flag per physical channel
//	}
package prune
