// Copyright 2026 Whittle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package channel provides the dependency bookkeeping that structured
// pruning is built on.
//
// # Overview
//
// This package contains:
//   - Arena: the shared store all elements and groups live in
//   - Tensor: the ordered channel view of one layer boundary
//   - Group: a set of channels that must be pruned together
//   - Span: a half-open position range
//   - Channel: a module's stake in a group
//
// # Basic Usage
//
//	import (
//	    "github.com/whittle-ml/whittle/channel"
//	)
//
//	func main() {
//	    arena := channel.NewArena()
//
//	    // Two layer boundaries of 32 channels each.
//	    left := channel.NewTensor(arena, 32)
//	    right := channel.NewTensor(arena, 32)
//
//	    // A residual add couples them position by position.
//	    left.UnionWith(right)
//
//	    left.GroupBoundaries() // => [[0, 32)]
//	}
//
// # Coupling Operations
//
// UnionWith couples two equal-length tensors position by position, aligning
// their boundaries first. A replicated view joins a flat tensor one replica
// block at a time:
//
//	a.UnionWith(b)
//
// Cat stitches tensors into a concatenation view sharing the inputs'
// elements:
//
//	c := channel.Cat(a, b)
//
// Expand replicates each channel by a fixed ratio, keeping one pruning
// decision per original channel:
//
//	wide := narrow.Expand(4)
//
// # Failure Model
//
// Structural misuse panics: unions of differently sized groups, splits
// that do not tile, tensors from different arenas. These are programming
// errors in the caller's wiring, not runtime conditions to handle.
package channel
