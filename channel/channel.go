// Copyright 2026 Whittle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package channel

import (
	"github.com/whittle-ml/whittle/internal/channel"
)

// Arena is the shared store all elements and groups live in. One arena per
// traced model.
type Arena = channel.Arena

// Element is one channel position registered in a group.
type Element = channel.Element

// Group is a set of elements pruned together, organized into buckets: one
// bucket per pruning decision.
type Group = channel.Group

// Tensor is the ordered channel view of one layer boundary.
type Tensor = channel.Tensor

// Span is a half-open index range [Start, End) over tensor positions.
type Span = channel.Span

// Channel associates a contiguous position range of a tensor with the
// module whose parameters span it.
type Channel = channel.Channel

// NewArena creates an empty arena.
func NewArena() *Arena {
	return channel.NewArena()
}

// NewTensor creates a tensor of n fresh elements in one new group, one
// element per bucket. Nothing is coupled yet.
//
// Example:
//
//	arena := channel.NewArena()
//	t := channel.NewTensor(arena, 64)
func NewTensor(a *Arena, n int) *Tensor {
	return channel.NewTensor(a, n)
}

// Cat builds a concatenation view over the inputs' existing elements, in
// order.
//
// Example:
//
//	c := channel.Cat(branchA, branchB)
func Cat(tensors ...*Tensor) *Tensor {
	return channel.Cat(tensors...)
}

// AlignAll refines the groups under equal-length tensors by splitting each
// run at the union of all tensors' breakpoints.
func AlignAll(tensors ...*Tensor) {
	channel.AlignAll(tensors...)
}

// UnionTwo merges two equally sized groups bucket by bucket and returns the
// merged group. Unioning a group with itself is a no-op.
func UnionTwo(a, b Group) Group {
	return channel.UnionTwo(a, b)
}

// Union merges two or more equally sized groups.
func Union(groups ...Group) Group {
	return channel.Union(groups...)
}

// Split partitions a group into consecutive parts of the given bucket
// counts, which must sum to the group's size.
//
// Example:
//
//	parts := channel.Split(g, []int{16, 16}) // halve a 32-wide group
func Split(g Group, sizes []int) []Group {
	return channel.Split(g, sizes)
}

// NewChannel creates a channel descriptor tying a module to a span of
// tensor positions.
func NewChannel(name string, module any, span Span, node any, isOutput bool, expandRatio int) *Channel {
	return channel.NewChannel(name, module, span, node, isOutput, expandRatio)
}
