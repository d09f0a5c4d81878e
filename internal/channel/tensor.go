package channel

import (
	"fmt"
	"sort"
)

// Span is a half-open index range [Start, End) over tensor positions.
type Span struct {
	Start int
	End   int
}

// Len returns End - Start.
func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.End)
}

// Tensor is the ordered channel view of one layer boundary: Len() positions,
// each backed by an Element registered in some group of the arena. Tensors
// that end up sharing groups prune together.
//
// A tensor's length and element list are fixed at construction. Expand and
// Cat build new tensors; UnionWith and AlignAll regroup the elements in
// place but never move them between tensors.
//
// Example:
//
//	arena := channel.NewArena()
//	left := channel.NewTensor(arena, 32)
//	right := channel.NewTensor(arena, 32)
//	left.UnionWith(right) // a residual add joins the branches
//	left.GroupBoundaries() // => [[0, 32)]
type Tensor struct {
	arena *Arena
	elems []int // element ids, one per position
}

// NewTensor creates a tensor of n fresh elements, all registered in one new
// group with one element per bucket, keys 0..n-1. This is the finest
// possible grouping: nothing is coupled yet.
func NewTensor(a *Arena, n int) *Tensor {
	if n < 1 {
		panic(fmt.Sprintf("channel: tensor length %d, need at least 1", n))
	}
	g := a.NewGroup()
	t := &Tensor{arena: a, elems: make([]int, n)}
	for i := 0; i < n; i++ {
		e := a.newElement(i)
		g.AddElement(e, i)
		t.elems[i] = e.id
	}
	return t
}

// Cat builds a stitched tensor over the existing elements of the inputs, in
// order. No elements or groups are created, so the result re-exposes each
// input's runs and anything unioned against it propagates to the inputs.
// This models a concatenation boundary.
func Cat(tensors ...*Tensor) *Tensor {
	if len(tensors) == 0 {
		panic("channel: cat of no tensors")
	}
	a := tensors[0].arena
	var elems []int
	for _, t := range tensors {
		if t.arena != a {
			panic("channel: cat of tensors from different arenas")
		}
		elems = append(elems, t.elems...)
	}
	return &Tensor{arena: a, elems: elems}
}

// Len returns the number of positions.
func (t *Tensor) Len() int {
	return len(t.elems)
}

// ElementAt returns the element at position i.
func (t *Tensor) ElementAt(i int) Element {
	return Element{arena: t.arena, id: t.elems[i]}
}

// Arena returns the arena the tensor's elements live in.
func (t *Tensor) Arena() *Arena {
	return t.arena
}

// block pairs a span of tensor positions with the group owning them.
type block struct {
	Span
	group Group
}

// blocks derives the tensor's current run structure: maximal runs of
// positions owned by one group whose bucket keys never decrease. A run
// breaks when the owning group changes or the bucket key drops, which
// happens at split seams and when a stitched tensor re-enters a group.
// Equal consecutive keys continue a run; expanded positions share buckets
// and must read as one block.
func (t *Tensor) blocks() []block {
	var out []block
	start := 0
	curGroup := t.ElementAt(0).Group()
	curKey := t.ElementAt(0).BucketKey()
	for i := 1; i < t.Len(); i++ {
		e := t.ElementAt(i)
		g, k := e.Group(), e.BucketKey()
		if g != curGroup || curKey > k {
			out = append(out, block{Span: Span{Start: start, End: i}, group: curGroup})
			start = i
		}
		curGroup, curKey = g, k
	}
	return append(out, block{Span: Span{Start: start, End: t.Len()}, group: curGroup})
}

// GroupBoundaries returns the ordered spans of the tensor's runs. Adjacent
// spans are contiguous and together cover [0, Len()).
func (t *Tensor) GroupBoundaries() []Span {
	bs := t.blocks()
	spans := make([]Span, len(bs))
	for i, b := range bs {
		spans[i] = b.Span
	}
	return spans
}

// Groups returns the group owning each run, parallel to GroupBoundaries.
// A group appears once per run, so a stitched tensor may report one group
// several times.
func (t *Tensor) Groups() []Group {
	bs := t.blocks()
	gs := make([]Group, len(bs))
	for i, b := range bs {
		gs[i] = b.group
	}
	return gs
}

// AlignAll refines the groups under the given equal-length tensors by
// splitting the group owning each run at the union of all tensors'
// breakpoints. Tensors whose breakpoints already coincide are left
// untouched, so aligning is idempotent. A single tensor is a no-op. A
// tensor stitched from repeated elements can come out finer than the
// common breakpoints, since a split reaches it once per repetition.
func AlignAll(tensors ...*Tensor) {
	if len(tensors) == 0 {
		panic("channel: align of no tensors")
	}
	n := tensors[0].Len()
	for _, t := range tensors[1:] {
		if t.Len() != n {
			panic(fmt.Sprintf("channel: align of tensors with lengths %d and %d", n, t.Len()))
		}
	}
	points := make(map[int]struct{})
	for _, t := range tensors {
		for _, s := range t.GroupBoundaries() {
			points[s.Start] = struct{}{}
			points[s.End] = struct{}{}
		}
	}
	cuts := make([]int, 0, len(points))
	for p := range points {
		cuts = append(cuts, p)
	}
	sort.Ints(cuts)
	if len(cuts) <= 2 {
		return
	}
	for _, t := range tensors {
		t.alignTo(cuts)
	}
}

// alignTo splits the group owning each run at the cut points falling inside
// the run. Runs are re-derived after every split. A split reaches every run
// sharing the group, so a run recorded before the split may already conform
// by the time its turn comes.
func (t *Tensor) alignTo(cuts []int) {
	for {
		refined := false
		for _, blk := range t.blocks() {
			sub := refineSizes(blk.Span, cuts)
			if len(sub) < 2 {
				continue
			}
			Split(blk.group, sub)
			refined = true
			break
		}
		if !refined {
			return
		}
	}
}

// refineSizes returns the lengths of the pieces the cut points slice the
// span into. Cuts outside the span are ignored.
func refineSizes(s Span, cuts []int) []int {
	var sizes []int
	prev := s.Start
	for _, c := range cuts {
		if c <= prev {
			continue
		}
		if c >= s.End {
			break
		}
		sizes = append(sizes, c-prev)
		prev = c
	}
	return append(sizes, s.End-prev)
}

// UnionWith couples the receiver with other position by position: the two
// tensors are aligned, then the bucket holding other[i] is merged into the
// bucket holding t[i]. Bucket mates move together, so couplings made by
// earlier unions and by expansion replicas carry over, and a replicated
// view absorbs a flat tensor one replica block at a time. Positions already
// sharing a bucket are skipped, so repeating a union changes nothing.
// Groups that lost elements are re-indexed afterwards. This models an
// elementwise join of two branches.
func (t *Tensor) UnionWith(other *Tensor) {
	if t.Len() != other.Len() {
		panic(fmt.Sprintf("channel: union of tensors with lengths %d and %d", t.Len(), other.Len()))
	}
	AlignAll(t, other)
	sources := make(map[Group]struct{})
	for i := 0; i < t.Len(); i++ {
		dst := t.ElementAt(i)
		src := other.ElementAt(i)
		dg, dk := dst.Group(), dst.BucketKey()
		sg, sk := src.Group(), src.BucketKey()
		if dg == sg && dk == sk {
			continue
		}
		for _, e := range sg.Bucket(sk) {
			sg.RemoveElement(e)
			dg.AddElement(e, dk)
		}
		sources[sg] = struct{}{}
	}
	for g := range sources {
		g.reindex()
	}
}

// Expand returns a new tensor of Len()*ratio positions. The ratio fresh
// elements at positions i*ratio..i*ratio+ratio-1 all join the bucket of the
// receiver's element at position i, so one pruning decision covers all
// ratio copies. This models a channel multiplier. The receiver is unchanged.
func (t *Tensor) Expand(ratio int) *Tensor {
	if ratio < 1 {
		panic(fmt.Sprintf("channel: expand ratio %d, need at least 1", ratio))
	}
	nt := NewTensor(t.arena, t.Len()*ratio)
	for i := 0; i < t.Len(); i++ {
		old := t.ElementAt(i)
		g, key := old.Group(), old.BucketKey()
		for j := 0; j < ratio; j++ {
			g.AddElement(nt.ElementAt(i*ratio+j), key)
		}
	}
	return nt
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(len=%d, runs=%d)", t.Len(), len(t.blocks()))
}
