package channel

import "fmt"

// Element is a handle to one channel position of one tensor. Every element
// belongs to exactly one group at any observable time; union, split and
// re-index move elements between buckets but never create or destroy them.
//
// Elements are comparable: two handles are equal iff they refer to the same
// arena slot. The zero Element refers to nothing.
type Element struct {
	arena *Arena
	id    int
}

// Valid reports whether the handle refers to an arena element.
func (e Element) Valid() bool {
	return e.arena != nil
}

// Pos returns the element's position inside the tensor it was created for.
// The position is fixed at construction and survives every regrouping.
func (e Element) Pos() int {
	return e.state().pos
}

// Group returns the group that currently owns the element.
func (e Element) Group() Group {
	return Group{arena: e.arena, id: e.state().group}
}

// BucketKey returns the element's bucket key inside its current group.
func (e Element) BucketKey() int {
	return e.state().bucket
}

func (e Element) state() *elemState {
	return &e.arena.elems[e.id]
}

func (e Element) String() string {
	s := e.state()
	return fmt.Sprintf("Element(pos=%d, group=%d, bucket=%d)", s.pos, s.group, s.bucket)
}
