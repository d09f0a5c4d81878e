package channel

import "fmt"

// Group is a handle to one equivalence class of the partition: an ordered
// sequence of buckets, keyed 0..Len()-1, where each bucket holds the
// elements that must share one pruning decision. Unions pull positions from
// several tensors into the same group; splits carve a group back into
// independent ranges.
//
// Groups are comparable: two handles are equal iff they refer to the same
// arena slot. The zero Group refers to nothing.
type Group struct {
	arena *Arena
	id    int
}

// Valid reports whether the handle refers to an arena group.
func (g Group) Valid() bool {
	return g.arena != nil && g.id >= 0
}

// ID returns the group's stable arena id. Useful for logging and as a map
// key when the handle itself cannot be used.
func (g Group) ID() int {
	return g.id
}

// Len returns the number of buckets. This is the group's logical channel
// count: one pruning decision per bucket.
func (g Group) Len() int {
	return len(g.state().buckets)
}

// NumElements returns the total number of elements across all buckets.
func (g Group) NumElements() int {
	n := 0
	for _, b := range g.state().buckets {
		n += len(b)
	}
	return n
}

// Bucket returns the elements registered under the given key.
func (g Group) Bucket(key int) []Element {
	st := g.state()
	if key < 0 || key >= len(st.buckets) {
		panic(fmt.Sprintf("channel: bucket key %d out of range [0, %d)", key, len(st.buckets)))
	}
	ids := st.buckets[key]
	elems := make([]Element, len(ids))
	for i, id := range ids {
		elems[i] = Element{arena: g.arena, id: id}
	}
	return elems
}

// AddElement registers the element under the given bucket key. An element
// owned by another group is removed from it first, so the reparent is
// atomic from the caller's point of view. Re-adding an element the group
// already holds panics.
func (g Group) AddElement(e Element, key int) {
	if e.arena != g.arena {
		panic("channel: element and group belong to different arenas")
	}
	if key < 0 {
		panic(fmt.Sprintf("channel: negative bucket key %d", key))
	}
	es := e.state()
	if es.group == g.id {
		panic(fmt.Sprintf("channel: element %d already registered in group %d", e.id, g.id))
	}
	if es.group >= 0 {
		Group{arena: g.arena, id: es.group}.RemoveElement(e)
	}
	st := g.state()
	for len(st.buckets) <= key {
		st.buckets = append(st.buckets, nil)
	}
	st.buckets[key] = append(st.buckets[key], e.id)
	es.group = g.id
	es.bucket = key
}

// RemoveElement detaches the element from the group. The element must
// currently belong to the group. The bucket it leaves may become empty;
// empty buckets survive until the next re-index.
func (g Group) RemoveElement(e Element) {
	es := e.state()
	if e.arena != g.arena || es.group != g.id {
		panic(fmt.Sprintf("channel: element %d does not belong to group %d", e.id, g.id))
	}
	st := g.state()
	b := st.buckets[es.bucket]
	for i, id := range b {
		if id == e.id {
			st.buckets[es.bucket] = append(b[:i], b[i+1:]...)
			break
		}
	}
	es.group = -1
	es.bucket = -1
}

// UnionTwo merges b into a bucket by bucket and returns a. Both groups must
// have the same number of buckets; every element of b's bucket i moves into
// a's bucket i. Afterwards b holds no buckets and is garbage. Unioning a
// group with itself is a no-op.
func UnionTwo(a, b Group) Group {
	if a.arena != b.arena {
		panic("channel: union of groups from different arenas")
	}
	if a.id == b.id {
		return a
	}
	if a.Len() != b.Len() {
		panic(fmt.Sprintf("channel: union of groups with %d and %d buckets", a.Len(), b.Len()))
	}
	for key := 0; key < b.Len(); key++ {
		ids := append([]int(nil), b.state().buckets[key]...)
		for _, id := range ids {
			a.AddElement(Element{arena: a.arena, id: id}, key)
		}
	}
	b.state().buckets = nil
	return a
}

// Union merges all groups into the first and returns it. At least two
// groups are required.
func Union(groups ...Group) Group {
	if len(groups) < 2 {
		panic(fmt.Sprintf("channel: union of %d groups, need at least 2", len(groups)))
	}
	u := groups[0]
	for _, g := range groups[1:] {
		u = UnionTwo(u, g)
	}
	return u
}

// Split partitions the group's bucket range into consecutive blocks of the
// given sizes and returns one new group per block, each re-keyed from 0.
// The sizes must be positive and sum to Len(g); otherwise Split panics
// before mutating anything. A single block covering the whole group is a
// no-op returning the group itself.
func Split(g Group, sizes []int) []Group {
	total := 0
	for _, n := range sizes {
		if n <= 0 {
			panic(fmt.Sprintf("channel: non-positive split size %d", n))
		}
		total += n
	}
	if total != g.Len() {
		panic(fmt.Sprintf("channel: split sizes sum to %d, group %d has %d buckets", total, g.id, g.Len()))
	}
	if len(sizes) == 1 {
		return []Group{g}
	}
	out := make([]Group, 0, len(sizes))
	for _, n := range sizes {
		out = append(out, g.splitPrefix(n))
	}
	return out
}

// splitPrefix moves the first n buckets into a new group, re-keyed from 0,
// then re-indexes the remainder of g.
func (g Group) splitPrefix(n int) Group {
	ng := g.arena.NewGroup()
	for key := 0; key < n; key++ {
		ids := append([]int(nil), g.state().buckets[key]...)
		for _, id := range ids {
			ng.AddElement(Element{arena: g.arena, id: id}, key)
		}
	}
	g.reindex()
	return ng
}

// reindex drops empty buckets and compacts the surviving keys to 0..M,
// preserving relative order. Bookkeeping corruption, an element recorded
// under a different key than the bucket holding it or a key moving
// backwards, panics with the group id and the offending key.
func (g Group) reindex() {
	st := g.state()
	j := 0
	for i, ids := range st.buckets {
		if len(ids) == 0 {
			continue
		}
		if j > i {
			panic(fmt.Sprintf("channel: group %d bucket %d re-keyed out of order", g.id, i))
		}
		if j < i {
			for _, id := range ids {
				es := &g.arena.elems[id]
				if es.group != g.id || es.bucket != i {
					panic(fmt.Sprintf("channel: group %d bucket %d holds element %d recorded at group %d bucket %d",
						g.id, i, id, es.group, es.bucket))
				}
				es.bucket = j
			}
		}
		st.buckets[j] = ids
		j++
	}
	st.buckets = st.buckets[:j]
}

func (g Group) state() *groupState {
	return &g.arena.groups[g.id]
}

func (g Group) String() string {
	return fmt.Sprintf("Group(id=%d, buckets=%d, elems=%d)", g.id, g.Len(), g.NumElements())
}
