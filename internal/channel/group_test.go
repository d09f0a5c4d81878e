package channel

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkPartition verifies the global partition invariant: every attached
// element sits in exactly one bucket of exactly one group, exactly where its
// own bookkeeping says it is, and detached elements sit nowhere.
func checkPartition(t *testing.T, a *Arena) {
	t.Helper()
	type loc struct{ group, bucket int }
	found := make(map[int]loc)
	for gid := range a.groups {
		for key, ids := range a.groups[gid].buckets {
			for _, id := range ids {
				_, dup := found[id]
				require.False(t, dup, "element %d appears in more than one bucket", id)
				found[id] = loc{group: gid, bucket: key}
			}
		}
	}
	for id := range a.elems {
		es := a.elems[id]
		where, ok := found[id]
		if es.group < 0 {
			require.False(t, ok, "detached element %d still bucketed at %v", id, where)
			continue
		}
		require.True(t, ok, "element %d recorded in group %d but not bucketed", id, es.group)
		require.Equal(t, loc{group: es.group, bucket: es.bucket}, where, "element %d bookkeeping", id)
	}
}

// bucketPositions maps each bucket of g to the sorted original positions of
// its elements, a stable fingerprint of the partition that ignores element
// identity and insertion order.
func bucketPositions(g Group) [][]int {
	out := make([][]int, g.Len())
	for key := 0; key < g.Len(); key++ {
		for _, e := range g.Bucket(key) {
			out[key] = append(out[key], e.Pos())
		}
		sort.Ints(out[key])
	}
	return out
}

func TestGroup_ReparentMovesElement(t *testing.T) {
	a := NewArena()
	tensor := NewTensor(a, 4)
	g := tensor.ElementAt(0).Group()
	ng := a.NewGroup()

	e := tensor.ElementAt(0)
	ng.AddElement(e, 0)

	assert.Equal(t, ng, e.Group())
	assert.Equal(t, 0, e.BucketKey())
	assert.Equal(t, 3, g.NumElements())
	assert.Equal(t, 1, ng.NumElements())
	checkPartition(t, a)
}

func TestGroup_AddElementTwicePanics(t *testing.T) {
	a := NewArena()
	tensor := NewTensor(a, 2)
	g := tensor.ElementAt(0).Group()

	assert.Panics(t, func() {
		g.AddElement(tensor.ElementAt(0), 1)
	})
}

func TestGroup_RemoveForeignElementPanics(t *testing.T) {
	a := NewArena()
	tensor := NewTensor(a, 2)
	other := a.NewGroup()

	assert.Panics(t, func() {
		other.RemoveElement(tensor.ElementAt(0))
	})
}

func TestGroup_RemoveLeavesElementDetached(t *testing.T) {
	a := NewArena()
	tensor := NewTensor(a, 3)
	g := tensor.ElementAt(1).Group()

	e := tensor.ElementAt(1)
	g.RemoveElement(e)

	assert.False(t, e.Group().Valid())
	assert.Equal(t, -1, e.BucketKey())
	assert.Equal(t, 2, g.NumElements())
	checkPartition(t, a)
}

func TestUnionTwo_MergesBucketwise(t *testing.T) {
	a := NewArena()
	t1 := NewTensor(a, 3)
	t2 := NewTensor(a, 3)
	g1 := t1.ElementAt(0).Group()
	g2 := t2.ElementAt(0).Group()

	got := UnionTwo(g1, g2)

	assert.Equal(t, g1, got)
	assert.Equal(t, 3, got.Len())
	assert.Equal(t, 0, g2.Len(), "drained group keeps no buckets")
	for key := 0; key < 3; key++ {
		bucket := got.Bucket(key)
		require.Len(t, bucket, 2, "bucket %d", key)
		assert.Equal(t, key, bucket[0].Pos())
		assert.Equal(t, key, bucket[1].Pos())
	}
	checkPartition(t, a)
}

func TestUnionTwo_IdentityIsNoOp(t *testing.T) {
	a := NewArena()
	tensor := NewTensor(a, 4)
	g := tensor.ElementAt(0).Group()
	before := bucketPositions(g)

	got := UnionTwo(g, g)

	assert.Equal(t, g, got)
	if diff := cmp.Diff(before, bucketPositions(g)); diff != "" {
		t.Errorf("partition changed (-before +after):\n%s", diff)
	}
}

func TestUnionTwo_SizeMismatchPanics(t *testing.T) {
	a := NewArena()
	g1 := NewTensor(a, 3).ElementAt(0).Group()
	g2 := NewTensor(a, 4).ElementAt(0).Group()

	assert.Panics(t, func() {
		UnionTwo(g1, g2)
	})
}

func TestUnionTwo_IsCommutative(t *testing.T) {
	build := func() (Group, Group) {
		a := NewArena()
		g1 := NewTensor(a, 3).ElementAt(0).Group()
		g2 := NewTensor(a, 3).ElementAt(0).Group()
		return g1, g2
	}

	g1, g2 := build()
	ab := bucketPositions(UnionTwo(g1, g2))
	h1, h2 := build()
	ba := bucketPositions(UnionTwo(h2, h1))

	if diff := cmp.Diff(ab, ba); diff != "" {
		t.Errorf("membership differs (-ab +ba):\n%s", diff)
	}
}

func TestUnion_OrderDoesNotMatter(t *testing.T) {
	build := func() [3]Group {
		a := NewArena()
		var gs [3]Group
		for i := range gs {
			gs[i] = NewTensor(a, 2).ElementAt(0).Group()
		}
		return gs
	}

	g := build()
	first := bucketPositions(Union(g[0], g[1], g[2]))
	h := build()
	second := bucketPositions(Union(h[2], h[0], h[1]))

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("membership differs (-first +second):\n%s", diff)
	}
}

func TestUnion_TooFewGroupsPanics(t *testing.T) {
	a := NewArena()
	g := NewTensor(a, 2).ElementAt(0).Group()

	assert.Panics(t, func() {
		Union(g)
	})
}

func TestSplit_PartitionsByPosition(t *testing.T) {
	a := NewArena()
	tensor := NewTensor(a, 6)
	g := tensor.ElementAt(0).Group()

	parts := Split(g, []int{2, 3, 1})

	require.Len(t, parts, 3)
	assert.Equal(t, 0, g.Len(), "source group is drained")
	want := [][][]int{
		{{0}, {1}},
		{{2}, {3}, {4}},
		{{5}},
	}
	for i, part := range parts {
		if diff := cmp.Diff(want[i], bucketPositions(part)); diff != "" {
			t.Errorf("part %d (-want +got):\n%s", i, diff)
		}
	}
	checkPartition(t, a)
}

func TestSplit_SingleBlockIsNoOp(t *testing.T) {
	a := NewArena()
	g := NewTensor(a, 4).ElementAt(0).Group()

	parts := Split(g, []int{4})

	require.Len(t, parts, 1)
	assert.Equal(t, g, parts[0])
	assert.Equal(t, 4, g.Len())
}

func TestSplit_BadSumPanicsWithoutMutating(t *testing.T) {
	a := NewArena()
	g := NewTensor(a, 6).ElementAt(0).Group()
	before := bucketPositions(g)

	assert.Panics(t, func() {
		Split(g, []int{2, 3})
	})
	assert.Panics(t, func() {
		Split(g, []int{6, 0})
	})

	if diff := cmp.Diff(before, bucketPositions(g)); diff != "" {
		t.Errorf("failed split mutated the group (-before +after):\n%s", diff)
	}
	checkPartition(t, a)
}

func TestSplit_ThenEqualSizeUnionMergesBuckets(t *testing.T) {
	a := NewArena()
	g := NewTensor(a, 6).ElementAt(0).Group()

	parts := Split(g, []int{2, 2, 2})
	merged := Union(parts...)

	// Equal-size blocks re-key from 0, so the union overlays them: bucket k
	// collects position k of every block.
	want := [][]int{{0, 2, 4}, {1, 3, 5}}
	if diff := cmp.Diff(want, bucketPositions(merged)); diff != "" {
		t.Errorf("merged membership (-want +got):\n%s", diff)
	}
	checkPartition(t, a)
}

func TestSplit_ReindexRestoresCompactKeys(t *testing.T) {
	a := NewArena()
	tensor := NewTensor(a, 5)
	g := tensor.ElementAt(0).Group()

	parts := Split(g, []int{2, 3})

	second := parts[1]
	require.Equal(t, 3, second.Len())
	for key := 0; key < 3; key++ {
		bucket := second.Bucket(key)
		require.Len(t, bucket, 1)
		assert.Equal(t, key+2, bucket[0].Pos())
		assert.Equal(t, key, bucket[0].BucketKey())
	}
	checkPartition(t, a)
}
