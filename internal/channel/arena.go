// Package channel implements the channel-dependency bookkeeping used for
// structured pruning: a dynamic partition over the ordered channel positions
// of every traced tensor in a model.
//
// The package tracks which channel positions across different tensors must
// share a single pruning decision. Each position is an Element, elements are
// partitioned into Groups of keyed buckets, and a Tensor is the ordered view
// of the elements belonging to one layer boundary. As the graph tracer
// discovers structural dependencies (residual adds, concatenations, channel
// multipliers) it couples tensors with Tensor.UnionWith, refines shared
// boundaries with AlignAll, and replicates memberships with Tensor.Expand.
// When tracing settles, each surviving group is one independent pruning
// decision.
//
// All structural failures are programming errors in the caller's graph
// wiring and panic immediately; no operation returns an error.
package channel

// Arena owns every Element and Group created while tracing one model.
// Elements and groups are addressed by stable integer ids, so the handles
// stay valid and cheaply comparable across the bucket moves that union,
// split and re-index perform, and no ownership cycles form between groups
// and their members.
//
// An Arena is not safe for concurrent use: the grouping structure for one
// model is built in a single synchronous pass.
//
// Example:
//
//	arena := channel.NewArena()
//	a := channel.NewTensor(arena, 64)
//	b := channel.NewTensor(arena, 64)
//	a.UnionWith(b) // positions of a and b now prune together
type Arena struct {
	elems  []elemState
	groups []groupState
}

type elemState struct {
	pos    int // position in the tensor the element was created for
	group  int // owning group id, -1 while detached
	bucket int // bucket key inside the owning group, -1 while detached
}

type groupState struct {
	// buckets[key] holds the ids of the elements registered under key.
	// Order inside a bucket carries no meaning.
	buckets [][]int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// NumElements returns the number of elements ever created in the arena.
func (a *Arena) NumElements() int {
	return len(a.elems)
}

// NumGroups returns the number of groups ever created in the arena,
// including groups drained by unions and splits.
func (a *Arena) NumGroups() int {
	return len(a.groups)
}

// NewGroup creates an empty group.
func (a *Arena) NewGroup() Group {
	id := len(a.groups)
	a.groups = append(a.groups, groupState{})
	return Group{arena: a, id: id}
}

func (a *Arena) newElement(pos int) Element {
	id := len(a.elems)
	a.elems = append(a.elems, elemState{pos: pos, group: -1, bucket: -1})
	return Element{arena: a, id: id}
}
