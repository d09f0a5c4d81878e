package graph

import (
	"fmt"

	"github.com/whittle-ml/whittle/internal/channel"
)

// TraceRule wires one node's channel tensors from its parents' outputs.
// Rules run in topological order, so every parent is traced first.
type TraceRule func(g *Graph, n *Node) error

// Registry maps node kinds to trace rules. It is built once before tracing
// and not mutated afterwards; Register exists so a frontend can add rules
// for custom kinds before handing the registry to Build.
type Registry struct {
	rules map[Kind]TraceRule
}

// NewRegistry creates a registry with rules for every built-in kind.
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[Kind]TraceRule)}
	r.registerBoundaryRules()
	r.registerParametricRules()
	r.registerStructuralRules()
	return r
}

// Register adds or replaces the rule for a kind.
func (r *Registry) Register(kind Kind, rule TraceRule) {
	r.rules[kind] = rule
}

// Get returns the rule for a kind.
func (r *Registry) Get(kind Kind) (TraceRule, bool) {
	rule, ok := r.rules[kind]
	return rule, ok
}

// registerBoundaryRules covers the graph entry and exit kinds.
func (r *Registry) registerBoundaryRules() {
	r.rules[KindInput] = func(g *Graph, n *Node) error {
		if len(n.parents) != 0 {
			return fmt.Errorf("input node takes no inputs, got %d", len(n.parents))
		}
		if n.spec.OutChannels < 1 {
			return fmt.Errorf("input node needs out_channels >= 1, got %d", n.spec.OutChannels)
		}
		n.out = channel.NewTensor(g.arena, n.spec.OutChannels)
		return nil
	}

	r.rules[KindOutput] = func(g *Graph, n *Node) error {
		in, err := singleParentOut(n)
		if err != nil {
			return err
		}
		n.in = in
		return nil
	}
}

// registerParametricRules covers kinds whose modules own channel-dimension
// parameters.
func (r *Registry) registerParametricRules() {
	r.rules[KindConv] = traceConvLike
	r.rules[KindLinear] = traceConvLike

	r.rules[KindDepthwiseConv] = func(g *Graph, n *Node) error {
		in, err := singleParentOut(n)
		if err != nil {
			return err
		}
		if n.spec.InChannels < 1 {
			return fmt.Errorf("needs in_channels >= 1, got %d", n.spec.InChannels)
		}
		if n.spec.OutChannels != 0 && n.spec.OutChannels != n.spec.InChannels {
			return fmt.Errorf("depthwise channels differ: in=%d, out=%d", n.spec.InChannels, n.spec.OutChannels)
		}
		if in.Len() != n.spec.InChannels {
			return fmt.Errorf("incoming channels %d != in_channels %d", in.Len(), n.spec.InChannels)
		}
		// One filter per channel: input and output prune as one.
		n.in = in
		n.out = in
		return nil
	}

	r.rules[KindNorm] = func(g *Graph, n *Node) error {
		in, err := singleParentOut(n)
		if err != nil {
			return err
		}
		if n.spec.InChannels != 0 && in.Len() != n.spec.InChannels {
			return fmt.Errorf("incoming channels %d != in_channels %d", in.Len(), n.spec.InChannels)
		}
		n.in = in
		n.out = in
		return nil
	}
}

// registerStructuralRules covers kinds that only route channels.
func (r *Registry) registerStructuralRules() {
	r.rules[KindPassthrough] = func(g *Graph, n *Node) error {
		in, err := singleParentOut(n)
		if err != nil {
			return err
		}
		n.in = in
		n.out = in
		return nil
	}

	r.rules[KindEltwise] = func(g *Graph, n *Node) error {
		outs, err := parentOuts(n, 2)
		if err != nil {
			return err
		}
		for _, o := range outs[1:] {
			if o.Len() != outs[0].Len() {
				return fmt.Errorf("branch channels differ: %d != %d", o.Len(), outs[0].Len())
			}
		}
		joined := outs[0]
		for _, o := range outs[1:] {
			joined.UnionWith(o)
		}
		n.in = joined
		n.out = joined
		return nil
	}

	r.rules[KindConcat] = func(g *Graph, n *Node) error {
		outs, err := parentOuts(n, 2)
		if err != nil {
			return err
		}
		stitched := channel.Cat(outs...)
		n.in = stitched
		n.out = stitched
		return nil
	}

	r.rules[KindExpand] = func(g *Graph, n *Node) error {
		in, err := singleParentOut(n)
		if err != nil {
			return err
		}
		if n.spec.Ratio < 1 {
			return fmt.Errorf("expand node needs ratio >= 1, got %d", n.spec.Ratio)
		}
		n.in = in
		n.out = in.Expand(n.spec.Ratio)
		return nil
	}
}

// traceConvLike handles conv and linear: decoupled input and output channel
// dimensions, a fresh tensor on the output side.
func traceConvLike(g *Graph, n *Node) error {
	in, err := singleParentOut(n)
	if err != nil {
		return err
	}
	if n.spec.InChannels < 1 || n.spec.OutChannels < 1 {
		return fmt.Errorf("needs in_channels and out_channels >= 1, got in=%d, out=%d",
			n.spec.InChannels, n.spec.OutChannels)
	}
	if in.Len() != n.spec.InChannels {
		return fmt.Errorf("incoming channels %d != in_channels %d", in.Len(), n.spec.InChannels)
	}
	n.in = in
	n.out = channel.NewTensor(g.arena, n.spec.OutChannels)
	return nil
}

// singleParentOut returns the out tensor of the node's only parent.
func singleParentOut(n *Node) (*channel.Tensor, error) {
	if len(n.parents) != 1 {
		return nil, fmt.Errorf("needs exactly 1 input, got %d", len(n.parents))
	}
	out := n.parents[0].out
	if out == nil {
		return nil, fmt.Errorf("input %q produces no channels", n.parents[0].Name())
	}
	return out, nil
}

// parentOuts returns the out tensors of all parents, requiring at least min.
func parentOuts(n *Node, min int) ([]*channel.Tensor, error) {
	if len(n.parents) < min {
		return nil, fmt.Errorf("needs at least %d inputs, got %d", min, len(n.parents))
	}
	outs := make([]*channel.Tensor, len(n.parents))
	for i, p := range n.parents {
		if p.out == nil {
			return nil, fmt.Errorf("input %q produces no channels", p.Name())
		}
		outs[i] = p.out
	}
	return outs, nil
}
