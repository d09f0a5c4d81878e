// Package graph builds the channel-dependency structure of a model from a
// declarative node list. Each node carries a kind from a closed enum; a
// trace registry maps kinds to wiring rules that allocate channel tensors,
// union coupled branches and expand multiplied channels. After Build, every
// group in the graph's arena is one independent pruning decision.
package graph

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/whittle-ml/whittle/internal/channel"
)

// Graph is a traced architecture: nodes in topological order, each wired to
// the channel tensors the trace rules allocated in the shared arena.
type Graph struct {
	arena  *channel.Arena
	nodes  []*Node
	byName map[string]*Node
	logger *zap.Logger
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	registry *Registry
	logger   *zap.Logger
}

// WithRegistry traces with a custom rule registry instead of the default.
func WithRegistry(r *Registry) Option {
	return func(o *buildOptions) {
		o.registry = r
	}
}

// WithLogger attaches a logger for trace diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *buildOptions) {
		o.logger = l
	}
}

// Build validates the specs, links and topologically sorts the nodes, and
// traces every node's channel tensors in dependency order.
func Build(specs []NodeSpec, opts ...Option) (*Graph, error) {
	options := buildOptions{
		registry: NewRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	g := &Graph{
		arena:  channel.NewArena(),
		byName: make(map[string]*Node, len(specs)),
		logger: options.logger,
	}

	nodes := make([]*Node, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("node without a name")
		}
		if spec.Kind == KindInvalid {
			return nil, fmt.Errorf("node %s: missing kind", spec.Name)
		}
		if _, dup := g.byName[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate node name %s", spec.Name)
		}
		n := &Node{spec: spec}
		g.byName[spec.Name] = n
		nodes = append(nodes, n)
	}

	for _, n := range nodes {
		for _, input := range n.spec.Inputs {
			parent, ok := g.byName[input]
			if !ok {
				return nil, fmt.Errorf("node %s: unknown input %q", n.Name(), input)
			}
			n.parents = append(n.parents, parent)
		}
	}

	sorted, err := topologicalSort(nodes)
	if err != nil {
		return nil, err
	}
	g.nodes = sorted

	for _, n := range g.nodes {
		rule, ok := options.registry.Get(n.Kind())
		if !ok {
			return nil, fmt.Errorf("node %s: unsupported kind %s", n.Name(), n.Kind())
		}
		if err := rule(g, n); err != nil {
			return nil, fmt.Errorf("node %s (%s): %w", n.Name(), n.Kind(), err)
		}
		g.logger.Debug("traced node",
			zap.String("node", n.Name()),
			zap.Stringer("kind", n.Kind()),
			zap.Int("in", tensorLen(n.in)),
			zap.Int("out", tensorLen(n.out)))
	}

	g.logger.Info("architecture traced",
		zap.Int("nodes", len(g.nodes)),
		zap.Int("groups", g.arena.NumGroups()))

	return g, nil
}

// Nodes returns the traced nodes in topological order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Node returns the named node.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// Arena returns the arena holding the graph's elements and groups.
func (g *Graph) Arena() *channel.Arena {
	return g.arena
}

// topologicalSort orders nodes so every parent precedes its children,
// rejecting dependency cycles.
func topologicalSort(nodes []*Node) ([]*Node, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*Node]int, len(nodes))
	sorted := make([]*Node, 0, len(nodes))

	var visit func(n *Node) error
	visit = func(n *Node) error {
		switch state[n] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle through node %s", n.Name())
		}
		state[n] = visiting
		for _, p := range n.parents {
			if err := visit(p); err != nil {
				return err
			}
		}
		state[n] = done
		sorted = append(sorted, n)
		return nil
	}

	for _, n := range nodes {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}

func tensorLen(t *channel.Tensor) int {
	if t == nil {
		return 0
	}
	return t.Len()
}
