// Copyright 2026 Whittle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph

import (
	"go.uber.org/zap"

	"github.com/whittle-ml/whittle/internal/graph"
)

// Graph is a traced architecture: nodes in topological order with channel
// tensors wired through them.
type Graph = graph.Graph

// Node is one traced node.
type Node = graph.Node

// NodeSpec describes one node of an architecture before tracing.
type NodeSpec = graph.NodeSpec

// Architecture is a named list of node specs, the YAML file format.
type Architecture = graph.Architecture

// Kind classifies a node by how it routes channel dependencies.
type Kind = graph.Kind

// Node kinds.
const (
	KindInput         = graph.KindInput
	KindOutput        = graph.KindOutput
	KindConv          = graph.KindConv
	KindDepthwiseConv = graph.KindDepthwiseConv
	KindLinear        = graph.KindLinear
	KindNorm          = graph.KindNorm
	KindEltwise       = graph.KindEltwise
	KindConcat        = graph.KindConcat
	KindPassthrough   = graph.KindPassthrough
	KindExpand        = graph.KindExpand
)

// Registry maps kinds to trace rules.
type Registry = graph.Registry

// TraceRule wires the channel tensors of one node.
type TraceRule = graph.TraceRule

// Option configures Build.
type Option = graph.Option

// Build traces the specs into a graph.
//
// Example:
//
//	g, err := graph.Build(arch.Nodes)
func Build(specs []NodeSpec, opts ...Option) (*Graph, error) {
	return graph.Build(specs, opts...)
}

// NewRegistry returns a registry with the built-in rules registered.
func NewRegistry() *Registry {
	return graph.NewRegistry()
}

// WithRegistry makes Build trace through a custom registry.
func WithRegistry(r *Registry) Option {
	return graph.WithRegistry(r)
}

// WithLogger sets the logger Build traces with. The default discards
// everything.
func WithLogger(l *zap.Logger) Option {
	return graph.WithLogger(l)
}

// LoadArchitecture reads and parses an architecture file.
func LoadArchitecture(path string) (*Architecture, error) {
	return graph.LoadArchitecture(path)
}

// ParseArchitecture decodes an architecture from YAML.
func ParseArchitecture(data []byte) (*Architecture, error) {
	return graph.ParseArchitecture(data)
}
