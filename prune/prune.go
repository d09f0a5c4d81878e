// Copyright 2026 Whittle ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package prune

import (
	"go.uber.org/zap"

	"github.com/whittle-ml/whittle/internal/graph"
	"github.com/whittle-ml/whittle/internal/prune"
)

// Mutator owns the pruning units of one traced graph.
type Mutator = prune.Mutator

// Unit is one independent kept-width decision spanning every module range
// coupled to it.
type Unit = prune.Unit

// Subnet maps unit names to the width each unit keeps.
type Subnet = prune.Subnet

// Choice selects how much of a unit to keep: an absolute channel count or a
// keep ratio.
type Choice = prune.Choice

// CandidateSpec describes the discrete widths a unit may take.
type CandidateSpec = prune.CandidateSpec

// Option configures a Mutator.
type Option = prune.Option

// NewMutator parses the graph's channel groups into units.
//
// Example:
//
//	g, _ := graph.Build(arch.Nodes)
//	m := prune.NewMutator(g)
func NewMutator(g *graph.Graph, opts ...Option) *Mutator {
	return prune.NewMutator(g, opts...)
}

// WithLogger sets the mutator's logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return prune.WithLogger(l)
}

// LoadSubnet reads and parses a subnet file.
func LoadSubnet(path string) (Subnet, error) {
	return prune.LoadSubnet(path)
}

// ParseSubnet decodes a subnet from YAML.
func ParseSubnet(data []byte) (Subnet, error) {
	return prune.ParseSubnet(data)
}

// MakeDivisible rounds value to the nearest multiple of divisor, never below
// minValue. Width search spaces use it to keep candidate widths
// hardware-friendly. The divisor must be at least 1.
func MakeDivisible(value float64, divisor, minValue int, minRatio float64) int {
	return prune.MakeDivisible(value, divisor, minValue, minRatio)
}
