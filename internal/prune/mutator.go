// Package prune turns a traced architecture into pruning units and drives
// width choices across them.
//
// A Mutator parses the graph's channel groups into Units, each an
// independent kept-width decision spanning every module range coupled to it.
// Subnets name a choice per prunable unit; the mutator validates and applies
// them, samples random ones for a width search, and freezes the final pick.
package prune

import (
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/whittle-ml/whittle/internal/graph"
)

// Mutator owns the pruning units of one traced graph.
type Mutator struct {
	units  []*Unit
	byName map[string]*Unit
	logger *zap.Logger
}

// Option configures a Mutator.
type Option func(*Mutator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mutator) { m.logger = l }
}

// NewMutator parses the graph's channel groups into units.
func NewMutator(g *graph.Graph, opts ...Option) *Mutator {
	m := &Mutator{
		byName: make(map[string]*Unit),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.units = parseUnits(g)
	for _, u := range m.units {
		name := u.Name()
		if _, ok := m.byName[name]; ok {
			panic(fmt.Sprintf("prune: duplicate unit name %s", name))
		}
		m.byName[name] = u
		m.logger.Debug("parsed unit",
			zap.String("unit", name),
			zap.Int("channels", u.NumChannels()),
			zap.Bool("prunable", u.Prunable()))
	}
	m.logger.Info("parsed channel units",
		zap.Int("units", len(m.units)),
		zap.Int("prunable", len(m.PrunableUnits())))
	return m
}

// Units returns every unit in first-appearance order.
func (m *Mutator) Units() []*Unit {
	return m.units
}

// PrunableUnits returns the units a subnet may narrow.
func (m *Mutator) PrunableUnits() []*Unit {
	var out []*Unit
	for _, u := range m.units {
		if u.Prunable() {
			out = append(out, u)
		}
	}
	return out
}

// Unit looks a unit up by name.
func (m *Mutator) Unit(name string) (*Unit, bool) {
	u, ok := m.byName[name]
	return u, ok
}

// Template returns a subnet keeping every prunable unit as wide as its
// candidates allow, the starting point for a hand-edited or searched
// configuration.
func (m *Mutator) Template() Subnet {
	s := make(Subnet)
	for _, u := range m.PrunableUnits() {
		s[u.Name()] = Choice{Number: u.MaxChoice()}
	}
	return s
}

// Current returns the widths the prunable units hold right now.
func (m *Mutator) Current() Subnet {
	s := make(Subnet)
	for _, u := range m.PrunableUnits() {
		s[u.Name()] = Choice{Number: u.CurrentChoice()}
	}
	return s
}

// MaxSubnet returns the widest choice of every prunable unit.
func (m *Mutator) MaxSubnet() Subnet {
	s := make(Subnet)
	for _, u := range m.PrunableUnits() {
		s[u.Name()] = Choice{Number: u.MaxChoice()}
	}
	return s
}

// MinSubnet returns the narrowest choice of every prunable unit.
func (m *Mutator) MinSubnet() Subnet {
	s := make(Subnet)
	for _, u := range m.PrunableUnits() {
		s[u.Name()] = Choice{Number: u.MinChoice()}
	}
	return s
}

// Sample draws a random width for every prunable unit. A positive seed gives
// a reproducible draw.
func (m *Mutator) Sample(seed int64) Subnet {
	var rng *rand.Rand
	if seed > 0 {
		rng = rand.New(rand.NewSource(seed)) //nolint:gosec // Deterministic seed for reproducible sampling
	} else {
		rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // Subnet sampling is not security-critical
	}
	s := make(Subnet)
	for _, u := range m.PrunableUnits() {
		s[u.Name()] = Choice{Number: u.Sample(rng)}
	}
	return s
}

// Apply sets each named unit's choice. Entries apply in name order; an error
// leaves earlier entries applied.
func (m *Mutator) Apply(s Subnet) error {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		u, ok := m.byName[name]
		if !ok {
			return fmt.Errorf("unknown unit %q", name)
		}
		if err := u.SetChoice(s[name]); err != nil {
			return fmt.Errorf("unit %s: %w", name, err)
		}
		m.logger.Debug("set choice",
			zap.String("unit", name),
			zap.Int("keep", u.CurrentChoice()))
	}
	m.logger.Info("applied subnet", zap.Int("units", len(s)))
	return nil
}

// Fix applies the subnet and freezes every unit at its resulting width.
func (m *Mutator) Fix(s Subnet) error {
	if err := m.Apply(s); err != nil {
		return err
	}
	for _, u := range m.units {
		u.Fix()
	}
	m.logger.Info("subnet fixed", zap.Int("units", len(m.units)))
	return nil
}

// SetCandidates restricts named units to discrete width sets, the shape a
// width-search space takes.
func (m *Mutator) SetCandidates(specs map[string]CandidateSpec) error {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		u, ok := m.byName[name]
		if !ok {
			return fmt.Errorf("unknown unit %q", name)
		}
		if err := u.SetCandidates(specs[name]); err != nil {
			return fmt.Errorf("unit %s: %w", name, err)
		}
	}
	return nil
}
