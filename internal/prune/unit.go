package prune

import (
	"fmt"
	"math/rand"

	"github.com/whittle-ml/whittle/internal/channel"
	"github.com/whittle-ml/whittle/internal/graph"
)

// Unit is one independent pruning decision: every module channel range
// registered in one arena group, which therefore must keep the same width.
// The ranges are listed as input-side and output-side channels, and a single
// kept-prefix choice drives all of them.
//
// Units start at full width. SetChoice narrows the kept prefix, Fix freezes
// the unit so later changes fail.
type Unit struct {
	group channel.Group

	inRelated  []*channel.Channel
	outRelated []*channel.Channel

	choice     int
	fixed      bool
	pinned     bool
	candidates []int
}

// Name identifies the unit by its first output-side channel: the producing
// module's name, the decision span, and how many module ranges sit on each
// side. Units with no output side fall back to the first input-side channel.
func (u *Unit) Name() string {
	ch := u.firstChannel()
	start := ch.Span().Start
	return fmt.Sprintf("%s_(%d, %d)__out_%d_in_%d",
		ch.Name(), start, start+u.NumChannels(), len(u.outRelated), len(u.inRelated))
}

func (u *Unit) firstChannel() *channel.Channel {
	if len(u.outRelated) > 0 {
		return u.outRelated[0]
	}
	return u.inRelated[0]
}

// NumChannels returns the unit's full width, the number of pruning decisions
// it holds.
func (u *Unit) NumChannels() int {
	return u.group.Len()
}

// Group returns the arena group backing the unit.
func (u *Unit) Group() channel.Group {
	return u.group
}

// InRelated returns the channels whose module reads the unit's width.
func (u *Unit) InRelated() []*channel.Channel {
	return u.inRelated
}

// OutRelated returns the channels whose module produces the unit's width.
func (u *Unit) OutRelated() []*channel.Channel {
	return u.outRelated
}

// Prunable reports whether a subnet may narrow the unit. A unit is prunable
// when modules sit on both its sides and nothing pins it: units touching a
// graph boundary or a fixed node keep their full width.
func (u *Unit) Prunable() bool {
	return !u.pinned && len(u.inRelated) > 0 && len(u.outRelated) > 0
}

// CurrentChoice returns the kept channel count.
func (u *Unit) CurrentChoice() int {
	return u.choice
}

// SetChoice resolves the choice against the unit's width and records it.
// Fixed units reject any change; units with candidates reject widths outside
// the candidate set.
func (u *Unit) SetChoice(c Choice) error {
	if u.fixed {
		return fmt.Errorf("fixed at %d channels", u.choice)
	}
	n, err := c.Resolve(u.NumChannels())
	if err != nil {
		return err
	}
	if len(u.candidates) > 0 && !u.isCandidate(n) {
		return fmt.Errorf("width %d not among candidates %v", n, u.candidates)
	}
	u.choice = n
	return nil
}

// Fix freezes the unit at its current choice.
func (u *Unit) Fix() {
	u.fixed = true
}

// Fixed reports whether the unit is frozen.
func (u *Unit) Fixed() bool {
	return u.fixed
}

// SetCandidates restricts the unit to a discrete set of widths and snaps the
// current choice to the widest one.
func (u *Unit) SetCandidates(cs CandidateSpec) error {
	if u.fixed {
		return fmt.Errorf("fixed at %d channels", u.choice)
	}
	widths, err := cs.Resolve(u.NumChannels())
	if err != nil {
		return err
	}
	u.candidates = widths
	u.choice = widths[len(widths)-1]
	return nil
}

// Candidates returns the allowed widths, nil when the unit is unrestricted.
func (u *Unit) Candidates() []int {
	return u.candidates
}

func (u *Unit) isCandidate(n int) bool {
	for _, c := range u.candidates {
		if c == n {
			return true
		}
	}
	return false
}

// MinChoice returns the narrowest width a sample may pick.
func (u *Unit) MinChoice() int {
	if len(u.candidates) > 0 {
		return u.candidates[0]
	}
	return 1
}

// MaxChoice returns the widest width a sample may pick.
func (u *Unit) MaxChoice() int {
	if len(u.candidates) > 0 {
		return u.candidates[len(u.candidates)-1]
	}
	return u.NumChannels()
}

// Sample draws a width uniformly from the candidates, or from the full range
// 1..NumChannels when no candidates are set.
func (u *Unit) Sample(rng *rand.Rand) int {
	if len(u.candidates) > 0 {
		return u.candidates[rng.Intn(len(u.candidates))]
	}
	return rng.Intn(u.NumChannels()) + 1
}

// Mask returns the unit's keep mask: one flag per decision, the current
// choice's prefix true.
func (u *Unit) Mask() []bool {
	mask := make([]bool, u.NumChannels())
	for i := 0; i < u.choice; i++ {
		mask[i] = true
	}
	return mask
}

// MaskFor returns the keep mask as the channel's module sees it, each
// decision replicated by the channel's expand ratio. The result covers the
// channel's physical span.
func (u *Unit) MaskFor(ch *channel.Channel) []bool {
	base := u.Mask()
	r := ch.ExpandRatio()
	if r == 1 {
		return base
	}
	mask := make([]bool, len(base)*r)
	for i := range mask {
		mask[i] = base[i/r]
	}
	return mask
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s: keep %d/%d", u.Name(), u.choice, u.NumChannels())
}

// parseUnits walks a traced graph in topological order and gathers the
// channel ranges of parameter-bearing nodes by the arena group owning them.
// One unit per touched group, ordered by first appearance. Groups touching
// an input or output node are pinned at full width.
func parseUnits(g *graph.Graph) []*Unit {
	byGroup := make(map[channel.Group]*Unit)
	var units []*Unit
	unitFor := func(grp channel.Group) *Unit {
		if u, ok := byGroup[grp]; ok {
			return u
		}
		u := &Unit{group: grp, choice: grp.Len()}
		byGroup[grp] = u
		units = append(units, u)
		return u
	}

	for _, n := range g.Nodes() {
		if !n.Kind().BearsChannels() {
			continue
		}
		attachSide(unitFor, n, n.InTensor(), false)
		attachSide(unitFor, n, n.OutTensor(), true)
	}

	for _, n := range g.Nodes() {
		if n.Kind() != graph.KindInput && n.Kind() != graph.KindOutput {
			continue
		}
		for _, t := range []*channel.Tensor{n.InTensor(), n.OutTensor()} {
			if t == nil {
				continue
			}
			for _, grp := range t.Groups() {
				if u, ok := byGroup[grp]; ok {
					u.pinned = true
				}
			}
		}
	}
	return units
}

// attachSide registers one channel per run of the tensor on the unit owning
// the run's group. A run longer than its group is an expanded view, and the
// quotient becomes the channel's expand ratio.
func attachSide(unitFor func(channel.Group) *Unit, n *graph.Node, t *channel.Tensor, isOutput bool) {
	if t == nil {
		return
	}
	spans := t.GroupBoundaries()
	groups := t.Groups()
	for i, span := range spans {
		grp := groups[i]
		if span.Len()%grp.Len() != 0 {
			panic(fmt.Sprintf("prune: run %s of node %s covers group %d with %d buckets",
				span, n.Name(), grp.ID(), grp.Len()))
		}
		ratio := span.Len() / grp.Len()
		ch := channel.NewChannel(n.Name(), n.Spec().Module, span, n, isOutput, ratio)
		u := unitFor(grp)
		if n.Fixed() {
			u.pinned = true
		}
		if isOutput {
			u.outRelated = append(u.outRelated, ch)
		} else {
			u.inRelated = append(u.inRelated, ch)
		}
	}
}
