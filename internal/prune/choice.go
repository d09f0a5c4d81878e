package prune

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Choice selects how much of a unit to keep: an absolute channel count or a
// keep ratio. Exactly one field is set. In YAML a choice is a bare scalar,
// and the scalar's type picks the form: an integer is a count, a float is a
// ratio.
type Choice struct {
	Number int
	Ratio  float64
}

// Resolve turns the choice into a kept channel count for a unit of n
// channels. Counts must lie in (0, n]; ratios in (0, 1], rounding down but
// never below one channel.
func (c Choice) Resolve(n int) (int, error) {
	switch {
	case c.Number != 0:
		if c.Number < 1 || c.Number > n {
			return 0, fmt.Errorf("channel count %d out of range (0, %d]", c.Number, n)
		}
		return c.Number, nil
	case c.Ratio != 0:
		if c.Ratio < 0 || c.Ratio > 1 {
			return 0, fmt.Errorf("keep ratio %v out of range (0, 1]", c.Ratio)
		}
		k := int(float64(n) * c.Ratio)
		if k < 1 {
			k = 1
		}
		return k, nil
	default:
		return 0, fmt.Errorf("empty choice")
	}
}

// UnmarshalYAML decodes a count from an integer scalar and a ratio from a
// float scalar.
func (c *Choice) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!int":
		return value.Decode(&c.Number)
	case "!!float":
		return value.Decode(&c.Ratio)
	default:
		return fmt.Errorf("choice must be an integer count or a float ratio, got %s", value.Tag)
	}
}

// MarshalYAML encodes the set form as a bare scalar.
func (c Choice) MarshalYAML() (any, error) {
	if c.Number != 0 {
		return c.Number, nil
	}
	return c.Ratio, nil
}

func (c Choice) String() string {
	if c.Number != 0 {
		return fmt.Sprintf("%d", c.Number)
	}
	return fmt.Sprintf("%v", c.Ratio)
}

// MakeDivisible rounds value to the nearest multiple of divisor, never below
// minValue (divisor when minValue is zero). If rounding down would lose more
// than (1 - minRatio) of the value, the result moves up one divisor step.
// The divisor must be at least 1.
func MakeDivisible(value float64, divisor, minValue int, minRatio float64) int {
	if divisor < 1 {
		panic(fmt.Sprintf("prune: divisor %d, need at least 1", divisor))
	}
	if minValue <= 0 {
		minValue = divisor
	}
	n := int(value+float64(divisor)/2) / divisor * divisor
	if n < minValue {
		n = minValue
	}
	if float64(n) < minRatio*value {
		n += divisor
	}
	return n
}

// CandidateSpec describes the discrete widths a unit may take. Ratio choices
// are snapped to divisor-aligned counts when a divisor is set; counts pass
// through unchanged.
type CandidateSpec struct {
	Choices  []Choice `yaml:"choices"`
	Divisor  int      `yaml:"divisor,omitempty"`
	MinValue int      `yaml:"min_value,omitempty"`
	MinRatio float64  `yaml:"min_ratio,omitempty"`
}

// Resolve turns the spec into a sorted set of kept channel counts for a unit
// of n channels. Duplicates collapse after snapping.
func (cs CandidateSpec) Resolve(n int) ([]int, error) {
	if len(cs.Choices) == 0 {
		return nil, fmt.Errorf("candidate spec has no choices")
	}
	divisor := cs.Divisor
	if divisor <= 0 {
		divisor = 1
	}
	minRatio := cs.MinRatio
	if minRatio == 0 {
		minRatio = 0.9
	}
	seen := make(map[int]bool)
	var widths []int
	for _, c := range cs.Choices {
		k, err := c.Resolve(n)
		if err != nil {
			return nil, err
		}
		if c.Number == 0 && divisor > 1 {
			k = MakeDivisible(float64(n)*c.Ratio, divisor, cs.MinValue, minRatio)
			if k > n {
				k = n
			}
		}
		if !seen[k] {
			seen[k] = true
			widths = append(widths, k)
		}
	}
	sort.Ints(widths)
	return widths, nil
}
