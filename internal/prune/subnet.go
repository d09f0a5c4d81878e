package prune

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Subnet maps unit names to the width each unit keeps. Values are absolute
// channel counts or keep ratios; both forms round-trip through YAML.
//
// Example file:
//
//	stem_(0, 32)__out_3_in_3: 16
//	conv2_(0, 64)__out_2_in_2: 0.5
type Subnet map[string]Choice

// ParseSubnet decodes a subnet from YAML. An empty document is an empty
// subnet.
func ParseSubnet(data []byte) (Subnet, error) {
	var s Subnet
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s == nil {
		s = Subnet{}
	}
	return s, nil
}

// LoadSubnet reads and parses a subnet file.
func LoadSubnet(path string) (Subnet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading subnet: %w", err)
	}
	s, err := ParseSubnet(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Save writes the subnet to a YAML file.
func (s Subnet) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
