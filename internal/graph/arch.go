package graph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Architecture is the YAML description of a model's layer graph: a name and
// a node list. Frontends that walk a live model instead assemble []NodeSpec
// in code and skip this file format entirely.
//
// Example file:
//
//	name: tiny-resnet
//	nodes:
//	  - {name: image, kind: input, out_channels: 3}
//	  - {name: conv1, kind: conv, inputs: [image], in_channels: 3, out_channels: 16}
//	  - {name: relu1, kind: passthrough, inputs: [conv1]}
//	  - {name: head, kind: output, inputs: [relu1]}
type Architecture struct {
	Name  string     `yaml:"name"`
	Nodes []NodeSpec `yaml:"nodes"`
}

// LoadArchitecture reads and parses an architecture file.
func LoadArchitecture(path string) (*Architecture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading architecture: %w", err)
	}
	arch, err := ParseArchitecture(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return arch, nil
}

// ParseArchitecture parses an architecture from YAML bytes.
func ParseArchitecture(data []byte) (*Architecture, error) {
	var arch Architecture
	if err := yaml.Unmarshal(data, &arch); err != nil {
		return nil, err
	}
	if len(arch.Nodes) == 0 {
		return nil, fmt.Errorf("architecture has no nodes")
	}
	return &arch, nil
}

// Save writes the architecture as YAML.
func (a *Architecture) Save(path string) error {
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding architecture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing architecture: %w", err)
	}
	return nil
}
