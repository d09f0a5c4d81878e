package graph

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/whittle-ml/whittle/internal/channel"
)

// Kind classifies a node by how it routes channel dependencies. The set is
// closed: every structural behavior the tracer supports is one of these,
// dispatched through the trace registry.
type Kind int

const (
	KindInvalid Kind = iota

	// KindInput introduces a tensor with a fixed channel count.
	KindInput
	// KindOutput marks a graph result; its incoming channels stay unpruned.
	KindOutput
	// KindConv is a convolution-like module: independent input and output
	// channel dimensions, both prunable.
	KindConv
	// KindDepthwiseConv couples its input and output channels one to one.
	KindDepthwiseConv
	// KindLinear is a fully-connected module, structurally like KindConv.
	KindLinear
	// KindNorm is a normalization-like module: one channel dimension shared
	// between input and output.
	KindNorm
	// KindEltwise joins two or more branches elementwise, forcing their
	// channels to prune together.
	KindEltwise
	// KindConcat stitches its inputs' channels side by side.
	KindConcat
	// KindPassthrough forwards channels untouched (activations, pooling).
	KindPassthrough
	// KindExpand replicates each incoming channel by a fixed ratio, the
	// grouped-operation multiplier.
	KindExpand
)

var kindNames = map[string]Kind{
	"input":          KindInput,
	"output":         KindOutput,
	"conv":           KindConv,
	"depthwise_conv": KindDepthwiseConv,
	"linear":         KindLinear,
	"norm":           KindNorm,
	"eltwise":        KindEltwise,
	"concat":         KindConcat,
	"passthrough":    KindPassthrough,
	"expand":         KindExpand,
}

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindConv:
		return "conv"
	case KindDepthwiseConv:
		return "depthwise_conv"
	case KindLinear:
		return "linear"
	case KindNorm:
		return "norm"
	case KindEltwise:
		return "eltwise"
	case KindConcat:
		return "concat"
	case KindPassthrough:
		return "passthrough"
	case KindExpand:
		return "expand"
	default:
		return "invalid"
	}
}

// BearsChannels reports whether modules of this kind own prunable
// parameters along the channel dimension. Kinds bearing no channels
// contribute structure but never appear in a pruning unit.
func (k Kind) BearsChannels() bool {
	switch k {
	case KindConv, KindLinear, KindDepthwiseConv, KindNorm:
		return true
	default:
		return false
	}
}

// UnmarshalYAML decodes a kind from its lowercase name.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	kind, ok := kindNames[s]
	if !ok {
		return fmt.Errorf("unknown node kind %q", s)
	}
	*k = kind
	return nil
}

// MarshalYAML encodes the kind as its lowercase name.
func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// NodeSpec describes one node of an architecture before tracing. Specs come
// from a YAML architecture file or are assembled in code by a frontend that
// walks a real model.
type NodeSpec struct {
	Name   string   `yaml:"name"`
	Kind   Kind     `yaml:"kind"`
	Inputs []string `yaml:"inputs,omitempty"`

	// InChannels and OutChannels give the channel widths of parametric
	// kinds. Structural kinds derive their widths from their parents.
	InChannels  int `yaml:"in_channels,omitempty"`
	OutChannels int `yaml:"out_channels,omitempty"`

	// Ratio is the replication factor of an expand node.
	Ratio int `yaml:"ratio,omitempty"`

	// Fixed excludes every group touching this node from pruning.
	Fixed bool `yaml:"fixed,omitempty"`

	// Module is an opaque handle to the backend's module object, carried
	// through to the pruning plan untouched.
	Module any `yaml:"-"`
}

// Node is one traced node: its spec, its resolved parents, and the channel
// tensors the trace registry wired for it. Structural kinds share tensors
// with their parents; parametric kinds introduce fresh ones.
type Node struct {
	spec    NodeSpec
	parents []*Node

	in  *channel.Tensor
	out *channel.Tensor
}

// Name returns the node's unique name.
func (n *Node) Name() string {
	return n.spec.Name
}

// Kind returns the node's kind.
func (n *Node) Kind() Kind {
	return n.spec.Kind
}

// Spec returns the spec the node was built from.
func (n *Node) Spec() NodeSpec {
	return n.spec
}

// Parents returns the resolved input nodes, in spec order.
func (n *Node) Parents() []*Node {
	return n.parents
}

// Fixed reports whether the node is pinned out of pruning.
func (n *Node) Fixed() bool {
	return n.spec.Fixed
}

// InTensor returns the channel tensor entering the node, nil for inputs.
func (n *Node) InTensor() *channel.Tensor {
	return n.in
}

// OutTensor returns the channel tensor leaving the node, nil for outputs.
func (n *Node) OutTensor() *channel.Tensor {
	return n.out
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.spec.Name, n.spec.Kind)
}
