package channel

import "fmt"

// Channel associates a contiguous position range of a traced tensor with
// the module whose parameters span it. The direction flag records whether
// shrinking the range is an input-side or output-side change for the
// module, which decides how a pruning mask must later be applied (trimming
// weight columns vs rows, a concern outside this package).
//
// Channel is a pure data holder. The module and node references are opaque
// here; the tracer fills them in and the pruning policy reads them back.
type Channel struct {
	name        string
	module      any
	node        any
	span        Span
	isOutput    bool
	expandRatio int
}

// NewChannel creates a channel descriptor. The span must be non-empty with
// Start >= 0, and the expand ratio at least 1.
func NewChannel(name string, module any, span Span, node any, isOutput bool, expandRatio int) *Channel {
	if span.Start < 0 || span.End <= span.Start {
		panic(fmt.Sprintf("channel: invalid span [%d, %d)", span.Start, span.End))
	}
	if expandRatio < 1 {
		panic(fmt.Sprintf("channel: expand ratio %d, need at least 1", expandRatio))
	}
	return &Channel{
		name:        name,
		module:      module,
		node:        node,
		span:        span,
		isOutput:    isOutput,
		expandRatio: expandRatio,
	}
}

// Name returns the name of the owning module.
func (c *Channel) Name() string {
	return c.name
}

// Module returns the opaque module reference, if any.
func (c *Channel) Module() any {
	return c.module
}

// Node returns the graph node the channel was traced from, if any.
func (c *Channel) Node() any {
	return c.node
}

// Span returns the position range the channel covers in its tensor.
func (c *Channel) Span() Span {
	return c.span
}

// IsOutput reports whether the range lies on the module's output side.
func (c *Channel) IsOutput() bool {
	return c.isOutput
}

// ExpandRatio returns the replication factor between one pruning decision
// and the module's physical channels.
func (c *Channel) ExpandRatio() int {
	return c.expandRatio
}

// NumChannels returns the number of positions the channel covers.
func (c *Channel) NumChannels() int {
	return c.span.Len()
}

func (c *Channel) String() string {
	side := "in"
	if c.isOutput {
		side = "out"
	}
	return fmt.Sprintf("%s\t(%d, %d)\t%s\texpand:%d", c.name, c.span.Start, c.span.End, side, c.expandRatio)
}
