package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whittle-ml/whittle/internal/channel"
)

func mustNode(t *testing.T, g *Graph, name string) *Node {
	t.Helper()
	n, ok := g.Node(name)
	require.True(t, ok, "node %s not found", name)
	return n
}

func TestBuild_LinearChainSharesTensors(t *testing.T) {
	g, err := Build([]NodeSpec{
		{Name: "image", Kind: KindInput, OutChannels: 3},
		{Name: "conv1", Kind: KindConv, Inputs: []string{"image"}, InChannels: 3, OutChannels: 16},
		{Name: "bn1", Kind: KindNorm, Inputs: []string{"conv1"}, InChannels: 16},
		{Name: "relu1", Kind: KindPassthrough, Inputs: []string{"bn1"}},
		{Name: "fc", Kind: KindLinear, Inputs: []string{"relu1"}, InChannels: 16, OutChannels: 10},
		{Name: "head", Kind: KindOutput, Inputs: []string{"fc"}},
	})
	require.NoError(t, err)

	conv1 := mustNode(t, g, "conv1")
	bn1 := mustNode(t, g, "bn1")
	relu1 := mustNode(t, g, "relu1")
	fc := mustNode(t, g, "fc")
	head := mustNode(t, g, "head")

	// Norm and passthrough forward the same tensor; conv introduces a
	// fresh one per side.
	assert.Same(t, conv1.OutTensor(), bn1.InTensor())
	assert.Same(t, bn1.InTensor(), bn1.OutTensor())
	assert.Same(t, bn1.OutTensor(), relu1.OutTensor())
	assert.Same(t, relu1.OutTensor(), fc.InTensor())
	assert.NotSame(t, fc.InTensor(), fc.OutTensor())
	assert.Same(t, fc.OutTensor(), head.InTensor())
	assert.Nil(t, head.OutTensor())

	assert.Equal(t, 16, fc.InTensor().Len())
	assert.Equal(t, 10, fc.OutTensor().Len())
}

func TestBuild_TopologicalOrderFromShuffledSpecs(t *testing.T) {
	// Specs deliberately out of execution order.
	g, err := Build([]NodeSpec{
		{Name: "head", Kind: KindOutput, Inputs: []string{"conv2"}},
		{Name: "conv2", Kind: KindConv, Inputs: []string{"conv1"}, InChannels: 4, OutChannels: 8},
		{Name: "conv1", Kind: KindConv, Inputs: []string{"image"}, InChannels: 3, OutChannels: 4},
		{Name: "image", Kind: KindInput, OutChannels: 3},
	})
	require.NoError(t, err)

	var names []string
	for _, n := range g.Nodes() {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"image", "conv1", "conv2", "head"}, names)
}

func TestBuild_ResidualCouplesBranches(t *testing.T) {
	g, err := Build([]NodeSpec{
		{Name: "stem", Kind: KindInput, OutChannels: 8},
		{Name: "conv1", Kind: KindConv, Inputs: []string{"stem"}, InChannels: 8, OutChannels: 8},
		{Name: "bn1", Kind: KindNorm, Inputs: []string{"conv1"}},
		{Name: "conv2", Kind: KindConv, Inputs: []string{"bn1"}, InChannels: 8, OutChannels: 8},
		{Name: "bn2", Kind: KindNorm, Inputs: []string{"conv2"}},
		{Name: "add", Kind: KindEltwise, Inputs: []string{"stem", "bn2"}},
		{Name: "conv3", Kind: KindConv, Inputs: []string{"add"}, InChannels: 8, OutChannels: 16},
		{Name: "head", Kind: KindOutput, Inputs: []string{"conv3"}},
	})
	require.NoError(t, err)

	stem := mustNode(t, g, "stem")
	conv2 := mustNode(t, g, "conv2")
	add := mustNode(t, g, "add")

	// The skip connection forces the stem's channels and conv2's output
	// channels into one group.
	stemGroups := stem.OutTensor().Groups()
	conv2Groups := conv2.OutTensor().Groups()
	require.Len(t, stemGroups, 1)
	require.Len(t, conv2Groups, 1)
	assert.Equal(t, stemGroups[0], conv2Groups[0])
	assert.Equal(t, 8, stemGroups[0].Len())
	assert.Equal(t, 16, stemGroups[0].NumElements(), "one element per tensor per position")

	// conv1's own output stays an independent decision.
	conv1 := mustNode(t, g, "conv1")
	assert.NotEqual(t, stemGroups[0], conv1.OutTensor().Groups()[0])

	assert.Same(t, stem.OutTensor(), add.OutTensor())
}

func TestBuild_DepthwiseSharesInAndOut(t *testing.T) {
	g, err := Build([]NodeSpec{
		{Name: "in", Kind: KindInput, OutChannels: 8},
		{Name: "dw", Kind: KindDepthwiseConv, Inputs: []string{"in"}, InChannels: 8},
		{Name: "out", Kind: KindOutput, Inputs: []string{"dw"}},
	})
	require.NoError(t, err)

	dw := mustNode(t, g, "dw")
	assert.Same(t, dw.InTensor(), dw.OutTensor())
	in := mustNode(t, g, "in")
	assert.Same(t, in.OutTensor(), dw.OutTensor())
}

func TestBuild_ConcatStitchesBranches(t *testing.T) {
	g, err := Build([]NodeSpec{
		{Name: "image", Kind: KindInput, OutChannels: 3},
		{Name: "branch_a", Kind: KindConv, Inputs: []string{"image"}, InChannels: 3, OutChannels: 4},
		{Name: "branch_b", Kind: KindConv, Inputs: []string{"image"}, InChannels: 3, OutChannels: 6},
		{Name: "cat", Kind: KindConcat, Inputs: []string{"branch_a", "branch_b"}},
		{Name: "fuse", Kind: KindConv, Inputs: []string{"cat"}, InChannels: 10, OutChannels: 5},
		{Name: "head", Kind: KindOutput, Inputs: []string{"fuse"}},
	})
	require.NoError(t, err)

	cat := mustNode(t, g, "cat")
	fuse := mustNode(t, g, "fuse")
	branchA := mustNode(t, g, "branch_a")
	branchB := mustNode(t, g, "branch_b")

	require.Equal(t, 10, cat.OutTensor().Len())
	want := []channel.Span{{Start: 0, End: 4}, {Start: 4, End: 10}}
	if diff := cmp.Diff(want, fuse.InTensor().GroupBoundaries()); diff != "" {
		t.Errorf("fuse input boundaries (-want +got):\n%s", diff)
	}
	gs := fuse.InTensor().Groups()
	require.Len(t, gs, 2)
	assert.Equal(t, branchA.OutTensor().Groups()[0], gs[0])
	assert.Equal(t, branchB.OutTensor().Groups()[0], gs[1])
}

func TestBuild_ExpandReplicatesChannels(t *testing.T) {
	g, err := Build([]NodeSpec{
		{Name: "in", Kind: KindInput, OutChannels: 4},
		{Name: "mul", Kind: KindExpand, Inputs: []string{"in"}, Ratio: 2},
		{Name: "dw", Kind: KindDepthwiseConv, Inputs: []string{"mul"}, InChannels: 8},
		{Name: "out", Kind: KindOutput, Inputs: []string{"dw"}},
	})
	require.NoError(t, err)

	in := mustNode(t, g, "in")
	mul := mustNode(t, g, "mul")

	require.Equal(t, 8, mul.OutTensor().Len())
	inGroup := in.OutTensor().Groups()[0]
	gs := mul.OutTensor().Groups()
	require.Len(t, gs, 1)
	assert.Equal(t, inGroup, gs[0], "replicas join the source group")
	assert.Equal(t, 4, inGroup.Len(), "decision count stays at the source width")
}

func TestBuild_ExpandedBranchJoinsEltwise(t *testing.T) {
	g, err := Build([]NodeSpec{
		{Name: "in", Kind: KindInput, OutChannels: 6},
		{Name: "narrow", Kind: KindConv, Inputs: []string{"in"}, InChannels: 6, OutChannels: 2},
		{Name: "widen", Kind: KindExpand, Inputs: []string{"narrow"}, Ratio: 3},
		{Name: "wide", Kind: KindConv, Inputs: []string{"in"}, InChannels: 6, OutChannels: 6},
		{Name: "add", Kind: KindEltwise, Inputs: []string{"widen", "wide"}},
	})
	require.NoError(t, err)

	widen := mustNode(t, g, "widen")
	wide := mustNode(t, g, "wide")
	add := mustNode(t, g, "add")

	// Six physical channels per branch backed by two decisions: the join
	// pulls each of wide's channels into its replica block.
	widenGroups := widen.OutTensor().Groups()
	wideGroups := wide.OutTensor().Groups()
	require.Len(t, widenGroups, 1)
	require.Len(t, wideGroups, 1)
	assert.Equal(t, widenGroups[0], wideGroups[0])
	assert.Equal(t, 2, widenGroups[0].Len())
	for i := 0; i < 6; i++ {
		assert.Equal(t, i/3, wide.OutTensor().ElementAt(i).BucketKey(), "position %d", i)
	}
	if diff := cmp.Diff([]channel.Span{{Start: 0, End: 6}}, wide.OutTensor().GroupBoundaries()); diff != "" {
		t.Errorf("wide boundaries (-want +got):\n%s", diff)
	}
	assert.Same(t, widen.OutTensor(), add.OutTensor())
}

func TestBuild_UnknownInput(t *testing.T) {
	_, err := Build([]NodeSpec{
		{Name: "conv", Kind: KindConv, Inputs: []string{"ghost"}, InChannels: 3, OutChannels: 4},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown input "ghost"`)
}

func TestBuild_DuplicateName(t *testing.T) {
	_, err := Build([]NodeSpec{
		{Name: "a", Kind: KindInput, OutChannels: 3},
		{Name: "a", Kind: KindInput, OutChannels: 3},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node name")
}

func TestBuild_MissingKind(t *testing.T) {
	_, err := Build([]NodeSpec{{Name: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing kind")
}

func TestBuild_CycleDetected(t *testing.T) {
	_, err := Build([]NodeSpec{
		{Name: "a", Kind: KindPassthrough, Inputs: []string{"b"}},
		{Name: "b", Kind: KindPassthrough, Inputs: []string{"a"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestBuild_ChannelMismatch(t *testing.T) {
	_, err := Build([]NodeSpec{
		{Name: "in", Kind: KindInput, OutChannels: 3},
		{Name: "conv", Kind: KindConv, Inputs: []string{"in"}, InChannels: 4, OutChannels: 8},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incoming channels 3 != in_channels 4")
}

func TestBuild_EltwiseBranchMismatch(t *testing.T) {
	_, err := Build([]NodeSpec{
		{Name: "in", Kind: KindInput, OutChannels: 3},
		{Name: "a", Kind: KindConv, Inputs: []string{"in"}, InChannels: 3, OutChannels: 4},
		{Name: "b", Kind: KindConv, Inputs: []string{"in"}, InChannels: 3, OutChannels: 6},
		{Name: "add", Kind: KindEltwise, Inputs: []string{"a", "b"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "branch channels differ")
}

func TestBuild_CustomRuleOverride(t *testing.T) {
	reg := NewRegistry()
	called := false
	reg.Register(KindPassthrough, func(g *Graph, n *Node) error {
		called = true
		n.in = n.Parents()[0].OutTensor()
		n.out = n.in
		return nil
	})

	_, err := Build([]NodeSpec{
		{Name: "in", Kind: KindInput, OutChannels: 2},
		{Name: "id", Kind: KindPassthrough, Inputs: []string{"in"}},
	}, WithRegistry(reg))
	require.NoError(t, err)
	assert.True(t, called)
}
