// Package main provides the whittle pruning planner CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/whittle-ml/whittle/graph"
	"github.com/whittle-ml/whittle/prune"
)

const version = "v0.1.0-dev"

var (
	// Global flags
	verbose bool

	// Command flags
	output         string
	seed           int64
	candidatesPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "whittle",
	Short: "whittle - channel pruning planner for neural networks",
	Long: `whittle traces an architecture description into coupled channel groups
and plans structured pruning over them.

Channels that must keep the same width (residual adds, shared norms,
depthwise chains, concatenated branches) are gathered into units. A
subnet file picks a kept width per unit, and whittle reports the mask
every module must apply.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// planCmd lists the pruning units of an architecture
var planCmd = &cobra.Command{
	Use:   "plan [architecture.yaml]",
	Short: "Trace an architecture and list its pruning units",
	Long: `Traces the architecture and prints every pruning unit: its width, how
many module ranges sit on each side, and whether a subnet may narrow it.

Example:
  whittle plan resnet_tiny.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

// templateCmd writes a full-width subnet for hand editing
var templateCmd = &cobra.Command{
	Use:   "template [architecture.yaml]",
	Short: "Write a full-width subnet template",
	Long: `Writes a subnet keeping every prunable unit at full width, the starting
point for a hand-edited configuration.

Example:
  whittle template resnet_tiny.yaml -o subnet.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplate,
}

// sampleCmd draws a random subnet
var sampleCmd = &cobra.Command{
	Use:   "sample [architecture.yaml]",
	Short: "Sample a random subnet",
	Long: `Draws a random kept width for every prunable unit. A candidates file
restricts units to discrete width sets first.

Example:
  whittle sample resnet_tiny.yaml --seed 7 -o subnet.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

// applyCmd validates a subnet against an architecture
var applyCmd = &cobra.Command{
	Use:   "apply [architecture.yaml] [subnet.yaml]",
	Short: "Apply a subnet and report the kept channels per module",
	Args:  cobra.ExactArgs(2),
	RunE:  runApply,
}

// versionCmd shows the version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("whittle %s\n", version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Output destinations
	templateCmd.Flags().StringVarP(&output, "output", "o", "", "Write YAML here instead of stdout")
	sampleCmd.Flags().StringVarP(&output, "output", "o", "", "Write YAML here instead of stdout")

	// Sampling controls
	sampleCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 draws a fresh one)")
	sampleCmd.Flags().StringVar(&candidatesPath, "candidates", "", "YAML file restricting unit widths")

	// Add commands to root
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadMutator traces an architecture file into a mutator.
func loadMutator(path string) (*prune.Mutator, *graph.Architecture, error) {
	arch, err := graph.LoadArchitecture(path)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("architecture loaded",
		zap.String("name", arch.Name),
		zap.Int("nodes", len(arch.Nodes)))

	g, err := graph.Build(arch.Nodes, graph.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("tracing %s: %w", arch.Name, err)
	}
	return prune.NewMutator(g, prune.WithLogger(logger)), arch, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	m, arch, err := loadMutator(args[0])
	if err != nil {
		return err
	}

	units := m.Units()
	fmt.Printf("%s: %d nodes, %d units (%d prunable)\n\n",
		arch.Name, len(arch.Nodes), len(units), len(m.PrunableUnits()))
	for _, u := range units {
		marker := " "
		if u.Prunable() {
			marker = "*"
		}
		fmt.Printf("%s %-48s %4d channels  out:%d in:%d\n",
			marker, u.Name(), u.NumChannels(), len(u.OutRelated()), len(u.InRelated()))
	}
	fmt.Println("\n* prunable")
	return nil
}

func runTemplate(cmd *cobra.Command, args []string) error {
	m, _, err := loadMutator(args[0])
	if err != nil {
		return err
	}
	return writeSubnet(m.Template())
}

func runSample(cmd *cobra.Command, args []string) error {
	m, _, err := loadMutator(args[0])
	if err != nil {
		return err
	}

	if candidatesPath != "" {
		specs, err := loadCandidates(candidatesPath)
		if err != nil {
			return err
		}
		if err := m.SetCandidates(specs); err != nil {
			return err
		}
	}
	return writeSubnet(m.Sample(seed))
}

func runApply(cmd *cobra.Command, args []string) error {
	m, _, err := loadMutator(args[0])
	if err != nil {
		return err
	}
	subnet, err := prune.LoadSubnet(args[1])
	if err != nil {
		return err
	}
	if err := m.Apply(subnet); err != nil {
		return err
	}

	for _, u := range m.Units() {
		fmt.Printf("%s: keep %d/%d\n", u.Name(), u.CurrentChoice(), u.NumChannels())
		for _, ch := range u.OutRelated() {
			fmt.Printf("  out %-16s %-10s keeps %d of %d\n",
				ch.Name(), ch.Span(), keptChannels(u.MaskFor(ch)), ch.Span().Len())
		}
		for _, ch := range u.InRelated() {
			fmt.Printf("  in  %-16s %-10s keeps %d of %d\n",
				ch.Name(), ch.Span(), keptChannels(u.MaskFor(ch)), ch.Span().Len())
		}
	}
	return nil
}

// loadCandidates reads a unit-name to candidate-spec map.
func loadCandidates(path string) (map[string]prune.CandidateSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidates: %w", err)
	}
	var specs map[string]prune.CandidateSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return specs, nil
}

// writeSubnet saves to --output, or prints YAML to stdout without one.
func writeSubnet(s prune.Subnet) error {
	if output != "" {
		return s.Save(output)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func keptChannels(mask []bool) int {
	n := 0
	for _, keep := range mask {
		if keep {
			n++
		}
	}
	return n
}
