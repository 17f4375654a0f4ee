package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/ternkit/internal/config"
	"github.com/nvandessel/ternkit/internal/control"
	"github.com/nvandessel/ternkit/internal/format"
	"github.com/nvandessel/ternkit/internal/fusion"
	"github.com/nvandessel/ternkit/internal/kernel"
)

// Build metadata, overridable with -ldflags "-X main.version=...".
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ternkit",
		Short: "Ternary logic under graded confidence - fusion, control, solving",
		Long: `ternkit works with three-valued logic under graded confidence.

It fuses uncertain sensor readings into single decisions through an
adaptive confidence threshold, drives a mode-switching controller from
the fused confidence, and solves constraint puzzles on the same
three-valued cell model.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for machine consumption)")
	rootCmd.PersistentFlags().Bool("markdown", false, "Render tables as Markdown instead of ASCII")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default ~/.ternkit/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newFuseCmd(),
		newSolveCmd(),
		newBenchCmd(),
		newDemoCmd(),
		newConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration for one command run:
// the --config file when given, the default locations otherwise, with
// environment overrides applied either way.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// tableMode picks the table renderer from the --markdown flag.
func tableMode(cmd *cobra.Command) format.Mode {
	if md, _ := cmd.Flags().GetBool("markdown"); md {
		return format.Markdown
	}
	return format.ASCII
}

// kernelParams maps the kernel config section onto kernel parameters.
func kernelParams(cfg *config.Config) kernel.Params {
	return kernel.Params{
		Theta:             cfg.Kernel.Theta,
		Alpha:             cfg.Kernel.Alpha,
		Beta:              cfg.Kernel.Beta,
		SigmoidSteepness:  cfg.Kernel.SigmoidSteepness,
		SigmoidOffset:     cfg.Kernel.SigmoidOffset,
		VarianceThreshold: cfg.Kernel.VarianceThreshold,
		Enabled:           cfg.Kernel.Enabled,
	}
}

// fusionConfig maps the fusion config section onto a fusion config.
func fusionConfig(cfg *config.Config) fusion.Config {
	return fusion.Config{
		FastFirstTrue: cfg.Fusion.FastFirstTrue,
		Epsilon:       cfg.Fusion.Epsilon,
	}
}

// modeSet overlays the per-mode config adjustments onto the built-in
// packs. Emergency stays fixed; it always commands zero.
func modeSet(cfg *config.Config) (control.ModeSet, error) {
	ms := control.DefaultModes()
	applyModeOverride(&ms[control.ModeNominal], cfg.Control.Nominal)
	applyModeOverride(&ms[control.ModeDegraded], cfg.Control.Degraded)
	applyModeOverride(&ms[control.ModeSafe], cfg.Control.Safe)
	if err := ms.Validate(); err != nil {
		return ms, fmt.Errorf("mode overrides: %w", err)
	}
	return ms, nil
}

func applyModeOverride(p *control.ModeParams, o config.ModeOverride) {
	set := func(dst, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.EntryThreshold, o.EntryThreshold)
	set(&p.Hysteresis, o.Hysteresis)
	set(&p.MinDwell, o.MinDwell)
	set(&p.Output.CLow, o.ConfidenceLow)
	set(&p.Output.CHigh, o.ConfidenceHigh)
	set(&p.Output.UMin, o.OutputMin)
	set(&p.Output.UNominal, o.OutputNominal)
	set(&p.Output.UMax, o.OutputMax)
	set(&p.Output.GainLow, o.GainLow)
	set(&p.Output.GainHigh, o.GainHigh)
	set(&p.Output.RateLimit, o.RateLimit)
}
